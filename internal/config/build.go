package config

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X powerplan/internal/config.version=1.4.0 \
//	    -X powerplan/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X powerplan/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/api
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

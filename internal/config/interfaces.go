package config

import "context"

// SecretProvider resolves secret references in bulk. SSMProvider serves
// deployed environments; EnvVarProvider serves local runs and tests.
type SecretProvider interface {
	// GetParametersBatch returns a map of key -> plaintext for every key it
	// could resolve. Keys it cannot find are omitted rather than erroring,
	// unless the backend reports them as invalid.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}

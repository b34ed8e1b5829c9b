package types

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a credential (database URL, JWT signing key) that must
// never appear in logs or JSON dumps. fmt and encoding/json both see the
// placeholder; Unmask returns the real value.
type SecretString string

// String implements fmt.Stringer with the redacted placeholder.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON always encodes the redacted placeholder.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the plaintext. Call it only at the point of use (pool
// construction, token signing).
func (s SecretString) Unmask() string {
	return string(s)
}

package types

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretString_Redacts(t *testing.T) {
	s := SecretString("postgres://u:p@h/db")

	if got := fmt.Sprintf("%v", s); got != redactedPlaceholder {
		t.Errorf("fmt %%v = %q", got)
	}
	if got := s.String(); got != redactedPlaceholder {
		t.Errorf("String() = %q", got)
	}

	b, err := json.Marshal(struct {
		URL SecretString `json:"url"`
	}{URL: s})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"url":"***REDACTED***"}` {
		t.Errorf("json = %s", b)
	}

	if s.Unmask() != "postgres://u:p@h/db" {
		t.Errorf("Unmask() = %q", s.Unmask())
	}
}

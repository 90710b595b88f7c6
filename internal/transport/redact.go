package transport

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Redacted replaces the value of every sensitive field.
const Redacted = "[REDACTED]"

var sensitiveKeys = []string{"key", "secret", "signature", "token", "password", "authorization"}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Redact returns a copy of a JSON payload with the value of every object key
// named like key, secret, signature, token or password replaced by [REDACTED],
// at any depth. Payloads that are not JSON are never echoed.
func Redact(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Sprintf("[%d bytes, not JSON]", len(payload))
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return fmt.Sprintf("[%d bytes]", len(payload))
	}
	return string(out)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if isSensitive(k) {
				t[k] = Redacted
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	default:
		return v
	}
}

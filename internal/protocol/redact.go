package protocol

import (
	"encoding/json"
	"strings"
)

// Mask replaces credential values in logged payloads.
const Mask = "****"

// credentialKey reports whether a JSON field holds a secret. Matching is by
// name shape, not an allowlist, so renamed broker fields stay covered.
func credentialKey(key string) bool {
	k := strings.ToLower(strings.ReplaceAll(key, "_", ""))
	return strings.Contains(k, "password") ||
		strings.Contains(k, "apikey") ||
		strings.Contains(k, "secret") ||
		strings.Contains(k, "token")
}

// Redact returns a copy of a JSON payload with credential fields masked.
// Payloads that do not parse are replaced wholesale; a log line must never
// carry an unredacted credential.
func Redact(payload []byte) []byte {
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return []byte(Mask)
	}
	redacted, err := json.Marshal(redactValue(v))
	if err != nil {
		return []byte(Mask)
	}
	return redacted
}

func redactValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if credentialKey(k) {
				t[k] = Mask
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = redactValue(val)
		}
		return t
	default:
		return v
	}
}

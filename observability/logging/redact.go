package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder for a masked field.
const RedactedValue = "[REDACTED]"

// redactionAllowlist lists the log keys MaskField treats as safe to leave
// unmasked. A borrower address is deliberately absent: it is not a secret,
// but any call site that logs one is expected to route it through
// MaskField rather than format it directly, so the allowlist stays
// conservative and a field added to it later needs a reviewed reason to be
// there.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"market":    {},
	"operation": {},
	"kind":      {},
	"block":     {},
}

// IsAllowlisted reports whether key is exempt from MaskField's redaction.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// RedactionAllowlist returns a sorted copy of the allowlisted keys, the
// fields permitted to appear unmasked.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for k := range redactionAllowlist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue returns the canonical redacted placeholder for a non-empty
// value, leaving empty values unchanged to avoid log noise.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns a slog.Attr that redacts the supplied value unless the
// key is explicitly allowlisted. The original key casing is preserved for
// readability.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

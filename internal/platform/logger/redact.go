package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const redacted = "[REDACTED]"

type action int

const (
	keep action = iota
	drop
	pseudonymize
)

// keyRules is matched by substring against the lowercased field key, first hit wins.
var keyRules = []struct {
	fragment string
	action   action
}{
	{"token", drop},
	{"authorization", drop},
	{"password", drop},
	{"secret", drop},
	{"email", drop},
	{"idempotency_key", drop},
	// identifiers stay joinable across lines
	{"student_id", pseudonymize},
	{"owner_id", pseudonymize},
	{"session_id", pseudonymize},
}

type redactor struct {
	enabled bool
	salt    string
}

func (r *redactor) fields(kv []interface{}) []interface{} {
	if r == nil || !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		out[i+1] = r.value(normalizeKey(out[i]), out[i+1])
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch ruleFor(key) {
	case drop:
		return redacted
	case pseudonymize:
		return r.pseudonym(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		nested := make(map[string]interface{}, len(v))
		for k, inner := range v {
			nested[k] = r.value(normalizeKey(k), inner)
		}
		return nested
	case string:
		if looksLikeJWT(v) {
			return redacted
		}
	}
	return val
}

func ruleFor(key string) action {
	if key == "" {
		return keep
	}
	for _, rule := range keyRules {
		if strings.Contains(key, rule.fragment) {
			return rule.action
		}
	}
	return keep
}

func (r *redactor) pseudonym(val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func looksLikeJWT(s string) bool {
	head, rest, ok := strings.Cut(s, ".")
	if !ok {
		return false
	}
	body, sig, ok := strings.Cut(rest, ".")
	return ok && !strings.Contains(sig, ".") && len(head) > 10 && len(body) > 10
}

func normalizeKey(k interface{}) string {
	return strings.ToLower(stringify(k))
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

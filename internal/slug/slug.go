// Package slug derives deterministic dataset/model id slugs: a pure
// function of training parameters, sanitised by lowercasing, replacing
// non-alphanumerics with "_", and truncating to 120 chars.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const maxLen = 120

// Sanitize lowercases s, replaces every run of non-alphanumeric characters
// with a single underscore, trims leading/trailing underscores, and
// truncates to maxLen.
func Sanitize(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if len(out) > maxLen {
		out = out[:maxLen]
		out = strings.TrimSuffix(out, "_")
	}
	return out
}

// Fingerprint reduces an ordered list of key=value parameter strings to a
// short, deterministic hex digest. Order matters: callers must pass
// parameters in a fixed, documented order so the mapping stays a pure
// function of the parameters alone.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// DatasetID derives a deterministic dataset id slug from a human tag and a
// parameter fingerprint, e.g. "enwik8_train_3f9a2c1e0b7d" for the tag
// "enwik8-train".
func DatasetID(tag string, fingerprint string) string {
	base := Sanitize(tag)
	if base == "" {
		base = "dataset"
	}
	return Sanitize(base + "_" + fingerprint)
}

// ModelID derives a deterministic model id slug from a human tag and a
// parameter fingerprint.
func ModelID(tag string, fingerprint string) string {
	base := Sanitize(tag)
	if base == "" {
		base = "model"
	}
	return Sanitize(base + "_" + fingerprint)
}

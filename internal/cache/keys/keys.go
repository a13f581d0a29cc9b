// Package keys builds the Redis key space for the gateway.
package keys

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const jobPrefix = "digipin:job:"

// JobID derives the job identifier from the canonical request payload.
// Identical payloads map to the same ID, which is what makes batch
// submission idempotent.
func JobID(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// JobKey returns the Redis key holding a job record. The id may come
// straight from a URL path segment, so it is sanitized and capped.
func JobKey(id string) string {
	const maxIDLen = 64
	safe := sanitize(strings.TrimSpace(id))
	if len(safe) > maxIDLen {
		safe = safe[:maxIDLen]
	}
	return jobPrefix + safe
}

// sanitize maps an untrusted id onto the key alphabet. Whitespace
// becomes '_', any other foreign byte '-', and runs of either collapse
// so hostile input cannot inflate the key.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		case c == ' ', c == '\t', c == '\n', c == '\r', c == '\v', c == '\f':
			c = '_'
		default:
			c = '-'
		}
		if (c == '_' || c == '-') && c == prev {
			continue
		}
		b.WriteByte(c)
		prev = c
	}
	return b.String()
}

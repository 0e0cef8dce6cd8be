package redis

import "strings"

const defaultKeyPrefix = "vt"

// Keyspace builds colon-separated keys under a shared prefix so every
// feature's entries can be listed or flushed together.
type Keyspace struct {
	prefix string
}

// NewKeyspace returns a keyspace rooted at prefix, or "vt" when empty.
func NewKeyspace(prefix string) Keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

// IdempotencyKey holds a replayable response for (scope, Idempotency-Key).
func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

// RateLimitKey holds a fixed-window counter.
func (k Keyspace) RateLimitKey(scope string) string {
	return k.join("rate_limit", scope)
}

// AccessSessionKey holds the refresh token minted for an access-token jti.
func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.join("session", "access", accessID)
}

// ClassificationKey caches the classifier answer for an image digest.
func (k Keyspace) ClassificationKey(digest string) string {
	return k.join("classify", digest)
}

func (k Keyspace) join(parts ...string) string {
	prefix := k.prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

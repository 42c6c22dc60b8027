package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 32-char hex identifier, optionally namespaced
// with prefix ("ent_ab12…").
func NewID(prefix string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

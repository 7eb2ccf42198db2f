package nbtlai

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes the SHA-256 hash of a span's text.
// Spans are hashed verbatim: whitespace differences produce different keys.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a cache key from a text hash, the language pair and the backend name.
func CacheKey(hash, sourceLang, targetLang, backend string) string {
	return hash + ":" + sourceLang + ":" + targetLang + ":" + backend
}

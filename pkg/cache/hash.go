package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// hashKey returns prefix:sha256(json(parts)).
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// KeyType returns the kind prefix of a key ("export" or "http").
// Scoped keys report the kind after the scope prefix.
func KeyType(key string) string {
	for _, kind := range []string{"export", "http"} {
		if strings.Contains(key, kind+":") {
			return kind
		}
	}
	return "other"
}

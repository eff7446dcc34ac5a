package extract

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash computes the duplicate-suppression digest of an article:
// sha256(title + ":" + content[:1000]), hex-encoded (§4.4).
func ContentHash(title, content string) string {
	prefix := content
	if len(prefix) > 1000 {
		prefix = prefix[:1000]
	}
	sum := sha256.Sum256([]byte(title + ":" + prefix))
	return hex.EncodeToString(sum[:])
}

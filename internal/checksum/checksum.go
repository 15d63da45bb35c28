// Package checksum fingerprints data files and archived notices so unchanged
// content can be skipped on sync.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/starford/tenderwatch/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Notice digests every field of n, the matched seed label included, so a
// relabelled notice counts as changed.
func Notice(n models.Notice) string {
	data, err := json.Marshal(n)
	if err != nil {
		// Notice holds only strings; fall back to the identity.
		return Sum([]byte(n.Link))
	}
	return Sum(data)
}

package service

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the sha256 content fingerprint of an upload as a hex
// string. Deterministic; empty input hashes like any other content.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

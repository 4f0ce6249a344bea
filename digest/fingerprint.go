// Package digest drives the per-topic summarization pipeline: normalized
// line building, chunk assembly, fingerprinting, the incremental guard, and
// the bounded-concurrency runner.
package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint derives the idempotency/cache key for one summarization
// request: a hex SHA-256 over the model name, the topic id in fixed-width
// big-endian bytes, and the full prompt, newline-delimited. Identical inputs
// always produce the identical digest; nothing else feeds the hash.
func Fingerprint(topicID int64, model, prompt string) string {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(topicID))

	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{'\n'})
	h.Write(idBytes[:])
	h.Write([]byte{'\n'})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

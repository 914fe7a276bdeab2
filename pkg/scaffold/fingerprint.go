package scaffold

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Fingerprint returns a stable hex digest of the exact parameter set.
// The external result cache keys on it: identical parameters always hash
// identically, any field change produces a new key. YAML marshalling
// gives a canonical field order (struct declaration order).
func (p *Params) Fingerprint() (string, error) {
	// KindName mirrors Kind for serialization; normalize it so a stale
	// name cannot split the cache key space.
	q := *p
	q.KindName = p.Kind.String()
	data, err := yaml.Marshal(&q)
	if err != nil {
		return "", fmt.Errorf("fingerprinting parameters: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

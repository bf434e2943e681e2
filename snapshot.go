package facet

import (
	"encoding/hex"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/blake2b"
)

// Snapshot is the generic tree produced by a walk. Nodes are scalars, []any
// or *Object; the root is always an *Object.
type Snapshot struct {
	Root *Object

	// Nodes counts the nodes emitted, keys included.
	Nodes int

	// Truncated is set when a node or size ceiling stopped the walk early.
	Truncated bool
}

// Get reads a path from the snapshot root.
func (s *Snapshot) Get(path string) (any, error) {
	return defaultResolver.Get(s.Root, path)
}

// MarshalJSON encodes the root in key order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return s.Root.MarshalJSON()
}

// Fingerprint returns the hex BLAKE2b-256 digest of the root's JSON form.
// Snapshots of equal trees have equal fingerprints.
func (s *Snapshot) Fingerprint() (string, error) {
	data, err := json.Marshal(s.Root)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

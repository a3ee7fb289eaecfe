package index

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docindex"
)

// EncodeSnapshot serializes a snapshot as indented JSON. HTML characters
// are left unescaped so paths read naturally in the document.
func EncodeSnapshot(snap docindex.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = docindex.Snapshot{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Digest computes a short content hash of a published document using xxhash.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

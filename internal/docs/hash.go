package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// ManifestEntry identifies one rendered document by path and content.
type ManifestEntry struct {
	RelPath     string `json:"rel_path"`
	Fingerprint string `json:"fingerprint"`
}

// ComputeDocsHash computes a deterministic hash for a set of documents so
// two builds of an unchanged tree report the same value.
func ComputeDocsHash(entries []ManifestEntry) string {
	if len(entries) == 0 {
		h := sha256.Sum256([]byte("empty-docs-set"))
		return hex.EncodeToString(h[:])
	}

	sorted := make([]ManifestEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })

	h := sha256.New()
	for _, e := range sorted {
		h.Write([]byte(e.RelPath))
		h.Write([]byte{'|'})
		h.Write([]byte(e.Fingerprint))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

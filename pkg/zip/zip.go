// Package zip bundles the artifacts of a render job into a single archive
// for download.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Entry is one artifact to include in the bundle.
type Entry struct {
	Name string
	Data []byte
}

// Archive writes the entries into an in-memory zip. Entries sharing a name
// get a numeric prefix so none of them is silently dropped.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := map[string]int{}
	for _, entry := range entries {
		name := entry.Name
		if n := seen[entry.Name]; n > 0 {
			name = fmt.Sprintf("%d-%s", n, entry.Name)
		}
		seen[entry.Name]++
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}

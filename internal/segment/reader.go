package segment

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadDir decodes every regular file in dir as a gzip stream of JSON
// descriptor values and returns the accumulated descriptors. Subdirectories
// are skipped; any open, decompress, or decode failure aborts with the
// offending file in the error.
func ReadDir(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read segments dir: %w", err)
	}

	var descriptors []Descriptor
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		descs, err := readFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, descs...)
	}
	return descriptors, nil
}

func readFile(path string) ([]Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	defer gz.Close()

	var descriptors []Descriptor
	dec := json.NewDecoder(gz)
	for {
		var d Descriptor
		if err := dec.Decode(&d); err != nil {
			if errors.Is(err, io.EOF) {
				return descriptors, nil
			}
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		descriptors = append(descriptors, d)
	}
}

// Package frames persists rendered frames as sequentially numbered PNG files.
package frames

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Writer saves frames into a single output directory.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed and returns a writer for it.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Name returns the file name for the frame at the given sequence index.
// Indexes below 10000 are zero padded to four digits so shell globs sort
// frames in render order.
func Name(index int) string {
	return fmt.Sprintf("%04d.png", index)
}

// Write encodes img as a PNG named after its sequence index.
func (w *Writer) Write(index int, img image.Image) error {
	path := filepath.Join(w.dir, Name(index))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close frame %s: %w", path, err)
	}
	return nil
}

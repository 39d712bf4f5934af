package eventlog

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/statelapse/internal/lifecycle"
)

// Source yields events in non-decreasing bucket order. Next returns io.EOF
// once the stream is exhausted.
type Source interface {
	Next() (Event, error)
}

// FileSource streams events from one gzip-compressed file of concatenated
// JSON event values.
type FileSource struct {
	path string
	file *os.File
	gz   *gzip.Reader
	dec  *json.Decoder
}

// OpenDir opens every regular file in dir as an event source, sorted by file
// name; that order fixes the source index used for merge tie-breaks. The
// caller owns closing the returned sources.
func OpenDir(dir string) ([]*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read events dir: %w", err)
	}

	var sources []*FileSource
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src, err := Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			for _, s := range sources {
				s.Close()
			}
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Open opens a single event file.
func Open(path string) (*FileSource, error) {
	log.Printf("reading event file %s", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return &FileSource{path: path, file: f, gz: gz, dec: json.NewDecoder(gz)}, nil
}

// eventRecord is the wire shape of one event value.
type eventRecord struct {
	Bucket    string `json:"bucket"`
	Operation string `json:"operation"`
	Segment   int    `json:"segment"`
	Items     []int  `json:"items"`
}

// Next decodes the next event. Malformed records are fatal for the run and
// name this file.
func (s *FileSource) Next() (Event, error) {
	var rec eventRecord
	if err := s.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("decode %s: %w", s.path, err)
	}

	bucket, err := time.ParseInLocation(BucketLayout, rec.Bucket, time.UTC)
	if err != nil {
		return Event{}, fmt.Errorf("parse bucket in %s: %w", s.path, err)
	}
	op, err := lifecycle.ParseOperation(rec.Operation)
	if err != nil {
		return Event{}, fmt.Errorf("parse operation in %s: %w", s.path, err)
	}
	return Event{Bucket: bucket, Operation: op, Segment: rec.Segment, Items: rec.Items}, nil
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	gzErr := s.gz.Close()
	fileErr := s.file.Close()
	s.file = nil
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

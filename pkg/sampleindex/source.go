// Package sampleindex provides random access to the individual samples of an
// arbitrarily large newline-delimited MCMC sample file.
//
// An Index is built once per file by streaming the source in fixed-size
// chunks and recording line-start offsets; afterwards any sample line is
// served in O(1) seeks without scanning or buffering the rest of the file.
// The index is immutable after construction, and the source is read-only, so
// any number of retrievals may run concurrently against one Index.
package sampleindex

import (
	"fmt"
	"os"
)

// ByteSource is a byte-addressable, length-known data source. Implementations
// must support concurrent Slice/Text calls.
type ByteSource interface {
	// Len returns the total size of the source in bytes.
	Len() int64
	// Slice returns the bytes in [start, end).
	Slice(start, end int64) ([]byte, error)
	// Text returns the bytes in [start, end) decoded as text.
	Text(start, end int64) (string, error)
}

// FileSource is a ByteSource backed by a file on disk. Reads use ReadAt and
// are safe for concurrent use.
type FileSource struct {
	f    *os.File
	size int64
	path string
}

// OpenFile opens a file as a ByteSource.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sample file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat sample file: %w", err)
	}
	return &FileSource{f: f, size: info.Size(), path: path}, nil
}

// Close releases the underlying file.
func (s *FileSource) Close() error { return s.f.Close() }

// Path returns the path the source was opened from.
func (s *FileSource) Path() string { return s.path }

// Len implements ByteSource.
func (s *FileSource) Len() int64 { return s.size }

// Slice implements ByteSource.
func (s *FileSource) Slice(start, end int64) ([]byte, error) {
	if start < 0 || end < start || end > s.size {
		return nil, fmt.Errorf("slice [%d,%d) out of range (size %d)", start, end, s.size)
	}
	buf := make([]byte, end-start)
	if _, err := s.f.ReadAt(buf, start); err != nil {
		return nil, fmt.Errorf("reading %s [%d,%d): %w", s.path, start, end, err)
	}
	return buf, nil
}

// Text implements ByteSource.
func (s *FileSource) Text(start, end int64) (string, error) {
	b, err := s.Slice(start, end)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// BytesSource is an in-memory ByteSource, mainly for tests and small inputs.
type BytesSource []byte

// Len implements ByteSource.
func (s BytesSource) Len() int64 { return int64(len(s)) }

// Slice implements ByteSource.
func (s BytesSource) Slice(start, end int64) ([]byte, error) {
	if start < 0 || end < start || end > int64(len(s)) {
		return nil, fmt.Errorf("slice [%d,%d) out of range (size %d)", start, end, len(s))
	}
	return s[start:end], nil
}

// Text implements ByteSource.
func (s BytesSource) Text(start, end int64) (string, error) {
	b, err := s.Slice(start, end)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

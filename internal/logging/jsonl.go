package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed is returned by JSONL.Write after Close.
var ErrClosed = errors.New("jsonl: file closed")

// JSONL appends one JSON document per line to a file. Writes are
// serialized, so concurrent requests never interleave within a line.
type JSONL struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenJSONL opens dir/name for appending, creating dir (0700) and the file
// (0600) as needed.
func OpenJSONL(dir, name string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &JSONL{f: f, path: path}, nil
}

// Path returns the file being appended to.
func (j *JSONL) Path() string { return j.path }

// Write marshals v and appends it with a trailing newline.
func (j *JSONL) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return ErrClosed
	}
	_, err = j.f.Write(append(data, '\n'))
	return err
}

// Close closes the file. Later calls are no-ops.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

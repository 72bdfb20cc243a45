// Package file provides the plain-file driven adapter for the encrypted history.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ericfisherdev/fastclip/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EntryFile = (*EntryFile)(nil)

// EntryFile keeps the encrypted history in a single file that is rewritten in
// full on every change. A crash between truncate and write can lose the file
// contents.
type EntryFile struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens (creating if needed) the history file at path with mode 0600.
// Missing parent directories are created with mode 0700.
func Open(path string) (*EntryFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	return &EntryFile{f: f, path: path}, nil
}

// Path returns the backing file path.
func (e *EntryFile) Path() string {
	return e.path
}

// ReadAll reads the whole file from the start.
func (e *EntryFile) ReadAll(_ context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek history file: %w", err)
	}
	data, err := io.ReadAll(e.f)
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	return data, nil
}

// Rewrite truncates the file, writes data from offset zero and syncs.
func (e *EntryFile) Rewrite(_ context.Context, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate history file: %w", err)
	}
	if _, err := e.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek history file: %w", err)
	}
	if _, err := e.f.Write(data); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	if err := e.f.Sync(); err != nil {
		return fmt.Errorf("sync history file: %w", err)
	}
	return nil
}

// Close closes the file.
func (e *EntryFile) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.f.Close()
}

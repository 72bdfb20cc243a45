// Package keyfile loads and creates the raw 32-byte history key on disk.
package keyfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/fastclip/internal/domain/codec"
	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

// ErrInvalidKey is returned when the key file does not hold exactly
// model.KeySize bytes.
var ErrInvalidKey = errors.New("invalid key file")

// Load reads a key file holding exactly model.KeySize raw bytes.
func Load(path string) (model.Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Key{}, fmt.Errorf("read key file: %w", err)
	}
	if len(data) != model.KeySize {
		return model.Key{}, fmt.Errorf("%w: %s holds %d bytes, want %d", ErrInvalidKey, path, len(data), model.KeySize)
	}

	var key model.Key
	copy(key[:], data)
	return key, nil
}

// Generate writes a new random key to path with mode 0600. An existing file
// is never overwritten.
func Generate(path string) (model.Key, error) {
	key, err := codec.GenerateKey()
	if err != nil {
		return model.Key{}, fmt.Errorf("generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return model.Key{}, fmt.Errorf("create key dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return model.Key{}, fmt.Errorf("create key file: %w", err)
	}

	if _, err := f.Write(key[:]); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return model.Key{}, fmt.Errorf("write key file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return model.Key{}, fmt.Errorf("sync key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return model.Key{}, fmt.Errorf("close key file: %w", err)
	}

	return key, nil
}

// LoadOrGenerate loads the key at path. When the file is missing and generate
// is true a new key is created there; the bool result reports that case.
func LoadOrGenerate(path string, generate bool) (model.Key, bool, error) {
	key, err := Load(path)
	if err == nil {
		return key, false, nil
	}
	if !generate || !errors.Is(err, fs.ErrNotExist) {
		return model.Key{}, false, err
	}

	key, err = Generate(path)
	if err != nil {
		return model.Key{}, false, err
	}
	return key, true, nil
}

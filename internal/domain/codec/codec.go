// Package codec encrypts and decrypts single clipboard entries with
// ChaCha20-Poly1305. It holds no state beyond the key passed to each call.
package codec

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

// NonceSize is the length of the per-entry nonce (96 bits).
const NonceSize = chacha20poly1305.NonceSize

var (
	// ErrDecode marks an entry that failed authentication or could not be
	// unpacked. A caller may discard the single record instead of treating the
	// whole history as unreadable.
	ErrDecode = errors.New("decode entry")

	// ErrEncode marks a failure to produce ciphertext for an entry.
	ErrEncode = errors.New("encode entry")
)

// randReader is swapped in tests to simulate an exhausted entropy source.
var randReader io.Reader = rand.Reader

// GenerateKey returns a fresh random key.
func GenerateKey() (model.Key, error) {
	var key model.Key
	if _, err := io.ReadFull(randReader, key[:]); err != nil {
		return model.Key{}, fmt.Errorf("%w: read random key: %v", ErrEncode, err)
	}
	return key, nil
}

// Encode encrypts entry under key with a new random nonce. The kind is bound
// as associated data so it cannot be swapped without failing authentication.
func Encode(entry model.Entry, key model.Key) (model.EncryptedEntry, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return model.EncryptedEntry{}, fmt.Errorf("%w: init cipher: %v", ErrEncode, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return model.EncryptedEntry{}, fmt.Errorf("%w: rand nonce: %v", ErrEncode, err)
	}

	ciphertext := aead.Seal(nil, nonce, packPlaintext(entry), []byte(entry.Kind))
	return model.EncryptedEntry{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Kind:       entry.Kind,
	}, nil
}

// Decode authenticates and decrypts enc under key.
func Decode(enc model.EncryptedEntry, key model.Key) (model.Entry, error) {
	if len(enc.Nonce) != NonceSize {
		return model.Entry{}, fmt.Errorf("%w: nonce is %d bytes, want %d", ErrDecode, len(enc.Nonce), NonceSize)
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: init cipher: %v", ErrDecode, err)
	}

	plaintext, err := aead.Open(nil, enc.Nonce, enc.Ciphertext, []byte(enc.Kind))
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: authentication failed", ErrDecode)
	}

	capturedAt, content, err := unpackPlaintext(plaintext)
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return model.Entry{
		Content:    content,
		Kind:       enc.Kind,
		CapturedAt: capturedAt,
	}, nil
}

// packPlaintext lays out an entry as: uvarint(len(timestamp)) || timestamp || content.
func packPlaintext(entry model.Entry) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(entry.CapturedAt)+len(entry.Content))
	buf = binary.AppendUvarint(buf, uint64(len(entry.CapturedAt)))
	buf = append(buf, entry.CapturedAt...)
	buf = append(buf, entry.Content...)
	return buf
}

func unpackPlaintext(plaintext []byte) (string, []byte, error) {
	n, read := binary.Uvarint(plaintext)
	if read <= 0 {
		return "", nil, errors.New("malformed timestamp length")
	}
	rest := plaintext[read:]
	if n > uint64(len(rest)) {
		return "", nil, errors.New("timestamp overruns plaintext")
	}
	content := make([]byte, len(rest)-int(n))
	copy(content, rest[n:])
	return string(rest[:n]), content, nil
}

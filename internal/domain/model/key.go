package model

// KeySize is the length in bytes of the symmetric history key.
const KeySize = 32

// Key is the symmetric secret used to encrypt history entries.
type Key [KeySize]byte

// String keeps the secret out of logs and formatted errors.
func (Key) String() string {
	return "Key(redacted)"
}

// GoString keeps the secret out of %#v output.
func (Key) GoString() string {
	return "model.Key(redacted)"
}

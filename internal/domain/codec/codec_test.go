package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

var testKey = model.Key([]byte("Thisisakeyof32bytesThisisakeyof3"))

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry model.Entry
	}{
		{"text", model.NewEntry([]byte("hello world"), model.EntryKindText, testTime)},
		{"image bytes", model.NewEntry([]byte{0x89, 'P', 'N', 'G', 0, 1, 2}, model.EntryKindImage, testTime)},
		{"empty content", model.NewEntry(nil, model.EntryKindText, testTime)},
		{"empty non-nil content", model.NewEntry([]byte{}, model.EntryKindText, testTime)},
		{"empty timestamp", model.Entry{Content: []byte{1, 2, 3, 4}, Kind: model.EntryKindText}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.entry, testKey)
			require.NoError(t, err)
			assert.Len(t, enc.Nonce, NonceSize)
			assert.Equal(t, tt.entry.Kind, enc.Kind)

			got, err := Decode(enc, testKey)
			require.NoError(t, err)
			assert.Equal(t, tt.entry.Content, got.Content)
			assert.Equal(t, tt.entry.Kind, got.Kind)
			assert.Equal(t, tt.entry.CapturedAt, got.CapturedAt)
		})
	}
}

func TestEncode_FreshNoncePerCall(t *testing.T) {
	entry := model.NewEntry([]byte("same"), model.EntryKindText, testTime)

	a, err := Encode(entry, testKey)
	require.NoError(t, err)
	b, err := Encode(entry, testKey)
	require.NoError(t, err)

	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestEncode_CiphertextHidesContent(t *testing.T) {
	entry := model.NewEntry([]byte("top secret clipboard"), model.EntryKindText, testTime)

	enc, err := Encode(entry, testKey)
	require.NoError(t, err)
	assert.NotContains(t, string(enc.Ciphertext), "top secret")
}

func TestDecode_Failures(t *testing.T) {
	entry := model.NewEntry([]byte("payload"), model.EntryKindText, testTime)
	enc, err := Encode(entry, testKey)
	require.NoError(t, err)

	otherKey := testKey
	otherKey[0] ^= 0xff

	tests := []struct {
		name   string
		mutate func(e model.EncryptedEntry) model.EncryptedEntry
		key    model.Key
	}{
		{
			name:   "wrong key",
			mutate: func(e model.EncryptedEntry) model.EncryptedEntry { return e },
			key:    otherKey,
		},
		{
			name: "flipped ciphertext bit",
			mutate: func(e model.EncryptedEntry) model.EncryptedEntry {
				c := append([]byte(nil), e.Ciphertext...)
				c[0] ^= 0x01
				e.Ciphertext = c
				return e
			},
			key: testKey,
		},
		{
			name: "truncated ciphertext",
			mutate: func(e model.EncryptedEntry) model.EncryptedEntry {
				e.Ciphertext = e.Ciphertext[:len(e.Ciphertext)-1]
				return e
			},
			key: testKey,
		},
		{
			name: "short nonce",
			mutate: func(e model.EncryptedEntry) model.EncryptedEntry {
				e.Nonce = e.Nonce[:8]
				return e
			},
			key: testKey,
		},
		{
			name: "long nonce",
			mutate: func(e model.EncryptedEntry) model.EncryptedEntry {
				e.Nonce = append(append([]byte(nil), e.Nonce...), 0)
				return e
			},
			key: testKey,
		},
		{
			name: "swapped kind",
			mutate: func(e model.EncryptedEntry) model.EncryptedEntry {
				e.Kind = model.EntryKindImage
				return e
			},
			key: testKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.mutate(enc), tt.key)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode), "expected ErrDecode, got %v", err)
		})
	}
}

func TestDecode_ErrorOmitsKey(t *testing.T) {
	enc, err := Encode(model.NewEntry([]byte("x"), model.EntryKindText, testTime), testKey)
	require.NoError(t, err)

	otherKey := testKey
	otherKey[31] ^= 0xff

	_, err = Decode(enc, otherKey)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "Thisisakeyof32bytes")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestEncode_RandomSourceFailure(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	t.Cleanup(func() { randReader = orig })

	_, err := Encode(model.NewEntry([]byte("x"), model.EntryKindText, testTime), testKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncode))

	_, err = GenerateKey()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncode))
}

func TestGenerateKey_Distinct(t *testing.T) {
	a, err := GenerateKey()
	require.NoError(t, err)
	b, err := GenerateKey()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, "Key(redacted)", a.String())
}

func TestUnpackPlaintext_Malformed(t *testing.T) {
	_, _, err := unpackPlaintext(nil)
	assert.Error(t, err)

	_, _, err = unpackPlaintext([]byte{10, 'a', 'b'})
	assert.Error(t, err)
}

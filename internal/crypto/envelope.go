// Package encryption implements the envelope encryption codec for stage
// objects.
//
// Every uploaded object gets a fresh random data key of the same length as
// the stage master key. Object bytes are encrypted with AES-CBC (PKCS7
// padding) under the data key; the data key itself is wrapped with AES-ECB
// (PKCS7 padding, no IV) under the master key. The wrapped key, the IV and a
// material descriptor travel in provider object metadata so that any holder
// of the master key can decrypt the object later.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrIncompleteMetadata indicates the wrapped data key or the IV is missing
// from an object's encryption metadata.
var ErrIncompleteMetadata = errors.New("incomplete encryption metadata: wrapped key or IV missing")

// Envelope holds the per-object encryption material produced for one upload.
// It is created fresh per object, consumed immediately by the stream cipher,
// and never persisted outside provider metadata.
type Envelope struct {
	key        []byte // random data key, same length as the master key
	iv         []byte // random IV, AES block size
	wrappedKey []byte // data key encrypted under the master key
	queryID    string
	smkID      int64
	keyBits    int
}

// NewEnvelope decodes the base64 master key, generates a random data key of
// the same byte length and a random IV, and wraps the data key under the
// master key.
//
// smkID identifies the master key version and must parse as an integer.
func NewEnvelope(masterKeyB64, queryID, smkID string) (*Envelope, error) {
	master, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	if err := validKeyLength(len(master)); err != nil {
		return nil, err
	}

	smk, err := strconv.ParseInt(smkID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid smkId %q: %w", smkID, err)
	}

	key := make([]byte, len(master))
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	wrapped, err := wrapKey(master, key)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	return &Envelope{
		key:        key,
		iv:         iv,
		wrappedKey: wrapped,
		queryID:    queryID,
		smkID:      smk,
		keyBits:    len(master) * 8,
	}, nil
}

// EncryptWriter returns a stream cipher writing AES-CBC ciphertext keyed by
// the envelope's data key and IV to dst. Close finalizes the PKCS7 padding;
// nothing valid exists on dst until Close returns.
func (e *Envelope) EncryptWriter(dst io.Writer) (io.WriteCloser, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &cbcWriter{
		dst:  dst,
		mode: cipher.NewCBCEncrypter(block, e.iv),
	}, nil
}

// WrappedKeyBase64 returns the wrapped data key, base64-encoded.
func (e *Envelope) WrappedKeyBase64() string {
	return base64.StdEncoding.EncodeToString(e.wrappedKey)
}

// IVBase64 returns the IV, base64-encoded.
func (e *Envelope) IVBase64() string {
	return base64.StdEncoding.EncodeToString(e.iv)
}

// KeySizeBits returns the data key length in bits.
func (e *Envelope) KeySizeBits() int {
	return e.keyBits
}

// NewDecryptReader unwraps the data key from base64 metadata fields and
// returns a reader that lazily decrypts src through AES-CBC, removing the
// PKCS7 padding at end of stream.
func NewDecryptReader(src io.Reader, masterKeyB64, wrappedKeyB64, ivB64 string) (io.Reader, error) {
	key, err := UnwrapKey(masterKeyB64, wrappedKeyB64)
	if err != nil {
		return nil, err
	}

	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode IV: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &cbcReader{
		src:  src,
		mode: cipher.NewCBCDecrypter(block, iv),
	}, nil
}

// UnwrapKey decodes the master key and the wrapped data key and reverses the
// wrap operation. A wrong master key surfaces as a padding error; it never
// silently yields a wrong key of valid shape.
func UnwrapKey(masterKeyB64, wrappedKeyB64 string) ([]byte, error) {
	master, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	if err := validKeyLength(len(master)); err != nil {
		return nil, err
	}

	wrapped, err := base64.StdEncoding.DecodeString(wrappedKeyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wrapped key: %w", err)
	}

	key, err := unwrapKey(master, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap data key: %w", err)
	}
	return key, nil
}

// wrapKey encrypts the data key under the master key using AES-ECB with
// PKCS7 padding. ECB is safe here: the plaintext is a single random key, so
// there are no repeating blocks to leak.
func wrapKey(master, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(master)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(key, aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return out, nil
}

// unwrapKey is the inverse of wrapKey.
func unwrapKey(master, wrapped []byte) ([]byte, error) {
	if len(wrapped) == 0 || len(wrapped)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("wrapped key length (%d) must be a non-zero multiple of %d", len(wrapped), aes.BlockSize)
	}

	block, err := aes.NewCipher(master)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(wrapped))
	for i := 0; i < len(wrapped); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], wrapped[i:i+aes.BlockSize])
	}
	return pkcs7Unpad(out)
}

func validKeyLength(n int) error {
	switch n {
	case 16, 24, 32:
		return nil
	}
	return fmt.Errorf("master key must be 16, 24 or 32 bytes, got %d", n)
}

// pkcs7Pad applies PKCS7 padding to the data.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padText := make([]byte, padding)
	for i := range padText {
		padText[i] = byte(padding)
	}
	return append(data, padText...)
}

// pkcs7Unpad removes PKCS7 padding, verifying every padding byte.
func pkcs7Unpad(data []byte) ([]byte, error) {
	length := len(data)
	if length == 0 {
		return nil, fmt.Errorf("invalid padding: empty data")
	}
	padding := int(data[length-1])
	if padding > length || padding > aes.BlockSize || padding == 0 {
		return nil, fmt.Errorf("invalid padding size: %d", padding)
	}
	for i := 0; i < padding; i++ {
		if data[length-1-i] != byte(padding) {
			return nil, fmt.Errorf("invalid padding byte at position %d", i)
		}
	}
	return data[:length-padding], nil
}

package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
)

// cbcWriter encrypts a stream with AES-CBC, holding back the partial tail
// block between writes. Close pads the remainder (PKCS7) and flushes the
// final block; an empty stream still produces one full padding block.
type cbcWriter struct {
	dst    io.Writer
	mode   cipher.BlockMode
	rem    []byte
	closed bool
}

func (w *cbcWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write after close")
	}

	w.rem = append(w.rem, p...)
	nb := len(w.rem) / aes.BlockSize * aes.BlockSize
	if nb > 0 {
		enc := make([]byte, nb)
		w.mode.CryptBlocks(enc, w.rem[:nb])
		if _, err := w.dst.Write(enc); err != nil {
			return 0, fmt.Errorf("failed to write ciphertext: %w", err)
		}
		w.rem = w.rem[nb:]
	}
	return len(p), nil
}

func (w *cbcWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	padded := pkcs7Pad(w.rem, aes.BlockSize)
	enc := make([]byte, len(padded))
	w.mode.CryptBlocks(enc, padded)
	w.rem = nil

	if _, err := w.dst.Write(enc); err != nil {
		return fmt.Errorf("failed to write final ciphertext: %w", err)
	}
	return nil
}

// cbcReader lazily decrypts an AES-CBC stream. The last decrypted block is
// withheld from callers until the source reports EOF, because it carries the
// PKCS7 padding.
type cbcReader struct {
	src  io.Reader
	mode cipher.BlockMode
	rbuf []byte
	in   []byte // ciphertext waiting for a complete block
	out  []byte // plaintext not yet returned
	eof  bool   // source drained and padding removed
	err  error
}

func (r *cbcReader) Read(p []byte) (int, error) {
	for r.avail() == 0 && !r.eof {
		if r.err != nil {
			return 0, r.err
		}
		if err := r.fill(); err != nil {
			r.err = err
			return 0, err
		}
	}

	n := r.avail()
	if n == 0 {
		return 0, io.EOF
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.out[:n])
	r.out = r.out[n:]
	return n, nil
}

// avail reports how many plaintext bytes may be released. Before EOF the
// final block stays withheld for unpadding.
func (r *cbcReader) avail() int {
	if r.eof {
		return len(r.out)
	}
	if len(r.out) > aes.BlockSize {
		return len(r.out) - aes.BlockSize
	}
	return 0
}

func (r *cbcReader) fill() error {
	if r.rbuf == nil {
		r.rbuf = make([]byte, 32*1024)
	}

	n, err := r.src.Read(r.rbuf)
	if n > 0 {
		r.in = append(r.in, r.rbuf[:n]...)
		nb := len(r.in) / aes.BlockSize * aes.BlockSize
		if nb > 0 {
			dec := make([]byte, nb)
			r.mode.CryptBlocks(dec, r.in[:nb])
			r.out = append(r.out, dec...)
			r.in = r.in[nb:]
		}
	}

	if err == io.EOF {
		if len(r.in) != 0 {
			return fmt.Errorf("ciphertext length is not a multiple of %d", aes.BlockSize)
		}
		unpadded, uerr := pkcs7Unpad(r.out)
		if uerr != nil {
			return fmt.Errorf("failed to remove padding: %w", uerr)
		}
		r.out = unpadded
		r.eof = true
		return nil
	}
	return err
}

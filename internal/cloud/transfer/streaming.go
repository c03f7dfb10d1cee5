// Package transfer provides the stream-wrapping and partition fan-out
// helpers composed by every provider variant. Keeping them here, stateless,
// avoids shared mutable base state between the variants.
package transfer

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	encryption "github.com/stagelink/stagelink/internal/crypto"
)

// ContentEncodingGzip is the Content-Encoding value stamped on compressed
// objects. The uppercase spelling is a wire contract shared with objects
// written by other clients.
const ContentEncodingGzip = "GZIP"

// CommitFunc receives the finished object body exactly once, when the upload
// stream is closed.
type CommitFunc func(body []byte) error

// uploadStream implements buffer-then-commit upload semantics. Writes pass
// through optional gzip compression, then the envelope's stream cipher, into
// an in-memory buffer. Close finalizes compression and padding and hands the
// complete body to commit; nothing reaches the remote object before that.
type uploadStream struct {
	gz     *gzip.Writer
	enc    io.WriteCloser
	buf    *bytes.Buffer
	commit CommitFunc
	closed bool
}

// NewUploadStream builds the write pipeline for one object. env may be nil
// for unencrypted stages, in which case bytes (still optionally compressed)
// are buffered as-is.
func NewUploadStream(env *encryption.Envelope, compress bool, commit CommitFunc) (io.WriteCloser, error) {
	buf := &bytes.Buffer{}

	var enc io.WriteCloser
	if env != nil {
		var err error
		enc, err = env.EncryptWriter(buf)
		if err != nil {
			return nil, err
		}
	} else {
		enc = nopWriteCloser{buf}
	}

	us := &uploadStream{
		enc:    enc,
		buf:    buf,
		commit: commit,
	}
	if compress {
		us.gz = gzip.NewWriter(enc)
	}
	return us, nil
}

func (s *uploadStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("write to closed upload stream")
	}
	if s.gz != nil {
		return s.gz.Write(p)
	}
	return s.enc.Write(p)
}

// Close is the single commit point of the upload.
func (s *uploadStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			return fmt.Errorf("failed to finalize compression: %w", err)
		}
	}
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize encryption: %w", err)
	}
	return s.commit(s.buf.Bytes())
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// DecryptFunc wraps a raw remote stream with the decrypting reader for the
// object's envelope, or returns it unchanged for unencrypted objects.
type DecryptFunc func(raw io.Reader) (io.Reader, error)

// downloadStream chains raw → decrypt → gunzip and closes the chain in
// reverse order.
type downloadStream struct {
	io.Reader
	closers []io.Closer
}

func (s *downloadStream) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewDownloadStream builds the read pipeline for one object
// (innermost → outermost: raw, decrypt, decompress).
func NewDownloadStream(raw io.ReadCloser, decrypt DecryptFunc, compress bool) (io.ReadCloser, error) {
	r, err := decrypt(raw)
	if err != nil {
		raw.Close()
		return nil, err
	}

	closers := []io.Closer{}
	if compress {
		gz, err := gzip.NewReader(r)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		r = gz
		closers = append(closers, gz)
	}
	closers = append(closers, raw)

	return &downloadStream{Reader: r, closers: closers}, nil
}

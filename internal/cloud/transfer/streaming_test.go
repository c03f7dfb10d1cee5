package transfer

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	encryption "github.com/stagelink/stagelink/internal/crypto"
)

func testMasterKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate master key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

// TestUploadDownloadRoundTrip runs a payload through the full write pipeline
// and back through the read pipeline, with and without compression.
func TestUploadDownloadRoundTrip(t *testing.T) {
	master := testMasterKey(t)
	payload := bytes.Repeat([]byte("line of record data\n"), 1000)

	for _, compress := range []bool{false, true} {
		env, err := encryption.NewEnvelope(master, "q", "1")
		if err != nil {
			t.Fatalf("NewEnvelope failed: %v", err)
		}

		var committed []byte
		w, err := NewUploadStream(env, compress, func(body []byte) error {
			committed = body
			return nil
		})
		if err != nil {
			t.Fatalf("NewUploadStream failed: %v", err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if committed != nil {
			t.Fatal("body committed before Close")
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if committed == nil {
			t.Fatal("Close did not commit")
		}

		decrypt := func(raw io.Reader) (io.Reader, error) {
			return encryption.NewDecryptReader(raw, master, env.WrappedKeyBase64(), env.IVBase64())
		}
		r, err := NewDownloadStream(io.NopCloser(bytes.NewReader(committed)), decrypt, compress)
		if err != nil {
			t.Fatalf("NewDownloadStream failed: %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if err := r.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("compress=%v: round trip mismatch (%d bytes, want %d)", compress, len(got), len(payload))
		}
	}
}

// TestUploadStreamUnencrypted verifies a nil envelope buffers bytes as-is.
func TestUploadStreamUnencrypted(t *testing.T) {
	var committed []byte
	w, err := NewUploadStream(nil, false, func(body []byte) error {
		committed = body
		return nil
	})
	if err != nil {
		t.Fatalf("NewUploadStream failed: %v", err)
	}
	if _, err := w.Write([]byte("plain bytes")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if string(committed) != "plain bytes" {
		t.Errorf("committed = %q, want %q", committed, "plain bytes")
	}
}

// TestUploadStreamCloseSemantics covers the single-commit invariant.
func TestUploadStreamCloseSemantics(t *testing.T) {
	commits := 0
	w, err := NewUploadStream(nil, false, func([]byte) error {
		commits++
		return nil
	})
	if err != nil {
		t.Fatalf("NewUploadStream failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if commits != 1 {
		t.Errorf("commit ran %d times, want 1", commits)
	}
	if _, err := w.Write([]byte("late")); err == nil {
		t.Error("Write after Close succeeded")
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

// TestDownloadStreamClosesRaw verifies the raw stream is released when the
// pipeline is closed, and on construction failure.
func TestDownloadStreamClosesRaw(t *testing.T) {
	passthrough := func(raw io.Reader) (io.Reader, error) { return raw, nil }

	raw := &closeRecorder{Reader: bytes.NewReader([]byte("data"))}
	r, err := NewDownloadStream(raw, passthrough, false)
	if err != nil {
		t.Fatalf("NewDownloadStream failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !raw.closed {
		t.Error("raw stream not closed")
	}

	// Not gzip data, so the gzip header read fails and raw must be closed.
	bad := &closeRecorder{Reader: bytes.NewReader([]byte("not gzip"))}
	if _, err := NewDownloadStream(bad, passthrough, true); err == nil {
		t.Error("NewDownloadStream accepted invalid gzip data")
	}
	if !bad.closed {
		t.Error("raw stream not closed after construction failure")
	}
}

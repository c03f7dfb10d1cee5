package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stagelink/stagelink/internal/cloud"
	"github.com/stagelink/stagelink/internal/cloud/providers/azure"
	"github.com/stagelink/stagelink/internal/cloud/providers/s3"
	"github.com/stagelink/stagelink/internal/cloud/stage"
	"github.com/stagelink/stagelink/internal/config"
)

// fakeSession returns a canned stage mapping.
type fakeSession struct {
	info *stage.Info
	err  error
}

func (s *fakeSession) CreateStage(ctx context.Context, name, locationURL string, credentials map[string]string, temporary bool) error {
	return nil
}

func (s *fakeSession) Exec(ctx context.Context, query string) error {
	return nil
}

func (s *fakeSession) StageInfo(ctx context.Context, isWrite bool, targetFile string) (*stage.Info, error) {
	return s.info, s.err
}

// TestNewInternalStorage checks variant selection by stage type.
func TestNewInternalStorage(t *testing.T) {
	cfg := config.Default()
	ctx := context.Background()

	t.Run("S3 stage", func(t *testing.T) {
		sess := &fakeSession{info: &stage.Info{Type: stage.TypeS3}}
		storage, err := NewInternalStorage(ctx, cfg, sess)
		if err != nil {
			t.Fatalf("NewInternalStorage failed: %v", err)
		}
		if _, ok := storage.(*s3.Internal); !ok {
			t.Errorf("storage is %T, want *s3.Internal", storage)
		}
	})

	t.Run("Azure stage", func(t *testing.T) {
		sess := &fakeSession{info: &stage.Info{Type: stage.TypeAzure}}
		storage, err := NewInternalStorage(ctx, cfg, sess)
		if err != nil {
			t.Fatalf("NewInternalStorage failed: %v", err)
		}
		if _, ok := storage.(*azure.Internal); !ok {
			t.Errorf("storage is %T, want *azure.Internal", storage)
		}
	})

	t.Run("unsupported stage type", func(t *testing.T) {
		sess := &fakeSession{info: &stage.Info{Type: "GCS"}}
		if _, err := NewInternalStorage(ctx, cfg, sess); !errors.Is(err, cloud.ErrUnsupportedProvider) {
			t.Errorf("error = %v, want ErrUnsupportedProvider", err)
		}
	})

	t.Run("nil session", func(t *testing.T) {
		if _, err := NewInternalStorage(ctx, cfg, nil); err == nil {
			t.Error("NewInternalStorage accepted a nil session")
		}
	})

	t.Run("session failure", func(t *testing.T) {
		sess := &fakeSession{err: errors.New("connection refused")}
		if _, err := NewInternalStorage(ctx, cfg, sess); err == nil {
			t.Error("session failure not surfaced")
		}
	})
}

// TestNewStorage covers the URL-driven variant dispatch.
func TestNewStorage(t *testing.T) {
	cfg := config.Default()
	ctx := context.Background()

	t.Run("external S3", func(t *testing.T) {
		creds := map[string]string{
			stage.CredAWSKeyID:     "k",
			stage.CredAWSSecretKey: "s",
		}
		storage, err := NewStorage(ctx, cfg, "s3a://bucket1/prefix", creds, nil)
		if err != nil {
			t.Fatalf("NewStorage failed: %v", err)
		}
		if _, ok := storage.(*s3.External); !ok {
			t.Errorf("storage is %T, want *s3.External", storage)
		}
	})

	t.Run("external S3 missing credentials", func(t *testing.T) {
		_, err := NewStorage(ctx, cfg, "s3://bucket1", map[string]string{}, nil)
		var credErr *cloud.CredentialError
		if !errors.As(err, &credErr) {
			t.Errorf("error = %v, want *cloud.CredentialError", err)
		}
	})

	t.Run("external blob", func(t *testing.T) {
		creds := map[string]string{stage.CredAzureSAS: "sig=x"}
		storage, err := NewStorage(ctx, cfg, "wasbs://cont@acct.blob.core.windows.net/p", creds, nil)
		if err != nil {
			t.Fatalf("NewStorage failed: %v", err)
		}
		if _, ok := storage.(*azure.External); !ok {
			t.Errorf("storage is %T, want *azure.External", storage)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		if _, err := NewStorage(ctx, cfg, "wasbs://broken", nil, nil); err == nil {
			t.Error("NewStorage accepted an invalid URL")
		}
	})

	t.Run("internal via session", func(t *testing.T) {
		sess := &fakeSession{info: &stage.Info{Type: stage.TypeS3}}
		storage, err := NewStorage(ctx, cfg, "@my_stage", nil, sess)
		if err != nil {
			t.Fatalf("NewStorage failed: %v", err)
		}
		if _, ok := storage.(*s3.Internal); !ok {
			t.Errorf("storage is %T, want *s3.Internal", storage)
		}
	})
}

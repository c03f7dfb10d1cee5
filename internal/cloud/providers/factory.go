package providers

import (
	"context"
	"fmt"

	"github.com/stagelink/stagelink/internal/cloud"
	"github.com/stagelink/stagelink/internal/cloud/providers/azure"
	"github.com/stagelink/stagelink/internal/cloud/providers/s3"
	"github.com/stagelink/stagelink/internal/cloud/stage"
	"github.com/stagelink/stagelink/internal/config"
	"github.com/stagelink/stagelink/internal/session"
)

// NewStorage resolves a root storage URL and constructs the matching
// provider variant. External URLs carry their coordinates and require the
// given static credentials; anything else is an internal stage whose
// coordinates come from the engine session.
func NewStorage(ctx context.Context, cfg *config.Config, rawURL string, credentials map[string]string, sess session.Session) (cloud.StageStorage, error) {
	loc := ParseLocation(rawURL)

	switch loc.Kind {
	case KindExternalS3:
		return s3.NewExternal(cfg, loc.Bucket, loc.Path, credentials)

	case KindExternalBlob:
		return azure.NewExternal(cfg, loc.Container, loc.Account, loc.Endpoint, loc.Path, credentials)

	case KindInternal:
		return NewInternalStorage(ctx, cfg, sess)

	default:
		return nil, fmt.Errorf("invalid stage URL %q", rawURL)
	}
}

// NewInternalStorage constructs the provider for an internal stage. The
// stage type is learned from the session's stage metadata.
func NewInternalStorage(ctx context.Context, cfg *config.Config, sess session.Session) (cloud.StageStorage, error) {
	if sess == nil {
		return nil, fmt.Errorf("internal stages require an engine session")
	}

	info, err := sess.StageInfo(ctx, false, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stage metadata: %w", err)
	}

	switch info.Type {
	case stage.TypeS3:
		return s3.NewInternal(cfg, sess), nil
	case stage.TypeAzure:
		return azure.NewInternal(cfg, sess), nil
	default:
		return nil, fmt.Errorf("%w: %s", cloud.ErrUnsupportedProvider, info.Type)
	}
}

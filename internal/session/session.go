// Package session declares the SQL-session collaborator consumed by the
// storage providers. The session implementation lives with the engine
// integration; this layer only depends on the interface.
package session

import (
	"context"

	"github.com/stagelink/stagelink/internal/cloud/stage"
)

// Session is the engine's SQL session. Internal stages resolve their
// coordinates, ephemeral credentials and master key through it.
type Session interface {
	// CreateStage creates a (temporary) named stage backed by the given
	// location URL and credentials.
	CreateStage(ctx context.Context, name, locationURL string, credentials map[string]string, temporary bool) error

	// Exec runs a SQL statement synchronously.
	Exec(ctx context.Context, query string) error

	// StageInfo resolves the ephemeral stage mapping for one operation:
	// credentials, master key, query and master-key IDs, normalized prefix
	// and, for reads, the list of remote objects currently available.
	StageInfo(ctx context.Context, isWrite bool, targetFile string) (*stage.Info, error)
}

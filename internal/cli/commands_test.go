package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/stagelink/stagelink/internal/config"
	"github.com/stagelink/stagelink/internal/logging"
)

// TestCommandStructure checks each subcommand is wired with a run function
// and argument bounds.
func TestCommandStructure(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		use  string
	}{
		{"put", newPutCmd(), "put"},
		{"get", newGetCmd(), "get"},
		{"ls", newLsCmd(), "ls"},
		{"rm", newRmCmd(), "rm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cmd == nil {
				t.Fatal("command constructor returned nil")
			}
			if !strings.HasPrefix(tt.cmd.Use, tt.use) {
				t.Errorf("Use = %q, want prefix %q", tt.cmd.Use, tt.use)
			}
			if tt.cmd.Short == "" {
				t.Error("Short description is empty")
			}
			if tt.cmd.RunE == nil {
				t.Error("RunE function is nil")
			}
			if tt.cmd.Args == nil {
				t.Error("Args validator is nil")
			}
		})
	}
}

// TestOpenStorageRejectsInternalURLs verifies the CLI refuses stage
// references that need an engine session.
func TestOpenStorageRejectsInternalURLs(t *testing.T) {
	cfg = config.Default()
	logger = logging.NewDefaultLogger()

	for _, rawURL := range []string{"@my_stage", "plain/path", ""} {
		if _, err := openStorage(context.Background(), rawURL); err == nil {
			t.Errorf("openStorage(%q) succeeded, want error", rawURL)
		}
	}
}

// TestRootCommandWiring checks the root command carries the subcommands and
// global flags.
func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	want := map[string]bool{"put": false, "get": false, "ls": false, "rm": false}
	for _, c := range root.Commands() {
		name := strings.Fields(c.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"verbose", "parallelism", "max-download-retries", "proxy-mode", "no-proxy"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag %q missing", flag)
		}
	}
}

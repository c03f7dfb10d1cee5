package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stagelink/stagelink/internal/cloud"
	"github.com/stagelink/stagelink/internal/cloud/providers"
	"github.com/stagelink/stagelink/internal/cloud/stage"
	"github.com/stagelink/stagelink/internal/progress"
)

// credentialEnvKeys are read from the environment into the stage credential
// map, under the same names.
var credentialEnvKeys = []string{
	stage.CredAWSKeyID,
	stage.CredAWSSecretKey,
	stage.CredAWSToken,
	stage.CredAWSRegion,
	stage.CredAzureSAS,
	stage.CredMasterKey,
}

func credentialsFromEnv() map[string]string {
	creds := make(map[string]string)
	for _, key := range credentialEnvKeys {
		if v := os.Getenv(key); v != "" {
			creds[key] = v
		}
	}
	return creds
}

// openStorage constructs the provider for an external stage URL. The CLI has
// no engine session, so internal stage URLs are rejected.
func openStorage(ctx context.Context, rawURL string) (cloud.StageStorage, error) {
	logger.Debug().Str("url", rawURL).Msg("resolving stage")
	if providers.ParseLocation(rawURL).Kind == providers.KindInternal {
		return nil, fmt.Errorf("%q is not an external stage URL (expected s3:// or wasbs://)", rawURL)
	}
	return providers.NewStorage(ctx, cfg, rawURL, credentialsFromEnv(), nil)
}

func newPutCmd() *cobra.Command {
	var dir string
	var compress bool

	cmd := &cobra.Command{
		Use:   "put <stage-url> <local-file> [remote-name]",
		Short: "Upload a file to an external stage",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			storage, err := openStorage(ctx, args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer f.Close()

			stat, err := f.Stat()
			if err != nil {
				return err
			}

			name := filepath.Base(args[1])
			if len(args) == 3 {
				name = args[2]
			}

			w, err := storage.UploadStream(ctx, name, dir, compress)
			if err != nil {
				return err
			}

			reporter := progress.New()
			reporter.Start(stat.Size(), "Uploading "+name)
			_, copyErr := io.Copy(w, progress.NewReader(f, reporter))
			closeErr := w.Close()
			reporter.Finish()
			if copyErr != nil {
				return copyErr
			}
			if closeErr != nil {
				return closeErr
			}

			logger.Info().Str("file", name).Int64("bytes", stat.Size()).Msg("upload complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Remote directory under the stage prefix")
	cmd.Flags().BoolVar(&compress, "gzip", false, "Gzip-compress before encryption")
	return cmd
}

func newGetCmd() *cobra.Command {
	var compress bool

	cmd := &cobra.Command{
		Use:   "get <stage-url> <remote-name> [local-file]",
		Short: "Download a file from an external stage",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			storage, err := openStorage(ctx, args[0])
			if err != nil {
				return err
			}
			name := args[1]

			local := filepath.Base(name)
			if len(args) == 3 {
				local = args[2]
			}

			r, err := storage.DownloadStream(ctx, name, compress)
			if err != nil {
				return err
			}
			defer r.Close()

			out, err := os.Create(local)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", local, err)
			}

			reporter := progress.New()
			reporter.Start(-1, "Downloading "+name)
			written, copyErr := io.Copy(out, progress.NewReader(r, reporter))
			closeErr := out.Close()
			reporter.Finish()
			if copyErr != nil {
				os.Remove(local)
				return copyErr
			}
			if closeErr != nil {
				os.Remove(local)
				return closeErr
			}

			logger.Info().Str("file", name).Str("local", local).Int64("bytes", written).Msg("download complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&compress, "gzip", false, "Gzip-decompress after decryption")
	return cmd
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <stage-url> [subdir]",
		Short: "List files on an external stage",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			storage, err := openStorage(ctx, args[0])
			if err != nil {
				return err
			}

			subDir := ""
			if len(args) == 2 {
				subDir = args[1]
			}

			names, err := storage.ListFiles(ctx, subDir)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <stage-url> <name>...",
		Short: "Delete files from an external stage",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			storage, err := openStorage(ctx, args[0])
			if err != nil {
				return err
			}

			names := args[1:]
			if err := storage.DeleteFiles(ctx, names); err != nil {
				return err
			}
			logger.Info().Int("count", len(names)).Msg("files deleted")
			return nil
		},
	}
}

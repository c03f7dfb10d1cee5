// Package cli provides the command-line interface for stagelink.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stagelink/stagelink/internal/config"
	"github.com/stagelink/stagelink/internal/http"
	"github.com/stagelink/stagelink/internal/logging"
)

var (
	// Global flags
	verbose       bool
	parallelism   int
	maxRetries    int
	proxyMode     string
	proxyHost     string
	proxyPort     int
	proxyUser     string
	proxyPassword string
	noProxy       string

	// Global logger
	logger *logging.Logger

	// Global configuration built in PersistentPreRunE
	cfg *config.Config

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by the main package at startup.
var (
	Version   = "v1.2.0-dev"
	BuildTime = "2026-08-23"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stagelink",
		Short: "Encrypted object staging for external cloud storage",
		Long: `Stagelink ` + Version + ` - Built: ` + BuildTime + `
Moves files and record sets between the local machine and external
S3-style or blob-style stages, with client-side envelope encryption.

Stage URLs:
  s3://bucket/path          s3a://, s3n:// are accepted aliases
  wasbs://container@account.blob.core.windows.net/path

Credentials come from flags or from the AWS_KEY_ID, AWS_SECRET_KEY,
AWS_TOKEN, AWS_REGION, AZURE_SAS_TOKEN and MASTER_KEY environment
variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = logging.NewDefaultLogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}

			var err error
			cfg, err = config.FromEnv()
			if err != nil {
				return err
			}

			// Flags override environment settings.
			if cmd.Flags().Changed("parallelism") {
				cfg.Parallelism = parallelism
			}
			if cmd.Flags().Changed("max-download-retries") {
				cfg.MaxDownloadRetries = maxRetries
			}
			if cmd.Flags().Changed("proxy-mode") {
				cfg.ProxyMode = proxyMode
			}
			if cmd.Flags().Changed("proxy-host") {
				cfg.ProxyHost = proxyHost
			}
			if cmd.Flags().Changed("proxy-port") {
				cfg.ProxyPort = proxyPort
			}
			if cmd.Flags().Changed("proxy-user") {
				cfg.ProxyUser = proxyUser
			}
			if cmd.Flags().Changed("proxy-password") {
				cfg.ProxyPassword = proxyPassword
			}
			if cmd.Flags().Changed("no-proxy") {
				cfg.NoProxy = noProxy
			}

			if http.NeedsProxyPassword(cfg) {
				password, err := promptProxyPassword(cfg.ProxyUser)
				if err != nil {
					return err
				}
				cfg.ProxyPassword = password
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().IntVar(&parallelism, "parallelism", 0, "Maximum connections per transport client")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-download-retries", 0, "Download attempt budget (1 or less disables retries)")
	rootCmd.PersistentFlags().StringVar(&proxyMode, "proxy-mode", "", "Proxy mode: no-proxy, system, basic or ntlm")
	rootCmd.PersistentFlags().StringVar(&proxyHost, "proxy-host", "", "Proxy host")
	rootCmd.PersistentFlags().IntVar(&proxyPort, "proxy-port", 0, "Proxy port")
	rootCmd.PersistentFlags().StringVar(&proxyUser, "proxy-user", "", "Proxy username")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (prompted when omitted)")
	rootCmd.PersistentFlags().StringVar(&noProxy, "no-proxy", "", "Comma-separated proxy bypass list")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newRmCmd())
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

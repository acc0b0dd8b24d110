// Package cli implements pagecmsctl, a command-line client that edits page
// settings and About page collections on a running pagecms server.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Environment variables read when the matching flag is not given.
const (
	EnvURL    = "PAGECMS_URL"
	EnvAPIKey = "PAGECMS_API_KEY"
)

const defaultURL = "http://localhost:8080"

var version = "dev"

// options are the persistent flags shared by every command.
type options struct {
	url          string
	apiKey       string
	defaultsPath string
	verbose      bool
}

// session is what a command needs to talk to the server.
type session struct {
	transport *pageform.HTTPTransport
	defaults  *pagedefaults.Table
	logger    *zap.Logger
}

// NewRootCommand builds the pagecmsctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pagecmsctl",
		Short: "Edit pagecms page settings from the command line",
		Long: `pagecmsctl reads and updates the settings of a running pagecms server.

It authenticates with the server's API key (Bearer token). The server URL
and key come from --url/--api-key or the PAGECMS_URL/PAGECMS_API_KEY
environment variables.`,
		SilenceUsage: true,
		Version:      version,
	}

	cmd.PersistentFlags().StringVar(&opts.url, "url", "", "Server base URL (default $"+EnvURL+" or "+defaultURL+")")
	cmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "API key (default $"+EnvAPIKey+")")
	cmd.PersistentFlags().StringVar(&opts.defaultsPath, "defaults", "", "YAML file merged over the built-in page defaults")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stderr")

	cmd.AddCommand(
		newPagesCommand(),
		newDefaultsCommand(opts),
		newShowCommand(opts),
		newSetCommand(opts),
		newEntitiesCommand(opts),
		newDeleteCommand(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// open resolves flags and environment into a session.
func (o *options) open() (*session, error) {
	url := firstNonEmpty(o.url, os.Getenv(EnvURL), defaultURL)
	key := firstNonEmpty(o.apiKey, os.Getenv(EnvAPIKey))

	defaults, err := pagedefaults.Load(o.defaultsPath)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
	}

	return &session{
		transport: pageform.NewHTTPTransport(url, key),
		defaults:  defaults,
		logger:    logger,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

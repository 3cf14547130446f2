// Package cli provides the cobra command surface for the doctag CLI.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driving"
	"github.com/custodia-labs/doctag-cli/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services wired in by main (or by tests).
var (
	analyzerService driving.Analyzer
	documentStore   driven.DocumentStore
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "doctag",
	Short: "AI-assisted document categorization for a document management inbox",
	Long: `doctag analyzes documents waiting in your document management inbox with a
locally installed CLI agent and suggests a title, tags, correspondent,
document type and storage path for each, reusing your existing taxonomy
wherever possible. Suggestions are reviewable and only written back with
--apply.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging to stderr")
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices wires the application services into the command tree.
func SetServices(analyzer driving.Analyzer, store driven.DocumentStore) {
	analyzerService = analyzer
	documentStore = store
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func requireServices() error {
	if analyzerService == nil || documentStore == nil {
		return errors.New("services not configured")
	}
	return nil
}

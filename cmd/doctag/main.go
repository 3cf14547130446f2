// Command doctag categorizes documents in a document-management inbox using
// a locally installed CLI agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	agentadapter "github.com/custodia-labs/doctag-cli/internal/adapters/driven/agent"
	"github.com/custodia-labs/doctag-cli/internal/adapters/driven/config/env"
	"github.com/custodia-labs/doctag-cli/internal/adapters/driven/paperless"
	"github.com/custodia-labs/doctag-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/doctag-cli/internal/core/services"
)

// version is overridden at build time with -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)

	// Configuration failures are fatal before any document is touched;
	// version and help still work without settings.
	if err := wireServices(); err != nil {
		fmt.Fprintf(os.Stderr, "doctag: %v\n", err)
		if !versionOrHelpRequested() {
			os.Exit(2)
		}
	}

	// An operator abort terminates any in-flight agent subprocess via
	// context cancellation; staged temp files are cleaned up on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "doctag: %v\n", err)
		}
		os.Exit(1)
	}
}

func wireServices() error {
	settings, err := env.Load("")
	if err != nil {
		return err
	}

	agent, err := agentadapter.New(settings.Agent)
	if err != nil {
		return err
	}

	store := paperless.NewClient(settings.Paperless)
	analyzer := services.NewAnalyzeService(store, agent, settings)
	cli.SetServices(analyzer, store)
	return nil
}

func versionOrHelpRequested() bool {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "version", "help", "--help", "-h":
			return true
		}
	}
	return false
}

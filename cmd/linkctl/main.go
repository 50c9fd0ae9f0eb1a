package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/readshelf/internal/bootstrap"
	"github.com/kirillkom/readshelf/internal/config"
	"github.com/kirillkom/readshelf/internal/core/ports"
	"github.com/kirillkom/readshelf/internal/observability/logging"
)

// services is the slice of the application the CLI needs.
type services struct {
	processor ports.DocumentProcessor
	library   ports.DocumentLibrary
	close     func()
}

type serviceFactory func(ctx context.Context) (*services, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(bootstrapServices).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func bootstrapServices(ctx context.Context) (*services, error) {
	cfg := config.Load()
	// stdout carries command output.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "linkctl", cfg.LogLevel))

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return &services{
		processor: app.ProcessUC,
		library:   app.LibraryUC,
		close:     app.Close,
	}, nil
}

func newRootCmd(factory serviceFactory) *cobra.Command {
	var svc *services

	rootCmd := &cobra.Command{
		Use:           "linkctl",
		Short:         "Manage the readshelf reading library",
		Long:          `linkctl processes web pages into the reading library and manages stored documents. Output is JSON.`,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			svc, err = factory(cmd.Context())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if svc != nil && svc.close != nil {
				svc.close()
			}
		},
	}

	current := func() *services { return svc }
	rootCmd.AddCommand(
		processCmd(current),
		listCmd(current),
		showCmd(current),
		statusCmd(current),
		deleteCmd(current),
	)
	return rootCmd
}

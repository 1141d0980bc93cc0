package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/annotext/linemark/internal/bridge"
	"github.com/annotext/linemark/internal/gitstatus"
	"github.com/annotext/linemark/internal/linemark"
)

// NewServeCommand runs the long-lived engine: branch poller, gate,
// filesystem watch, and the websocket bridge an editor plugin connects to.
func NewServeCommand(opts *RootOptions, config Config) *cobra.Command {
	addr := config.BridgeAddr
	interval := config.PollInterval

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation engine for editor integration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, addr, interval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "bridge listen address")
	cmd.Flags().DurationVar(&interval, "poll-interval", interval, "branch poll interval")
	return cmd
}

func runServe(opts *RootOptions, addr string, interval time.Duration) error {
	logger := log.Default()

	repo, err := gitstatus.Open(opts.Workspace)
	if err != nil {
		return err
	}
	core, err := linemark.NewCore(linemark.CoreOptions{
		WorkspaceRoot: opts.Workspace,
		NotesDir:      opts.NotesDir,
		TargetBranch:  opts.Branch,
		VCS:           repo,
		Notifier:      linemark.LogNotifier{Logger: logger},
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer core.Close()

	server := bridge.NewServer(core, logger)
	core.SetNotifier(server)
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := gitstatus.NewPoller(repo, interval, logger)
	go poller.Run(ctx, core.HandleBranchChange)

	httpServer := &http.Server{Addr: addr, Handler: server}
	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("linemark: bridge listening on %s (target branch %s)", addr, opts.Branch)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewStatusCommand prints the gate-relevant workspace state.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show branch, gating, and note-store state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := gitstatus.Open(opts.Workspace)
			if err != nil {
				return err
			}
			branch, err := repo.CurrentBranch()
			if err != nil {
				return err
			}
			pending, err := repo.UncommittedCount()
			if err != nil {
				return err
			}
			backend, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer backend.Close()
			all, err := backend.ListAll()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "branch:        %s\n", branch)
			fmt.Fprintf(out, "target:        %s\n", opts.Branch)
			fmt.Fprintf(out, "active:        %v\n", branch == opts.Branch)
			fmt.Fprintf(out, "uncommitted:   %d\n", pending)
			fmt.Fprintf(out, "stored notes:  %d\n", len(all))
			return nil
		},
	}
}

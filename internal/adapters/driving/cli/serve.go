package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aganswers/drivesync/internal/adapters/driving/webhook"
	"github.com/aganswers/drivesync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and background scheduler",
	Long: `Serves the ingestion callback and OAuth redirect endpoints and runs the
scheduled tasks (Drive sync, failed-record cleanup, pending-token cleanup)
until interrupted.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from CALLBACK_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestionTracker == nil {
		return notConfigured("ingestion tracker")
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.CallbackAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := webhook.NewServer(addr, ingestionTracker, tokenManager)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("webhook stop: %v", err)
		}
	}()
	cmd.Printf("Listening on %s\n", server.Addr())

	schedErr := make(chan error, 1)
	if scheduler != nil && settings.Scheduler.Enabled {
		go func() {
			schedErr <- scheduler.Start(ctx)
		}()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("scheduler stop: %v", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		cmd.Println("Shutting down...")
		return nil
	case err := <-server.Errors():
		return fmt.Errorf("webhook server: %w", err)
	case err := <-schedErr:
		if err != nil && !errors.Is(err, ctx.Err()) {
			return fmt.Errorf("scheduler: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// WebhookServer is the slice of the HTTP boundary the serve command needs.
type WebhookServer interface {
	ListenAndServe(ctx context.Context, addr string) error
}

var webhookServer WebhookServer

// SetWebhookServer injects the HTTP boundary used by the serve command.
func SetWebhookServer(s WebhookServer) {
	webhookServer = s
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the webhook and upload HTTP endpoints",
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8987", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if webhookServer == nil {
		return errors.New("webhook server not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Listening on %s\n", serveAddr)
	if err := webhookServer.ListenAndServe(ctx, serveAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

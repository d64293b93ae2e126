package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"applicant-assessment-service/internal/config"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	srv, err := buildServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	go srv.service.RunEviction(evictCtx, srv.sweep)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting assessment service on :%s (storage=%s, notifier=%s)", finalPort, cfg.Storage.Driver, cfg.Notify.Notifier)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	// pending notifications are drained by srv.Close
	return server.Shutdown(shutdownCtx)
}

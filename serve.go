package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"i4.energy/across/avrctl/avr"
)

// reconnectInterval is how often a lost receiver is dialed again.
const reconnectInterval = 5 * time.Second

func (c *cli) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the receiver through an HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	logger := c.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e, stop, err := c.newEngine(ctx)
	if err != nil {
		logger.Error("Failed to create engine", "error", err)
		return err
	}

	logger.Info("Starting receiver gateway", "series", c.model.Name, "port", c.config.SerialPort)
	go keepConnected(ctx, e, logger)

	httpServer := &http.Server{
		Addr: c.config.BindAddress,
		Handler: &Server{
			Logger:     logger.With("component", "server"),
			Controller: e,
			Model:      c.model,
		},
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig)
	case err := <-serveErr:
		logger.Error("HTTP server failed", "error", err)
		stop()
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Closing receiver connection")
	stop()
	return nil
}

// keepConnected dials the receiver whenever the engine is disconnected.
func keepConnected(ctx context.Context, e *avr.Engine, logger *slog.Logger) {
	for {
		if e.State() == avr.Disconnected {
			if err := e.Connect(ctx); err != nil {
				logger.Warn("Receiver not reachable", "error", err, "retry_in", reconnectInterval)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
		}
	}
}

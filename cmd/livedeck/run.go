package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/livedeck"
	"github.com/jpalmerr/livedeck/host"
)

const shutdownTimeout = 10 * time.Second

// runUntilSignal runs p on surface until SIGINT/SIGTERM or until the
// surface goes away, giving shutdown a bounded amount of time.
func runUntilSignal(p *livedeck.Plugin, surface host.Surface, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- p.Run(ctx, surface)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("livedeck error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("livedeck error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

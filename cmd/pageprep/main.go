// File: cmd/pageprep/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/wildmooseai/pageprep/cmd"
)

func main() {
	// Interrupts cancel the context so watchers and browser sessions
	// wind down instead of being killed mid-flight.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		os.Exit(1)
	}
}

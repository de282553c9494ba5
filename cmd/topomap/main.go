// Command topomap renders elevation grids as projected, colored terrain.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/banshee-data/topomap/internal/monitoring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		monitoring.L().Error("topomap failed", zap.Error(err))
	}
	monitoring.Sync()
	if err != nil {
		os.Exit(1)
	}
}

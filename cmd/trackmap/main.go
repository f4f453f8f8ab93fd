// Command trackmap turns walk recordings into the map site's GeoJSON and
// supporting artifacts.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/banshee-data/trackmap/internal/monitoring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		monitoring.Logger().Fatal("trackmap failed", zap.Error(err))
	}
}

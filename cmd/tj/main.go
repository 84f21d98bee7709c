// Command tj is the trade journal CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-journal/internal/cli"
	"trade-journal/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = "warn"
	logCfg.File = false
	logger := logging.NewLoggerWithConfig(logCfg)

	if err := cli.Execute(ctx, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

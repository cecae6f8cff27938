package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/financial-reconciliation-engine/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(cli.Options{})
	err := app.RootCommand().ExecuteContext(ctx)
	app.Close()
	if err != nil {
		os.Exit(1)
	}
}

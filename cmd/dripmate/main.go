package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dripmate/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, cli.BuildEnv)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

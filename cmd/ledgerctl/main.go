package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mugambi-md/Orion-sub000/cmd/ledgerctl/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.Connect).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

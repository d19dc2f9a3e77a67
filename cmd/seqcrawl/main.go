package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"covid-protein-crawler/cmd/seqcrawl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.Execute(ctx)
}

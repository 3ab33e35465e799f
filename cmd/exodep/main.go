package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/exodep/internal/cli"
)

func main() {
	// Cancel on interrupt so a run stops between lines and watch exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	cli.PrintError(os.Stderr, err)
	code := cli.GetExitCode(err)
	stop()
	os.Exit(code)
}

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/twcadmin/internal/cmd"
	"github.com/felixgeelhaar/twcadmin/internal/exitcode"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if stderrors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		noColor := os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd())
		ux.RenderError(os.Stderr, err, noColor)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}

// Package main is the entry point for the convoy CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relicta-tech/convoy/internal/cli"
	cverrors "github.com/relicta-tech/convoy/internal/errors"
	buildversion "github.com/relicta-tech/convoy/internal/version"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if version == "dev" {
		// Fallback for go install builds without ldflags.
		version = buildversion.Get()
	}
	cli.SetVersionInfo(version, commit, date)

	if err := cli.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Operation canceled")
			os.Exit(130)
		}
		// Provider errors can carry access tokens in their messages.
		fmt.Fprintf(os.Stderr, "Error: %v\n", cverrors.RedactError(err))
		os.Exit(1)
	}
}

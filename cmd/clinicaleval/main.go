// Package main implements the clinicaleval CLI: local and Temporal-backed
// evaluation of clinical entity extraction against gold annotations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version information
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

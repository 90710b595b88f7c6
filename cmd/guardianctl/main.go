// Command guardianctl manages a Guardian-protected smart account from the
// terminal and serves the agent tools over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/blndgs/guardian/guarderr"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		if kind := guarderr.KindOf(err); kind != guarderr.Unknown {
			fmt.Fprintln(os.Stderr, guarderr.UserMessage(err))
		}
		stop()
		os.Exit(1)
	}
}

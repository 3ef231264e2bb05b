package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"demoreel/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(services.ExitCode(err))
	}
}

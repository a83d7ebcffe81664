package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalfonso89/currency-converter/internal/cli"
	"github.com/dalfonso89/currency-converter/internal/config"
	"github.com/dalfonso89/currency-converter/internal/platform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading configuration: %v\n", err)
		os.Exit(cli.ExitFailure)
	}

	// Ctrl+C aborts an in-flight fetch
	ctx, stop := platform.NewShutdownContext(context.Background())
	exitCode := cli.Run(ctx, os.Args[1:], cfg, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/edalgrin/amdloader/internal/app"
	"github.com/edalgrin/amdloader/internal/cli"
	"github.com/edalgrin/amdloader/internal/hclconf"
)

// main is the entrypoint for the amdloader application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Instantiate the concrete HCL loader to pass to the app.
	cfgLoader := hclconf.NewLoader()
	loaderApp, err := app.New(outW, appConfig, cfgLoader)
	if err != nil {
		return err
	}

	return loaderApp.Run(context.Background())
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/multirelease/internal/app"
	"github.com/vk/multirelease/internal/cli"
)

// main is the entrypoint for the multirelease application.
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

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Engine registration panics on programmer error; recover here to turn
	// it into a clean exit message.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	a := app.New(outW, appConfig, nil)
	report, err := a.Run(context.Background())
	if err != nil {
		return err
	}

	if err := report.Write(outW); err != nil {
		return err
	}
	if failed := report.Failed(); failed > 0 {
		return &cli.ExitError{Code: 1, Message: fmt.Sprintf("%d unit(s) failed to release", failed)}
	}
	return nil
}

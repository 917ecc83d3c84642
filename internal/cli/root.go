package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/crateship/crateship/internal"
	"github.com/crateship/crateship/internal/sandbox"
)

// Represents the root command for the crateship CLI.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Build   BuildCmd   `cmd:"" default:"withargs" help:"Build and package the project for a target."`
	Targets TargetsCmd `cmd:"" help:"List supported target triples."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds a Rust project for AWS Lambda and packages deployable bundles.\n\nResolves the required toolchain, cross-compiles with bounded parallelism, and emits one zip bundle per function with the bootstrap entrypoint."),
		kong.UsageOnError(),
		kong.Vars{
			"containerd_address":   sandbox.DefaultAddress,
			"containerd_namespace": sandbox.DefaultNamespace,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	level := slog.LevelInfo
	if RootCmd.Debug {
		level = slog.LevelDebug
	} else if RootCmd.Quiet {
		level = slog.LevelWarn
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty(os.Stderr),
	})
	slog.SetDefault(slog.New(handler))
}

// Whether the given file is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

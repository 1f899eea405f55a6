// Package main is the entry point for the stormdbg debugger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/stormdbg/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		application.Shutdown()
		os.Exit(130)
	}()

	ctx := context.Background()
	if err := application.StartSession(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := application.Run(); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() app.Options {
	var opts app.Options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LaunchFile, "launch", "", "Path to launch configuration file")
	flag.StringVar(&opts.Adapter, "adapter", "", "Debug adapter type (delve, debugpy, gdb)")
	flag.StringVar(&opts.Adapter, "a", "", "Debug adapter type (shorthand)")
	flag.IntVar(&opts.Port, "port", 0, "Adapter listen port (socket adapters)")
	flag.StringVar(&opts.PluginDir, "plugins", "", "Plugin directory")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.TUI, "tui", false, "Show the full-screen context view on each stop")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "stormdbg - debugger front end with an AI assist command\n\n")
		fmt.Fprintf(os.Stderr, "Usage: stormdbg [options] [program]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  stormdbg ./crashme              Debug a native binary with gdb\n")
		fmt.Fprintf(os.Stderr, "  stormdbg -a delve main.go       Debug a Go program with delve\n")
		fmt.Fprintf(os.Stderr, "  stormdbg -launch launch.json    Use a launch configuration file\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("stormdbg %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() > 0 {
		opts.Program = flag.Arg(0)
	}
	return opts
}

package main

import (
	"context"
	stdliberrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set via ldflags during build
var (
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code. With no
// subcommand the server is started.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServeCommand(ctx, args, stderr)
	case "link":
		err = runLinkCommand(args, stdin, stdout, stderr)
	case "version", "--version", "-v":
		printVersion(stdout)
	case "help", "--help", "-h":
		printHelp(stdout)
	default:
		if len(cmd) > 0 && cmd[0] == '-' {
			// Flags without a subcommand belong to serve.
			err = runServeCommand(ctx, append([]string{cmd}, args...), stderr)
			break
		}
		printHelp(stderr)
		err = withExitCode(fmt.Errorf("unknown command %q", cmd), exitUsage)
	}

	if err != nil {
		if stdliberrors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}
	return exitOK
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "snaplist %s (commit %s, built %s)\n", version, commit, buildDate)
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `snaplist - marketplace listing automation

Usage:
  snaplist [serve] [flags]   run the HTTP control surface (default)
  snaplist link [flags]      print a manual posting payload for a listing
  snaplist version           print version information

Run "snaplist <command> -h" for command flags.
`)
}

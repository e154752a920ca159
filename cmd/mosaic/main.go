// Command mosaic computes pixel offsets for aligning a batch of exposures
// into a mosaic, and serves the same computation over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/mosaic.offsets/internal/version"
)

const usage = `usage: mosaic [command] [flags] [args]

commands:
  offsets   compute offsets for FITS files (or glob patterns) or a JSON header batch (default)
  qbits     convert pixel quality masks between 3-bit and 2-bit forms
  serve     run the HTTP API
  runs      list or show recorded runs
  version   print version information

Run 'mosaic <command> -h' for command flags.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := splitCommand(os.Args[1:])
	if err := run(ctx, cmd, args, os.Stdout); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// splitCommand separates the subcommand from its arguments. Anything that
// is not a known command name is treated as arguments to offsets.
func splitCommand(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "offsets", "qbits", "serve", "runs", "version", "help":
			return args[0], args[1:]
		}
	}
	return "offsets", args
}

func run(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "offsets":
		return runOffsets(args, stdout)
	case "qbits":
		return runQbits(args, stdout)
	case "serve":
		return runServe(ctx, args)
	case "runs":
		return runRuns(args, stdout)
	case "version":
		_, err := fmt.Fprintln(stdout, version.String())
		return err
	case "help":
		_, err := fmt.Fprint(stdout, usage)
		return err
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

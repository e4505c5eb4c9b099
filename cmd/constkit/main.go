// Command constkit manages a catalog of atomic constant values: it scans code for literals
// that duplicate catalog values, validates catalog rules, assembles catalog fragments,
// records review decisions and serves the catalog over HTTP
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"constkit/internal/core/version"
	"constkit/internal/platform/config"
	"constkit/internal/platform/logger"
)

// exit codes shared by every subcommand
const (
	exitOK       = 0
	exitFindings = 1
	exitFailure  = 2
)

const usage = `usage: constkit <command> [flags]

commands:
  scan <root>           find literals that duplicate catalog values
  validate              check the catalog's ordering, range, distinct and same rules
  pack                  assemble a catalog from core.yaml plus fragments
  review <fingerprint>  show or record a review decision
  serve                 serve the catalog over HTTP
  version               print build information

run "constkit <command> -h" for command flags
`

// env carries what every subcommand needs
type env struct {
	stdout io.Writer
	stderr io.Writer
	cfg    config.Conf
}

// fail prints a one-line diagnostic and returns the failure exit code
func (e env) fail(err error) int {
	_, _ = fmt.Fprintf(e.stderr, "constkit: %v\n", err)
	return exitFailure
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := logger.FromEnv()
	opts.Writer = stderr
	logger.Init(opts)

	e := env{stdout: stdout, stderr: stderr, cfg: config.App()}
	if len(args) == 0 {
		_, _ = io.WriteString(stderr, usage)
		return exitFailure
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "scan":
		return e.scan(ctx, rest)
	case "validate":
		return e.validate(ctx, rest)
	case "pack":
		return e.pack(rest)
	case "review":
		return e.review(ctx, rest)
	case "serve":
		return e.serve(ctx, rest)
	case "version":
		bi := version.Info()
		_, _ = fmt.Fprintf(stdout, "%s %s (%s, %s)\n", bi.Service, bi.Version, bi.Commit, bi.Date)
		return exitOK
	case "help", "-h", "--help":
		_, _ = io.WriteString(stdout, usage)
		return exitOK
	}
	_, _ = fmt.Fprintf(stderr, "constkit: unknown command %q\n\n%s", cmd, usage)
	return exitFailure
}

// newFlags returns a FlagSet that reports to stderr instead of exiting
func (e env) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("constkit "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// parseInterleaved parses flags that may appear before or after positional arguments
// (flag stops at the first non-flag), returning the positionals in order
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return pos, nil
		}
		pos = append(pos, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// flagErr turns a flag parse error into an exit code; -h is not a failure
func (e env) flagErr(err error) int {
	if err == flag.ErrHelp {
		return exitOK
	}
	return exitFailure
}

// catalogPath prefers the flag, then CONSTKIT_CATALOG; empty means the embedded catalog
func (e env) catalogPath(flagVal string) string {
	if s := strings.TrimSpace(flagVal); s != "" {
		return s
	}
	return e.cfg.MayString("CATALOG", "")
}

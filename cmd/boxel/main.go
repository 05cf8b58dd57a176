// Command boxel bundles inscription projects and works with exported scenes
// from the command line.
//
//	boxel bundle <dir> [-o out.html]
//	boxel export [-format json|jsx|html] <scene.json>
//	boxel estimate [-optimization level] [-format fmt] <scene.json>
//	boxel script [-format json|jsx] <file.lisp>
//	boxel serve [-addr host:port] <dir>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"

	"github.com/chazu/boxel/pkg/budget"
	"github.com/chazu/boxel/pkg/config"
)

const usage = `usage: boxel <command> [flags] [args]

commands:
  bundle    bundle a project directory into one HTML file
  export    convert a scene file to json, jsx or html
  estimate  estimate the inscription size of a scene file
  script    run a scripting-console file and print the objects
  serve     run the studio build server for a project directory
`

// cli carries what every command needs.
type cli struct {
	cfg    config.Config
	out    *termenv.Output
	stderr io.Writer
	log    *slog.Logger
}

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"bundle":   runBundle,
	"export":   runExport,
	"estimate": runEstimate,
	"script":   runScript,
	"serve":    runServe,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("boxel", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	cfgPath := global.String("config", "", "config file (default ~/.config/boxel/config.toml)")
	verbose := global.Bool("v", false, "verbose logging")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}
	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "boxel: unknown command %q\n\n", name)
		global.Usage()
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "boxel: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{cfg: cfg, out: termenv.NewOutput(stdout), stderr: stderr, log: logger}
	if err := cmd(ctx, c, rest); err != nil {
		if err == flag.ErrHelp {
			return 2
		}
		fmt.Fprintf(stderr, "boxel %s: %v\n", name, err)
		return 1
	}
	return 0
}

// flags returns a flag set for a sub-command that reports to stderr.
func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("boxel "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// statusColor maps a size status to a terminal colour.
func (c *cli) statusColor(s budget.Status) termenv.Color {
	switch s {
	case budget.StatusSuccess:
		return c.out.Color("2")
	case budget.StatusWarning:
		return c.out.Color("3")
	default:
		return c.out.Color("1")
	}
}

// printReport writes a one-line size summary.
func (c *cli) printReport(label string, r budget.Report) {
	status := c.out.String(string(r.Status)).Foreground(c.statusColor(r.Status)).Bold()
	fmt.Fprintf(c.out, "%s: %.1f KB of %.0f KB (%.0f%%) %s\n", label, r.SizeKB, r.MaxSizeKB, r.Percent, status)
}

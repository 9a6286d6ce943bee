package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sapients/tracker/cmd/jobsctl/cli"
	"github.com/sapients/tracker/internal/app"
)

const usage = `usage: jobsctl <command> [flags]

commands:
  trigger <task>   enqueue sessions:sweep or push:broadcast
  stats            show default queue counters
  scheduled        list scheduled tasks
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := cli.NewJobsCLI(cfg.AsynqRedisOpt())
	defer func() {
		if err := c.Close(); err != nil {
			slog.Default().Warn("close jobs cli", slog.Any("error", err))
		}
	}()

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON")

	switch args[0] {
	case "trigger":
		grace := fs.Duration("grace", cfg.SessionSweepGrace, "sweep grace period")
		title := fs.String("title", "", "broadcast title")
		body := fs.String("body", "", "broadcast body")
		url := fs.String("url", "", "broadcast link")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			_, _ = fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return c.TriggerCommand(ctx, fs.Arg(0), cli.TriggerOptions{Grace: *grace, Title: *title, Body: *body, URL: *url}, cli.Output{JSON: *jsonOut})
	case "stats":
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return c.StatsCommand(cli.Output{JSON: *jsonOut})
	case "scheduled":
		size := fs.Int("size", 10, "page size")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return c.ScheduledCommand(*size, cli.Output{JSON: *jsonOut})
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

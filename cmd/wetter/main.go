package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/i474232898/wetter/internal/app"
	"github.com/i474232898/wetter/internal/config"
	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/scheduler"
)

const version = "0.4.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && (args[0] == "-v" || args[0] == "--version") {
		fmt.Fprintf(stdout, "wetter %s\n", version)
		return 0
	}

	cmd, err := parseArgs(args, stderr)
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		fmt.Fprint(stderr, usage)
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		fmt.Fprint(stderr, usage)
		return 2
	}

	if cmd.name == "configure" && cmd.configure != "config" {
		return configure(cmd, stdout, stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	log, closer := newLogger(cfg)
	defer closer.Close()
	log.Infof("starting %s", cmd.name)

	if cmd.name == "configure" {
		fmt.Fprintln(stdout, "Configuration path:", cfg.ConfigPath)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Errorf("open: %v", err)
		fmt.Fprintf(stderr, "failed to open store: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := dispatch(ctx, cmd, a, log, stdout); err != nil {
		log.Errorf("%s: %v", cmd.name, err)
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cmd command, a *app.App, log *logger.Logger, stdout io.Writer) error {
	now := a.Now()
	loc := now.Location()
	q, st := a.Query(), a.Store()

	latest, err := q.LatestDatapoint(st, now)
	if err != nil {
		return err
	}

	switch cmd.name {
	case "latest":
		printLatest(stdout, latest, loc)

	case "update":
		results, err := a.Update(ctx, cmd.historical)
		if err != nil {
			return err
		}
		added := 0
		for _, r := range results {
			added += r.Added
		}
		fmt.Fprintf(stdout, "Update successful! %d new measurements, %d in total.\n", added, st.Size())

	case "compare":
		switch cmd.compare {
		case "week":
			window, err := q.LastWeek(st, now)
			if err != nil {
				return err
			}
			printComparison(stdout, latest, window, "week", loc)
		case "month":
			window, err := q.LastMonth(st, now)
			if err != nil {
				return err
			}
			printComparison(stdout, latest, window, "month", loc)
		case "year":
			window, err := q.LastYear(st, now)
			if err != nil {
				return err
			}
			printComparison(stdout, latest, window, "year", loc)
		case "detailed":
			window, err := q.SpecificMonth(st, now, time.Month(cmd.month))
			if err != nil {
				return err
			}
			printDetailed(stdout, window, loc)
		}

	case "serve":
		return serve(ctx, a, log)

	case "schedule":
		sched := scheduler.New(a, a.Config().UpdateInterval, a.Config().HTTPTimeout*4, log)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
		<-ctx.Done()

	default:
		return fmt.Errorf("unknown subcommand %q", cmd.name)
	}
	return nil
}

func configure(cmd command, stdout, stderr io.Writer) int {
	switch cmd.configure {
	case "systemd":
		unit, err := systemdService(currentUser())
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		fmt.Fprint(stdout, unit)
	case "systemdtimer":
		fmt.Fprint(stdout, systemdTimer)
	}
	return 0
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(cfg *config.AppConfig) (*logger.Logger, io.Closer) {
	if cfg.LogToStderr {
		return logger.New(os.Stderr, cfg.LogLevel), nopCloser{}
	}
	return logger.NewRotating(cfg.LogPath, cfg.LogLevel)
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

type command struct {
	name string

	historical bool // update

	// compare: one of "week", "month", "year" or "detailed" with month set
	compare string
	month   int

	// configure: one of "systemd", "systemdtimer", "config"
	configure string
}

var errUsage = errors.New("usage")

// parseArgs turns the command line (without the program name) into a
// command. No subcommand means "latest".
func parseArgs(args []string, stderr io.Writer) (command, error) {
	if len(args) == 0 {
		return command{name: "latest"}, nil
	}

	cmd := command{name: args[0]}
	fs := flag.NewFlagSet("wetter "+cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd.name {
	case "latest", "serve", "schedule":
	case "update":
		fs.BoolVar(&cmd.historical, "historical", false, "Update with historical data")
	case "compare":
		week := fs.Bool("last-week", false, "Compare w/ last week")
		month := fs.Bool("last-month", false, "Compare w/ last month")
		year := fs.Bool("last-year", false, "Compare w/ last year")
		fs.IntVar(&cmd.month, "month", 0, "Compare w/ a specific month (1-12)")
		if err := fs.Parse(args[1:]); err != nil {
			return cmd, err
		}
		picked := map[string]bool{"week": *week, "month": *month, "year": *year, "detailed": cmd.month != 0}
		if err := exactlyOne(picked, &cmd.compare); err != nil {
			return cmd, fmt.Errorf("compare: one of --last-week, --last-month, --last-year or --month is required")
		}
		if cmd.compare == "detailed" && (cmd.month < 1 || cmd.month > 12) {
			return cmd, fmt.Errorf("compare: --month must be between 1 and 12, got %d", cmd.month)
		}
		return cmd, nil
	case "configure":
		systemd := fs.Bool("systemd", false, "Show systemd service unit")
		timer := fs.Bool("systemdtimer", false, "Show systemd timer unit")
		config := fs.Bool("config", false, "Show configuration path")
		if err := fs.Parse(args[1:]); err != nil {
			return cmd, err
		}
		picked := map[string]bool{"systemd": *systemd, "systemdtimer": *timer, "config": *config}
		if err := exactlyOne(picked, &cmd.configure); err != nil {
			return cmd, fmt.Errorf("configure: one of --systemd, --systemdtimer or --config is required")
		}
		return cmd, nil
	case "-h", "--help", "help":
		return cmd, errUsage
	default:
		return cmd, fmt.Errorf("unknown subcommand %q", cmd.name)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return cmd, err
	}
	return cmd, nil
}

func exactlyOne(picked map[string]bool, dst *string) error {
	n := 0
	for name, on := range picked {
		if on {
			*dst = name
			n++
		}
	}
	if n != 1 {
		return errUsage
	}
	return nil
}

const usage = `wetter - check the outside when you're inside

Usage:
  wetter [latest]                 Latest measurement (default)
  wetter update [--historical]    Update the store
  wetter compare --last-week | --last-month | --last-year | --month N
  wetter configure --systemd | --systemdtimer | --config
  wetter serve                    HTTP API with periodic updates
  wetter schedule                 Periodic updates only

Environment:
  WETTER_CONFIG, WETTER_STORE, WETTER_STORE_DRIVER (json|sqlite),
  WETTER_HTTP_TIMEOUT, WETTER_UPDATE_INTERVAL, WETTER_LOG, WETTER_LOG_STDERR,
  PORT, GEOCODER_API_KEY

Have a nice day!
`

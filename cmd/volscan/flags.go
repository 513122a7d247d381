package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"volscan/internal/config"
	apperrors "volscan/internal/errors"
)

// cliFlags holds the parsed command line. set records which flags were given
// so that only those override the loaded configuration.
type cliFlags struct {
	configPath     string
	root           string
	workers        int
	drain          string
	receiveTimeout time.Duration
	column         int
	out            string
	db             string
	metricsAddr    string
	logLevel       string
	version        bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}

	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s -path DIR -workers N [options]\n       %s DIR N [options]\n\n", config.AppName, config.AppName)
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configPath, "config", "", "YAML config file (default: volscan.yaml if present)")
	fs.StringVar(&f.root, "path", "", "directory of price files, searched recursively")
	fs.StringVar(&f.root, "p", "", "shorthand for -path")
	fs.IntVar(&f.workers, "workers", 0, "number of parallel workers (default: number of CPUs)")
	fs.IntVar(&f.workers, "w", 0, "shorthand for -workers")
	fs.IntVar(&f.workers, "process", 0, "alias for -workers")
	fs.IntVar(&f.workers, "f", 0, "shorthand for -process")
	fs.StringVar(&f.drain, "drain", "", "completion detection: poll or signal")
	fs.DurationVar(&f.receiveTimeout, "receive-timeout", 0, "poll mode receive timeout")
	fs.IntVar(&f.column, "column", 0, "zero-based price column")
	fs.StringVar(&f.out, "out", "", "write the full ranking to a .csv or .json file")
	fs.StringVar(&f.db, "db", "", "record the run in a SQLite database")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /health and /metrics on this address")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "p":
			f.set["path"] = true
		case "w", "process", "f":
			f.set["workers"] = true
		default:
			f.set[fl.Name] = true
		}
	})

	// positional form: volscan DIR [N]
	rest := fs.Args()
	if len(rest) > 2 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unexpected arguments: %v", rest[2:]))
	}
	if len(rest) >= 1 && !f.set["path"] {
		f.root = rest[0]
		f.set["path"] = true
	}
	if len(rest) == 2 && !f.set["workers"] {
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("worker count %q is not a number", rest[1]))
		}
		f.workers = n
		f.set["workers"] = true
	}

	return f, nil
}

// apply overrides cfg with every flag given on the command line
func (f *cliFlags) apply(cfg *config.Config) {
	if f.set["path"] {
		cfg.Scan.Root = f.root
	}
	if f.set["workers"] {
		cfg.Scan.Workers = f.workers
	}
	if f.set["drain"] {
		cfg.Scan.DrainMode = f.drain
	}
	if f.set["receive-timeout"] {
		cfg.Scan.ReceiveTimeout = f.receiveTimeout
	}
	if f.set["column"] {
		cfg.Scan.PriceColumn = f.column
	}
	if f.set["out"] {
		cfg.Output.ReportFile = f.out
	}
	if f.set["db"] {
		cfg.Output.SQLitePath = f.db
	}
	if f.set["metrics-addr"] {
		cfg.Telemetry.MetricsAddr = f.metricsAddr
		if f.metricsAddr != "" && cfg.Telemetry.MetricExporter == "none" {
			cfg.Telemetry.MetricExporter = "prometheus"
		}
	}
	if f.set["log-level"] {
		cfg.Logging.Level = f.logLevel
	}
}

// Command storehq runs the HTTP API and its operational subcommands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/anotherstories/storehq/cmd/storehq/cli"
	"github.com/anotherstories/storehq/internal/app"
	"github.com/anotherstories/storehq/internal/platform/db"
	"github.com/anotherstories/storehq/internal/reports"
	"github.com/anotherstories/storehq/internal/sales"
)

const usage = `usage: storehq <command> [args]

commands:
  serve                                   run the HTTP API (default)
  migrate up|down [n|all]|version         manage the database schema
  jobs trigger <warmup|cleanup> [branch]  enqueue a background job
  jobs inspect                            show queue state
  sales import --file F [--apply] [--json] import CSV or JSON lines
  sales export                            print every sale as JSON lines
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	switch command {
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	case "serve", "migrate", "jobs", "sales":
	default:
		fmt.Fprintf(stderr, "storehq: unknown command %q\n\n%s", command, usage)
		return 2
	}
	if app.SkipStartup("storehq " + command) {
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	switch command {
	case "migrate":
		return runMigrate(cfg, logger, args, stdout, stderr)
	case "jobs":
		jobsCLI := cli.NewJobsCLI(cfg.QueueRedis())
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("close jobs cli", slog.Any("error", err))
			}
		}()
		return jobsCLI.JobsCommand(ctx, cli.JobsOptions{Args: args, Stdout: stdout, Stderr: stderr})
	case "sales":
		return runSales(ctx, cfg, logger, args, stdout, stderr)
	default:
		if err := serve(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("serve", slog.Any("error", err))
			return 1
		}
		return 0
	}
}

func runMigrate(cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	migrator, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("close migrator", slog.Any("error", err))
		}
	}()
	return cli.MigrateCommand(migrator, args, stdout, stderr)
}

func runSales(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	pool, err := db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		fmt.Fprintf(stderr, "sales: %v\n", err)
		return 1
	}
	defer pool.Close()

	var invalidator sales.CacheInvalidator
	if client, err := connectRedis(ctx, cfg); err != nil {
		logger.Warn("report cache not reachable, cached reports may be stale until they expire", slog.Any("error", err))
	} else {
		defer client.Close()
		invalidator = reports.NewCache(client, cfg.ReportCacheTTL)
	}
	salesCLI := cli.NewSalesCLI(sales.NewService(sales.NewRepository(pool), invalidator, logger))

	switch args[0] {
	case "import":
		fs := flag.NewFlagSet("sales import", flag.ContinueOnError)
		fs.SetOutput(stderr)
		var opts cli.ImportOptions
		fs.StringVar(&opts.File, "file", "", "CSV or JSON lines file")
		fs.StringVar(&opts.Format, "format", "", "csv or jsonl, detected from the extension when empty")
		fs.BoolVar(&opts.Apply, "apply", false, "store the records instead of a dry run")
		fs.BoolVar(&opts.JSONOutput, "json", false, "print the summary as JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		opts.Stdout, opts.Stderr = stdout, stderr
		return salesCLI.ImportCommand(ctx, opts)
	case "export":
		if err := salesCLI.ExportCommand(ctx, stdout); err != nil {
			fmt.Fprintf(stderr, "sales export: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "sales: unknown subcommand %q\n", args[0])
		return 2
	}
}

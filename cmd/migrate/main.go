package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/config"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/logger"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/migration"
	"github.com/pass-culture/pass-culture-main-sub045/migrations"
	"go.uber.org/zap"
)

func main() {
	var (
		dir      string
		logLevel string
	)
	flag.StringVar(&dir, "path", "", "migrations directory (default: the migrations embedded in the binary)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	src := migration.Source{FS: migrations.FS}
	if dir != "" {
		src = migration.Source{Dir: dir}
	}

	if err := run(args, src, log); err != nil {
		log.Fatal("migrate failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(args []string, src migration.Source, log *zap.Logger) error {
	switch args[0] {
	case "create":
		if src.Dir == "" {
			return fmt.Errorf("create needs -path pointing at the migrations directory")
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate -path <dir> create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(src.Dir, args[1], description)
		if err != nil {
			return err
		}
		log.Info("migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
		return nil

	case "list":
		names, err := migration.ListMigrations(src.Files())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	m, err := migration.Open(&cfg.Database, src, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args, "step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		n, err := intArg(args, "goto <version>")
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("version must be positive")
		}
		return m.GoTo(uint(n))
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("current schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	case "force":
		n, err := intArg(args, "force <version>")
		if err != nil {
			return err
		}
		return m.Force(n)
	case "drop":
		if len(args) < 2 || (args[1] != "-confirm" && args[1] != "--confirm") {
			return fmt.Errorf("drop destroys every ledger table, rerun as 'migrate drop -confirm'")
		}
		return m.Drop()
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string, usage string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: migrate %s", usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[1])
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Reimbursement ledger schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    apply every pending migration
  down                  roll every migration back
  step <n>              apply n migrations (negative rolls back)
  goto <version>        migrate to version
  version               print the applied version
  force <version>       mark version as applied (clears a dirty state)
  drop -confirm         drop every table
  create <name> [desc]  write a new up/down pair (needs -path)
  list                  list the available migrations

Flags:
  -path string          migrations directory (default: embedded)
  -log-level string     debug, info, warn or error (default: info)

The database is read from config.toml and LEDGER_DATABASE_* variables.`)
}

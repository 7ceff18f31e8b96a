package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/estudiomd/backoffice/internal/infrastructure/logger"
	"github.com/estudiomd/backoffice/internal/infrastructure/migration"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "internal/infrastructure/migration/sql"

var errUsage = errors.New("invalid usage")

// env is what a command runs against. migrator is nil for commands that
// work without a database.
type env struct {
	args     []string
	dir      string
	log      *zap.Logger
	migrator *migration.Migrator
}

type command struct {
	usage       string
	needsDB     bool
	destructive bool
	run         func(e *env) error
}

var commands = map[string]command{
	"up":      {usage: "up                    Apply all pending migrations", needsDB: true, run: runUp},
	"down":    {usage: "down                  Roll back all migrations", needsDB: true, destructive: true, run: runDown},
	"step":    {usage: "step <n>              Apply n migrations (negative rolls back)", needsDB: true, destructive: true, run: runStep},
	"version": {usage: "version               Show the applied version", needsDB: true, run: runVersion},
	"status":  {usage: "status                Show the applied version and pending migrations", needsDB: true, run: runStatus},
	"force":   {usage: "force <version>       Mark a version as applied without running it", needsDB: true, destructive: true, run: runForce},
	"create":  {usage: "create <name> [desc]  Write a new up/down migration pair", run: runCreate},
	"list":    {usage: "list                  List the migrations compiled into the binary", run: runList},
}

var commandOrder = []string{"up", "down", "step", "version", "status", "force", "create", "list"}

func main() {
	var (
		dir      string
		logLevel string
		yes      bool
	)
	flag.StringVar(&dir, "path", defaultMigrationsPath, "Directory new migrations are written to")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&yes, "yes", false, "Allow down, step and force against a production database")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	e := &env{args: args[1:], dir: dir, log: log}
	if err := execute(cmd, args[0], e, yes); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func execute(cmd command, name string, e *env, yes bool) error {
	if !cmd.needsDB {
		return cmd.run(e)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cmd.destructive && cfg.IsProduction() && !yes {
		return fmt.Errorf("%w: %s against production requires -yes", errUsage, name)
	}

	// sqlite databases are built from the models and carry no version
	if cfg.Database.Driver == config.DriverSQLite {
		if name != "up" {
			return fmt.Errorf("%w: only up is supported for the sqlite driver", errUsage)
		}
		db, err := persistence.NewDatabase(&cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		return migration.AutoMigrate(db.DB, e.log)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, e.log)
	if err != nil {
		return err
	}
	defer m.Close()

	e.migrator = m
	return cmd.run(e)
}

func runUp(e *env) error   { return e.migrator.Up() }
func runDown(e *env) error { return e.migrator.Down() }

func runStep(e *env) error {
	n, err := intArg(e.args, "step <n>")
	if err != nil {
		return err
	}
	return e.migrator.Steps(n)
}

func runVersion(e *env) error {
	version, dirty, err := e.migrator.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		e.log.Info("No migrations applied")
		return nil
	}
	e.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runStatus(e *env) error {
	version, dirty, err := e.migrator.Version()
	if err != nil {
		return err
	}
	names, err := migration.Embedded()
	if err != nil {
		return err
	}
	pending := migration.Pending(version, names)
	e.log.Info("Migration status",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Int("embedded", len(names)),
		zap.Int("pending", len(pending)),
	)
	for _, p := range pending {
		fmt.Println("  pending:", p)
	}
	if dirty {
		e.log.Warn("Database is dirty, fix the failed migration and run force <version>")
	}
	return nil
}

func runForce(e *env) error {
	version, err := intArg(e.args, "force <version>")
	if err != nil {
		return err
	}
	return e.migrator.Force(version)
}

func runCreate(e *env) error {
	if len(e.args) == 0 {
		return fmt.Errorf("%w: create <name> [description]", errUsage)
	}
	description := ""
	if len(e.args) > 1 {
		description = e.args[1]
	}
	mf, err := migration.CreateMigration(e.dir, e.args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(e *env) error {
	names, err := migration.Embedded()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		e.log.Info("No migrations found")
		return nil
	}
	for _, n := range names {
		fmt.Println("  -", n)
	}
	return nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Backoffice database migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range commandOrder {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nThe database is configured through config.toml or BACKOFFICE_DATABASE_* variables.")
}

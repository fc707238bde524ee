package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/infrastructure/migration"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/erp/invoicing/migrations"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "manage the invoicing database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "read migrations from this directory instead of the embedded set",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations (SQLite: auto-migrate the models)",
				Action: func(c *cli.Context) error {
					return withMigrator(c, func(m *migration.Migrator) error { return m.Up() })
				},
			},
			{
				Name:  "down",
				Usage: "roll back all migrations",
				Action: func(c *cli.Context) error {
					return withMigrator(c, func(m *migration.Migrator) error { return m.Down() })
				},
			},
			{
				Name:      "step",
				Usage:     "apply n migrations; negative n rolls back",
				ArgsUsage: "<n>",
				Action: func(c *cli.Context) error {
					n, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return cli.Exit("step count required: migrate step <n>", 1)
					}
					return withMigrator(c, func(m *migration.Migrator) error { return m.Steps(n) })
				},
			},
			{
				Name:      "goto",
				Usage:     "migrate to a specific version",
				ArgsUsage: "<version>",
				Action: func(c *cli.Context) error {
					v, err := strconv.ParseUint(c.Args().First(), 10, 32)
					if err != nil {
						return cli.Exit("version required: migrate goto <version>", 1)
					}
					return withMigrator(c, func(m *migration.Migrator) error { return m.GoTo(uint(v)) })
				},
			},
			{
				Name:  "version",
				Usage: "print the applied version",
				Action: func(c *cli.Context) error {
					return withMigrator(c, func(m *migration.Migrator) error {
						version, dirty, err := m.Version()
						if err != nil {
							return err
						}
						fmt.Printf("version=%d dirty=%t\n", version, dirty)
						return nil
					})
				},
			},
			{
				Name:      "force",
				Usage:     "record a version as applied without running it",
				ArgsUsage: "<version>",
				Action: func(c *cli.Context) error {
					v, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return cli.Exit("version required: migrate force <version>", 1)
					}
					return withMigrator(c, func(m *migration.Migrator) error { return m.Force(v) })
				},
			},
			{
				Name:      "create",
				Usage:     "create an empty up/down pair",
				ArgsUsage: "<name> [description]",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return cli.Exit("migration name required: migrate create <name> [description]", 1)
					}
					dir := c.String("path")
					if dir == "" {
						dir = "migrations"
					}
					mf, err := migration.CreateMigration(dir, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Println(mf.UpPath)
					fmt.Println(mf.DownPath)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list available migrations",
				Action: func(c *cli.Context) error {
					names, err := migration.ListMigrations(migrationSource(c))
					if err != nil {
						return err
					}
					for _, name := range names {
						fmt.Println(name)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrationSource(c *cli.Context) fs.FS {
	if dir := c.String("path"); dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

// withMigrator loads config, connects and runs fn. SQLite has no migration
// history: "up" auto-migrates the models and every other command is refused.
func withMigrator(c *cli.Context, fn func(*migration.Migrator) error) error {
	log, err := logger.New(&logger.Config{
		Level:      c.String("log-level"),
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		if c.Command.Name != "up" {
			return cli.Exit("sqlite databases only support 'up'", 1)
		}
		db, err := persistence.Open(&cfg.Database, nil)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.AutoMigrate(); err != nil {
			return err
		}
		log.Info("SQLite schema up to date", zap.String("path", cfg.Database.SQLitePath))
		return nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migrationSource(c), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	log.Info("Running migration command", zap.String("command", c.Command.Name))
	return fn(m)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/internal/migration"
)

// =============================================================================
// 🔧 migrate 子命令
// =============================================================================

// runMigrate 分派 migrate 的子命令
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	sub, subargs := args[0], args[1:]
	switch sub {
	case "up":
		withMigrator(sub, subargs, func(mg *migration.Migrator, _ *flag.FlagSet) error {
			if err := mg.Up(); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		})
	case "down":
		runMigrateDown(subargs)
	case "reset":
		withMigrator(sub, subargs, func(mg *migration.Migrator, _ *flag.FlagSet) error {
			if err := mg.Reset(); err != nil {
				return err
			}
			fmt.Println("all migrations rolled back")
			return nil
		})
	case "status":
		withMigrator(sub, subargs, func(mg *migration.Migrator, _ *flag.FlagSet) error {
			return printStatus(mg)
		})
	case "version":
		withMigrator(sub, subargs, func(mg *migration.Migrator, _ *flag.FlagSet) error {
			return printDBVersion(mg)
		})
	case "goto":
		runMigrateGoto(subargs)
	case "force":
		runMigrateForce(subargs)
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", sub)
		printMigrateUsage()
		os.Exit(1)
	}
}

func printMigrateUsage() {
	fmt.Println(`Schema migrations for the snowflow workflow store

Usage:
  snowflow migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration (--all rolls back everything)
  reset     Rollback all migrations
  status    Show each migration and whether it is applied
  version   Show current schema version
  goto      Migrate to a specific version
  force     Force set schema version (repairs a dirty state)
  help      Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database driver: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  snowflow migrate up
  snowflow migrate up --config /etc/snowflow/config.yaml
  snowflow migrate down --all
  snowflow migrate status
  snowflow migrate goto 1
  snowflow migrate force 0`)
}

// withMigrator 解析公共 flag、构建迁移执行器并运行动作
func withMigrator(sub string, args []string, run func(*migration.Migrator, *flag.FlagSet) error) {
	fs := flag.NewFlagSet("migrate "+sub, flag.ExitOnError)
	withMigratorFlags(sub, fs, args, run)
}

func withMigratorFlags(sub string, fs *flag.FlagSet, args []string, run func(*migration.Migrator, *flag.FlagSet) error) {
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database driver (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	mg, err := openMigrator(*configPath, *dbType, *dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer mg.Close()

	if err := run(mg, fs); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", sub, err)
		os.Exit(1)
	}
}

// openMigrator 优先用显式的 --db-type/--db-url，否则走配置文件
func openMigrator(configPath, dbType, dbURL string) (*migration.Migrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.OpenURL(dbType, dbURL)
	}

	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	return migration.OpenFromDatabaseConfig(cfg.Database)
}

func runMigrateDown(args []string) {
	fs := flag.NewFlagSet("migrate down", flag.ExitOnError)
	all := fs.Bool("all", false, "Rollback all migrations")

	withMigratorFlags("down", fs, args, func(mg *migration.Migrator, _ *flag.FlagSet) error {
		if *all {
			if err := mg.Reset(); err != nil {
				return err
			}
			fmt.Println("all migrations rolled back")
			return nil
		}
		if err := mg.Down(); err != nil {
			return err
		}
		fmt.Println("last migration rolled back")
		return nil
	})
}

func runMigrateGoto(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: snowflow migrate goto <version>")
		os.Exit(1)
	}
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", args[0])
		os.Exit(1)
	}

	withMigrator("goto", args[1:], func(mg *migration.Migrator, _ *flag.FlagSet) error {
		if err := mg.Goto(uint(version)); err != nil {
			return err
		}
		fmt.Printf("schema at version %d\n", version)
		return nil
	})
}

func runMigrateForce(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: snowflow migrate force <version>")
		os.Exit(1)
	}
	version, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", args[0])
		os.Exit(1)
	}

	withMigrator("force", args[1:], func(mg *migration.Migrator, _ *flag.FlagSet) error {
		if err := mg.Force(int(version)); err != nil {
			return err
		}
		fmt.Printf("schema version forced to %d\n", version)
		return nil
	})
}

func printStatus(mg *migration.Migrator) error {
	statuses, err := mg.Status()
	if err != nil {
		return err
	}

	for _, s := range statuses {
		mark := " "
		if s.Applied {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %06d %s", mark, s.Version, s.Name)
		if s.Dirty {
			line += " (dirty)"
		}
		fmt.Println(line)
	}
	return nil
}

func printDBVersion(mg *migration.Migrator) error {
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Println("schema version: none (empty database)")
		return nil
	}
	if dirty {
		fmt.Printf("schema version: %d (dirty)\n", version)
		return nil
	}
	fmt.Printf("schema version: %d\n", version)
	return nil
}

package main

import (
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/mizutani/meibo/internal/infrastructure/config"
	"github.com/mizutani/meibo/internal/infrastructure/database"
)

var (
	envFlag string
	pg      *database.Postgres
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for Meibo",
	Long: `Database migration tool for Meibo.
Manages PostgreSQL schema migrations using golang-migrate.`,
	PersistentPreRun: setupDatabase,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		withMigrate(func(m *migrate.Migrate) error {
			if err := m.Up(); err != nil {
				if err == migrate.ErrNoChange {
					log.Println("No migrations to apply")
					return nil
				}
				return err
			}
			log.Println("Migrations applied")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations (default: 1)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				log.Fatalf("Invalid step count %q", args[0])
			}
			steps = n
		}
		withMigrate(func(m *migrate.Migrate) error {
			if err := m.Steps(-steps); err != nil {
				if err == migrate.ErrNoChange {
					log.Println("No migrations to rollback")
					return nil
				}
				return err
			}
			log.Printf("Rolled back %d migration(s)", steps)
			return nil
		})
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			log.Fatalf("Invalid version %q", args[0])
		}
		withMigrate(func(m *migrate.Migrate) error {
			if err := m.Migrate(uint(version)); err != nil {
				if err == migrate.ErrNoChange {
					log.Printf("Already at version %d", version)
					return nil
				}
				return err
			}
			log.Printf("Migrated to version %d", version)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	Run: func(cmd *cobra.Command, args []string) {
		withMigrate(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if err == migrate.ErrNilVersion {
				log.Println("No migrations applied yet")
				return nil
			}
			if err != nil {
				return err
			}
			if dirty {
				log.Printf("Current version: %d (dirty, last migration may have failed)", version)
			} else {
				log.Printf("Current version: %d", version)
			}
			return nil
		})
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			log.Fatalf("Invalid version %q", args[0])
		}
		withMigrate(func(m *migrate.Migrate) error {
			if err := m.Force(version); err != nil {
				return err
			}
			log.Printf("Forced version to %d", version)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", defaultEnv(), "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

// defaultEnv mirrors the server's environment selection: the ENV variable
// when set, dev otherwise
func defaultEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}

func setupDatabase(cmd *cobra.Command, args []string) {
	log.Printf("Using environment: %s", envFlag)

	if err := config.InitConfig(envFlag); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pg, err = database.NewPostgres(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Printf("Connected to database: %s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database)
}

// withMigrate resolves the migrations path, builds a migrate instance on the
// shared connection, and runs fn against it
func withMigrate(fn func(m *migrate.Migrate) error) {
	migrationsPath, err := config.MigrationsPath()
	if err != nil {
		log.Fatalf("Failed to locate migrations: %v", err)
	}
	log.Printf("Using migrations path: %s", migrationsPath)

	m, err := pg.NewMigrate(migrationsPath)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			log.Printf("Warning: failed to close migration source: %v", sourceErr)
		}
		if dbErr != nil {
			log.Printf("Warning: failed to close migration database: %v", dbErr)
		}
	}()

	if err := fn(m); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

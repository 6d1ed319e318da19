package db

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/behavior-lab/runner/internal/monitoring"
)

// MigrateCommand runs one 'runner migrate' action against a database file.
type MigrateCommand struct {
	DBPath string
	Out    io.Writer
	// In answers the confirmation prompt of 'force'.
	In io.Reader
}

// Run dispatches args[0] to the matching migrate action.
func (c *MigrateCommand) Run(args []string) error {
	if len(args) < 1 {
		c.PrintHelp()
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		c.PrintHelp()
		return nil
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		return fmt.Errorf("failed to get migrations filesystem: %w", err)
	}

	// OpenDB rather than NewDB: the schema is left to the requested action.
	database, err := OpenDB(c.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action {
	case "up":
		return c.up(database, migrationsFS)
	case "down":
		return c.down(database, migrationsFS)
	case "status":
		return c.status(database, migrationsFS)
	case "version":
		v, err := versionArg(args, "version")
		if err != nil {
			return err
		}
		return c.to(database, migrationsFS, v)
	case "force":
		v, err := versionArg(args, "force")
		if err != nil {
			return err
		}
		return c.force(database, migrationsFS, int(v))
	case "baseline":
		v, err := versionArg(args, "baseline")
		if err != nil {
			return err
		}
		return c.baseline(database, v)
	default:
		c.PrintHelp()
		return fmt.Errorf("unknown migrate action: %s", action)
	}
}

func versionArg(args []string, action string) (uint, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: runner migrate %s <version_number>", action)
	}
	v, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid version number: %s", args[1])
	}
	return uint(v), nil
}

func (c *MigrateCommand) up(database *DB, migrationsFS fs.FS) error {
	monitoring.Logf("running migrations...")
	if err := database.MigrateUp(migrationsFS); err != nil {
		return err
	}
	version, dirty, _ := database.MigrateVersion(migrationsFS)
	fmt.Fprintf(c.Out, "All migrations applied. Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func (c *MigrateCommand) down(database *DB, migrationsFS fs.FS) error {
	monitoring.Logf("rolling back one migration...")
	if err := database.MigrateDown(migrationsFS); err != nil {
		return err
	}
	version, dirty, _ := database.MigrateVersion(migrationsFS)
	fmt.Fprintf(c.Out, "Migration rolled back. Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func (c *MigrateCommand) status(database *DB, migrationsFS fs.FS) error {
	status, err := database.GetMigrationStatus(migrationsFS)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Fprintln(c.Out, "=== Migration Status ===")
	fmt.Fprintf(c.Out, "Current version: %d\n", status.CurrentVersion)
	fmt.Fprintf(c.Out, "Latest available: %d\n", status.LatestVersion)
	fmt.Fprintf(c.Out, "Dirty: %v\n", status.Dirty)
	fmt.Fprintf(c.Out, "Schema migrations table exists: %v\n", status.SchemaMigrationsExists)

	switch {
	case status.Dirty:
		fmt.Fprintln(c.Out, "\nWARNING: a migration failed mid-execution.")
		fmt.Fprintln(c.Out, "Inspect the database, fix it, then run: runner migrate force <version>")
	case status.Pending() > 0:
		fmt.Fprintf(c.Out, "\n%d migration(s) pending. Run 'runner migrate up' to apply them.\n", status.Pending())
	default:
		fmt.Fprintln(c.Out, "\nDatabase is up to date.")
	}
	return nil
}

func (c *MigrateCommand) to(database *DB, migrationsFS fs.FS, version uint) error {
	monitoring.Logf("migrating to version %d...", version)
	if err := database.MigrateTo(migrationsFS, version); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Migrated to version %d\n", version)
	return nil
}

func (c *MigrateCommand) force(database *DB, migrationsFS fs.FS, version int) error {
	fmt.Fprintf(c.Out, "WARNING: forcing migration version to %d\n", version)
	fmt.Fprintln(c.Out, "This should only be used to recover from a dirty migration state.")
	fmt.Fprint(c.Out, "Continue? [y/N]: ")

	var response string
	if c.In != nil {
		line, _ := bufio.NewReader(c.In).ReadString('\n')
		response = strings.TrimSpace(line)
	}
	if response != "y" && response != "Y" {
		fmt.Fprintln(c.Out, "Aborted")
		return nil
	}

	if err := database.MigrateForce(migrationsFS, version); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Migration version forced to %d\n", version)
	return nil
}

func (c *MigrateCommand) baseline(database *DB, version uint) error {
	if err := database.BaselineAtVersion(version); err != nil {
		return fmt.Errorf("baseline failed: %w", err)
	}
	fmt.Fprintf(c.Out, "Database baselined at version %d\n", version)
	return nil
}

// PrintHelp writes the migrate usage text.
func (c *MigrateCommand) PrintHelp() {
	fmt.Fprint(c.Out, `Database Migration Commands

Usage: runner migrate <command> [options]

Commands:
  up              Apply all pending migrations
  down            Rollback one migration
  status          Show current migration status and version
  version <N>     Migrate to specific version N
  force <N>       Force migration version to N (recovery only)
  baseline <N>    Set migration version to N without running migrations
  help            Show this help message

Examples:
  runner migrate up
  runner migrate status
  runner migrate baseline 1
`)
}

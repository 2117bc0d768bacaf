package cli

import (
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/erp/eca/internal/infrastructure/config"
	"github.com/erp/eca/internal/infrastructure/migration"
	"github.com/erp/eca/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SchemaMigrator is the subset of *migration.Migrator used by the migrate
// commands
type SchemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	GoTo(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

// MigratorOpener connects a SchemaMigrator for opts
type MigratorOpener func(opts *MigrateOptions, log *zap.Logger) (SchemaMigrator, error)

// MigrateOptions holds flags for the migrate commands
type MigrateOptions struct {
	*RootOptions
	// Path reads migrations from a directory instead of the embedded set
	Path string
	Dir  string
}

// NewMigrateCommand creates the migrate command and its subcommands
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return newMigrateCommand(rootOpts, openDatabaseMigrator)
}

func newMigrateCommand(rootOpts *RootOptions, open MigratorOpener) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Manage the database schema.

The connection comes from the engine configuration (config.toml and ECA_*
environment variables). Migrations are embedded in the binary unless
--path points at a directory.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "read migrations from this directory")

	withMigrator := func(fn func(m SchemaMigrator, args []string, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			log, err := opts.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			m, err := open(opts, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					log.Warn("Failed to close migrator", zap.Error(err))
				}
			}()
			return fn(m, args, cmd.OutOrStdout())
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(m SchemaMigrator, _ []string, out io.Writer) error {
			if err := m.Up(); err != nil {
				return err
			}
			return printVersion(m, out)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(m SchemaMigrator, _ []string, out io.Writer) error {
			if err := m.Down(); err != nil {
				return err
			}
			return printVersion(m, out)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "steps <n>",
		Short: "Apply n migrations, or roll back when n is negative",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(m SchemaMigrator, args []string, out io.Writer) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
			}
			if err := m.Steps(n); err != nil {
				return err
			}
			return printVersion(m, out)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "goto <version>",
		Short: "Migrate up or down to a version",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(m SchemaMigrator, args []string, out io.Writer) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			if err := m.GoTo(uint(v)); err != nil {
				return err
			}
			return printVersion(m, out)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(m SchemaMigrator, _ []string, out io.Writer) error {
			return printVersion(m, out)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without migrating, clearing the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(m SchemaMigrator, args []string, out io.Writer) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < -1 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			if err := m.Force(v); err != nil {
				return err
			}
			return printVersion(m, out)
		}),
	})

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			mf, err := migration.CreateMigration(opts.Dir, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created migration %06d_%s\n  %s\n  %s\n", mf.Version, mf.Name, mf.UpPath, mf.DownPath)
			return nil
		},
	}
	create.Flags().StringVar(&opts.Dir, "dir", "migrations", "directory to write the migration files to")
	create.Flags().String("description", "", "description written into the file headers")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := migration.ListMigrations(migrationSource(opts))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No migrations found")
				return nil
			}
			for _, mf := range files {
				fmt.Fprintf(out, "%06d  %s\n", mf.Version, mf.Name)
			}
			return nil
		},
	})

	return cmd
}

func migrationSource(opts *MigrateOptions) fs.FS {
	if opts.Path != "" {
		return os.DirFS(opts.Path)
	}
	return migrations.FS
}

func printVersion(m SchemaMigrator, out io.Writer) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(out, "Schema version: %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(out, "Schema version: %d\n", version)
	return nil
}

func openDatabaseMigrator(opts *MigrateOptions, log *zap.Logger) (SchemaMigrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var m *migration.Migrator
	if opts.Path != "" {
		m, err = migration.NewFromPath(db, opts.Path, log)
	} else {
		m, err = migration.New(db, migrations.FS, log)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

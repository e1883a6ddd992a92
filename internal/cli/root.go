// Package cli implements the perfumectl command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/javajoker/scentdb-backend/internal/config"
	"github.com/javajoker/scentdb-backend/internal/database"
)

// app carries state shared by subcommands. The database is opened lazily so
// commands like token work without one.
type app struct {
	cfg         *config.Config
	db          *gorm.DB
	autoMigrate bool
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfumectl",
		Short: "Operate the scentdb perfume catalog",
		Long: `perfumectl reconciles crawled perfume records into the catalog database.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			config.ConfigureLogging(cfg.Log)
			// Keep stdout for command output.
			logrus.SetOutput(cmd.ErrOrStderr())
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&a.autoMigrate, "auto-migrate", true, "migrate the schema before writing")

	cmd.AddCommand(newMigrateCommand(a))
	cmd.AddCommand(newIngestCommand(a))
	cmd.AddCommand(newTokenCommand(a))
	cmd.AddCommand(newSeedCommand(a))

	return cmd
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (a *app) openDB(migrate bool) (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Initialize(a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if migrate {
		if err := database.RunMigrations(db); err != nil {
			database.Close(db)
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	a.db = db
	return db, nil
}

// closeDB is deferred by every command that opens the database. Cobra skips
// PersistentPostRunE when RunE fails, so it cannot do this.
func (a *app) closeDB() {
	if a.db != nil {
		database.Close(a.db)
		a.db = nil
	}
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.openDB(true); err != nil {
				return err
			}
			defer a.closeDB()

			logrus.Info("Schema is up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

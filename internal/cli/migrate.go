package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/logger"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"locus-quiz-service/internal/config"
	pgmigrations "locus-quiz-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies, rolls back or reports the quiz schema migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var rollback, status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres migrations for quizzes, live rosters and results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return withMigrator(cmd.Context(), cfg, func(ctx context.Context, m *migrate.Migrator) error {
				switch {
				case status:
					return printStatus(ctx, cmd, m)
				case rollback:
					group, err := m.Rollback(ctx)
					if err != nil {
						return err
					}
					if group.IsZero() {
						logger.Info("nothing to roll back")
						return nil
					}
					logger.Infof("rolled back %s", group)
					return nil
				default:
					return migrateUp(ctx, m)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	cmd.Flags().BoolVar(&status, "status", false, "list applied and pending migrations")
	return cmd
}

// runMigrationsWithConfig brings the schema up to date before the Postgres
// stores are opened.
func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	return withMigrator(ctx, cfg, migrateUp)
}

func withMigrator(ctx context.Context, cfg config.Config, fn func(context.Context, *migrate.Migrator) error) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migration tables: %w", err)
	}
	return fn(ctx, migrator)
}

func migrateUp(ctx context.Context, m *migrate.Migrator) error {
	group, err := m.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Infof("migrated to %s", group)
	return nil
}

func printStatus(ctx context.Context, cmd *cobra.Command, m *migrate.Migrator) error {
	ms, err := m.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}
	for _, mig := range ms {
		state := "pending"
		if mig.GroupID != 0 {
			state = fmt.Sprintf("applied (group %d)", mig.GroupID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", mig.Name, state)
	}
	return nil
}

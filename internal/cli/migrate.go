package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"audit-readiness-service/internal/config"
	pgloader "audit-readiness-service/internal/infra/postgres"
	pgmigrations "audit-readiness-service/internal/infra/postgres/migrations"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

// NewSeedCmd stores a catalog (the embedded one, or a YAML file) in Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file, catalogID string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a question catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			cat, err := loadCatalogFile(file)
			if err != nil {
				return err
			}
			if catalogID == "" {
				catalogID = cfg.Catalog.ID
			}
			if catalogID == "" {
				catalogID = "default"
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := pgloader.NewCatalogLoader(pool).SaveCatalog(cmd.Context(), catalogID, cat); err != nil {
				return err
			}
			log.Printf("catalog %s (version %s, %d questions) stored", catalogID, cat.Version, len(cat.Questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog YAML file (defaults to the built-in catalog)")
	cmd.Flags().StringVar(&catalogID, "id", "", "catalog id (defaults to catalog.id from config)")
	return cmd
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return runMigrationsWithConfig(ctx, cfg)
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}
	log.Printf("migrations applied")
	return nil
}

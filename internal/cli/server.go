package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/config"
	"audit-readiness-service/internal/infra/memory"
	pgloader "audit-readiness-service/internal/infra/postgres"
	redisinfra "audit-readiness-service/internal/infra/redis"
	"audit-readiness-service/internal/infra/sqlite"
	transport "audit-readiness-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, envPort string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the readiness API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", envPort, "port to listen on (overrides config)")
	return cmd
}

// backends holds the stores chosen from config; close releases them.
type backends struct {
	catalogs app.CatalogRepository
	states   app.StateStore
	sessions app.TeamSessionRepository
	close    func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	assessments, teams := newServices(cfg, b)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(assessments, teams),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting readiness service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openBackends picks Redis when configured, then SQLite for assessment state,
// then in-process stores. The catalog comes from Postgres when configured,
// otherwise from the catalog compiled into the binary.
func openBackends(ctx context.Context, cfg config.Config) (backends, error) {
	var closers []func()
	b := backends{close: func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}}

	var loader memory.CatalogLoader = memory.EmbeddedCatalogLoader{}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return b, err
		}
		closers = append(closers, pool.Close)
		loader = pgloader.NewCatalogLoader(pool)
	}
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

		b.catalogs = redisinfra.NewCatalogRepository(client, loader, catalogTTL)
		b.states = redisinfra.NewStateStore(client, 0)
		b.sessions = redisinfra.NewSessionStore(client, redisTTL)
		log.Printf("using redis at %s", cfg.Redis.Addr)
		return b, nil
	}

	b.catalogs = memory.NewCatalogRepository(loader, catalogTTL)
	b.sessions = memory.NewSessionStore()
	if cfg.Storage.SQLitePath != "" {
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			b.close()
			return b, err
		}
		closers = append(closers, func() { _ = store.Close() })
		b.states = store
		log.Printf("assessment state in sqlite at %s", cfg.Storage.SQLitePath)
	} else {
		b.states = memory.NewStateStore()
	}
	return b, nil
}

func newServices(cfg config.Config, b backends) (*app.AssessmentService, *app.TeamService) {
	catalogID := cfg.Catalog.ID
	if catalogID == "" {
		catalogID = app.DefaultCatalogID
	}
	assessments := app.NewAssessmentService(b.states, b.catalogs,
		app.WithCatalogID(catalogID),
		app.WithTopGaps(cfg.Scoring.TopGaps),
	)
	teams := app.NewTeamService(b.sessions, b.catalogs,
		app.WithTeamCatalogID(catalogID),
		app.WithTeamTopGaps(cfg.Scoring.TopGaps),
		app.WithTeamIdleTimeout(config.TTLDuration(cfg.Team.IdleTimeout, app.DefaultTeamIdleTimeout)),
	)
	return assessments, teams
}

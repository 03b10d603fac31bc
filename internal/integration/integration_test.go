package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/catalog"
	"audit-readiness-service/internal/domain"
	pgloader "audit-readiness-service/internal/infra/postgres"
	pgmigrations "audit-readiness-service/internal/infra/postgres/migrations"
	infraredis "audit-readiness-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestAssessmentEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewCatalogLoader(pool)
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if err := loader.SaveCatalog(ctx, app.DefaultCatalogID, cat); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	catalogs := infraredis.NewCatalogRepository(redisClient, loader, 5*time.Minute)
	states := infraredis.NewStateStore(redisClient, 0)
	assessments := app.NewAssessmentService(states, catalogs)

	a, err := assessments.Create(ctx, []domain.Framework{domain.FrameworkISO13485}, false, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := assessments.SaveResponses(ctx, a.ID,
		domain.Response{QuestionID: "doc-control", Answer: domain.BoolAnswer(false)},
		domain.Response{QuestionID: "mgmt-review", Answer: domain.BoolAnswer(true)},
	); err != nil {
		t.Fatalf("save responses: %v", err)
	}

	report, err := assessments.Score(ctx, a.ID)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if report.CatalogVersion != cat.Version {
		t.Fatalf("expected catalog %s from postgres, got %s", cat.Version, report.CatalogVersion)
	}
	if !report.Result.CriticalHit || report.Result.Status != domain.StatusRed {
		t.Fatalf("expected critical red result, got %+v", report.Result)
	}
	if len(report.Result.TopGaps) == 0 || report.Result.TopGaps[0].QuestionID != "doc-control" {
		t.Fatalf("expected doc-control as top gap, got %+v", report.Result.TopGaps)
	}

	teams := app.NewTeamService(infraredis.NewSessionStore(redisClient, 5*time.Minute), catalogs)
	if _, err := teams.Join(ctx, "team-1", domain.Member{ID: "qa", Name: "Quinn", Role: "quality_manager"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, tr, err := teams.SubmitIndividual(ctx, "team-1", "qa", "doc-control", domain.IndividualResponse{Answer: domain.BoolAnswer(true), Confidence: 5})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !tr.ResolvedByUnanimity {
		t.Fatalf("expected single-member team to resolve without discussion, got %+v", tr)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "readiness", "POSTGRES_PASSWORD": "readinesspass", "POSTGRES_DB": "readinessdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://readiness:readinesspass@%s:%s/readinessdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

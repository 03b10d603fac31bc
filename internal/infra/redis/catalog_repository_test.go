package redis

import (
	"context"
	"testing"
	"time"

	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogLoader(map[string]domain.Catalog{
			"default": sampleCatalog(),
		}),
	}
	repo := NewCatalogRepository(client, loader, time.Minute)

	cat, err := repo.GetCatalog(context.Background(), "default")
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("catalog:default") {
		t.Fatalf("expected catalog cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetCatalog(context.Background(), "default")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(cat.Questions) || cached.Questions[0].Options[2] != "Full" {
		t.Fatalf("cached catalog lost data: %+v", cached.Questions)
	}
	if cached.Clauses["CAPA"].Title != "Corrective Action" {
		t.Fatalf("cached catalog lost clauses: %+v", cached.Clauses)
	}

	if err := repo.Invalidate(context.Background(), "default"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetCatalog(context.Background(), "default")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx, catalogID)
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		Version: "test",
		Questions: []domain.Question{
			{
				ID:         "q1",
				Prompt:     "How mature is CAPA?",
				Type:       domain.QuestionSingleSelect,
				Weight:     6,
				ClauseRef:  "CAPA",
				Category:   "CAPA",
				Frameworks: []domain.Framework{domain.FrameworkCFR820},
				Options:    []string{"None", "Partial", "Full"},
			},
		},
		Clauses: map[string]domain.Clause{
			"CAPA": {Ref: "CAPA", Title: "Corrective Action"},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

package migrations

import "testing"

func TestMigrationsRegistered(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(sorted))
	}
	if sorted[0].Name != "2025010101" || sorted[0].Comment != "create_catalogs" {
		t.Fatalf("unexpected migration %q %q", sorted[0].Name, sorted[0].Comment)
	}
}

//go:build postgres_integration

package store

import (
	"os"
	"testing"

	"tourplan/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer p.Close()
	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.MigrateDir("../../db/migrations"); err != nil {
		t.Fatalf("MigrateDir: %v", err)
	}

	saved, err := p.SavePlan(t.Context(), model.Itinerary{City: "rome", Status: "feasible"})
	if err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	got, err := p.GetPlan(t.Context(), saved.ID)
	if err != nil || got.City != "rome" {
		t.Fatalf("GetPlan: %+v %v", got, err)
	}
	if _, _, err := p.ListPlans(t.Context(), "rome", "", 1); err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourplan/internal/model"
)

func TestMemoryPlanLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	saved, err := m.SavePlan(ctx, model.Itinerary{City: "rome", Status: "feasible"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("no id assigned")
	}

	got, err := m.GetPlan(ctx, saved.ID)
	if err != nil || got.City != "rome" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := m.GetPlan(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryListPlansCursorAndCity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		city := "rome"
		if i == 1 {
			city = "athens"
		}
		if _, err := m.SavePlan(ctx, model.Itinerary{City: city, Status: "feasible"}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	page, next, err := m.ListPlans(ctx, "", "", 2)
	if err != nil || len(page) != 2 || next == "" {
		t.Fatalf("page 1: %d items, next=%q, err=%v", len(page), next, err)
	}
	rest, next2, err := m.ListPlans(ctx, "", next, 2)
	if err != nil || len(rest) != 1 || next2 != "" {
		t.Fatalf("page 2: %d items, next=%q, err=%v", len(rest), next2, err)
	}

	romeOnly, _, err := m.ListPlans(ctx, "rome", "", 10)
	if err != nil || len(romeOnly) != 2 {
		t.Fatalf("city filter: %d items, err=%v", len(romeOnly), err)
	}
}

func TestMemoryPlannerConfig(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.GetPlannerConfig(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound before save, got %v", err)
	}
	cfg := model.PlannerConfig{WalkSpeedKmh: 5}
	if err := m.SavePlannerConfig(ctx, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := m.GetPlannerConfig(ctx)
	if err != nil || got.WalkSpeedKmh != 5 {
		t.Fatalf("get: %+v %v", got, err)
	}
}

func TestMemorySubscriptionsForEvent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://a", Events: []string{"plan.completed"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://b", Events: []string{"*"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://c", Events: []string{"plan.failed"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	subs, err := m.SubscriptionsForEvent(ctx, "plan.completed")
	if err != nil || len(subs) != 2 {
		t.Fatalf("subs = %+v, err=%v", subs, err)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.EnqueueWebhook(ctx, "sub-1", "plan.completed", "http://a", "s", []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("due = %+v, err=%v", due, err)
	}

	// A failed attempt backs off into the future and leaves the queue.
	later := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500); err != nil {
		t.Fatalf("mark: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("retry not deferred: %+v", due)
	}

	if err := m.FailWebhookDelivery(ctx, id, "gave up", 500); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := m.MarkWebhookDelivery(ctx, "missing", true, nil, "", 200); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

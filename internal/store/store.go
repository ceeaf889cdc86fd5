package store

import (
	"context"
	"errors"
	"time"

	"tourplan/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Plans
	SavePlan(ctx context.Context, it model.Itinerary) (model.Itinerary, error)
	GetPlan(ctx context.Context, id string) (model.Itinerary, error)
	ListPlans(ctx context.Context, city, cursor string, limit int) ([]model.Itinerary, string, error)

	// Planner config
	GetPlannerConfig(ctx context.Context) (model.PlannerConfig, error)
	SavePlannerConfig(ctx context.Context, cfg model.PlannerConfig) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	SubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int) error

	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")

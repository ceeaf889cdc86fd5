package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourplan/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu         sync.Mutex
	plans      map[string]model.Itinerary
	planIDs    []string // insertion order, cursor iteration
	config     *model.PlannerConfig
	subs       map[string]model.Subscription
	subIDs     []string
	deliveries map[string]*memDelivery
	dueOrder   []string
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	DeliveredAt   *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		plans:      map[string]model.Itinerary{},
		subs:       map[string]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

func (m *Memory) SavePlan(ctx context.Context, it model.Itinerary) (model.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	if _, exists := m.plans[it.ID]; !exists {
		m.planIDs = append(m.planIDs, it.ID)
	}
	m.plans[it.ID] = it
	return it, nil
}

func (m *Memory) GetPlan(ctx context.Context, id string) (model.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.plans[id]
	if !ok {
		return model.Itinerary{}, ErrNotFound
	}
	return it, nil
}

func (m *Memory) ListPlans(ctx context.Context, city, cursor string, limit int) ([]model.Itinerary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.planIDs {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Itinerary{}
	last := ""
	for _, id := range m.planIDs[start:] {
		it := m.plans[id]
		if city != "" && it.City != city {
			continue
		}
		out = append(out, it)
		last = id
		if len(out) == limit {
			break
		}
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, nil
}

func (m *Memory) GetPlannerConfig(ctx context.Context) (model.PlannerConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return model.PlannerConfig{}, ErrNotFound
	}
	return *m.config, nil
}

func (m *Memory) SavePlannerConfig(ctx context.Context, cfg model.PlannerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = &cfg
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[sub.ID] = sub
	m.subIDs = append(m.subIDs, sub.ID)
	return sub, nil
}

func (m *Memory) SubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, id := range m.subIDs {
		sub := m.subs[id]
		for _, ev := range sub.Events {
			if ev == eventType || ev == "*" {
				out = append(out, sub)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.subIDs {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Subscription{}
	last := ""
	for _, id := range m.subIDs[start:] {
		out = append(out, m.subs[id])
		last = id
		if len(out) == limit {
			break
		}
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	for i, sid := range m.subIDs {
		if sid == id {
			m.subIDs = append(m.subIDs[:i], m.subIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
			Status:         "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.dueOrder = append(m.dueOrder, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.dueOrder {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if d.Status != "pending" && d.Status != "retry" {
			continue
		}
		if d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.ResponseCode = responseCode
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	d.Status = "retry"
	d.Attempts++
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourplan/internal/buildinfo"
	"tourplan/internal/metrics"
	"tourplan/internal/model"
	"tourplan/internal/opt"
	"tourplan/internal/store"
)

// PlansHandler serves /v1/plans: POST runs one optimization and persists the
// itinerary, GET lists persisted plans.
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createPlan(w, r)
	case http.MethodGet:
		s.listPlans(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	if !s.planLimiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "plan creation rate exceeded", r.URL.Path)
		return
	}
	var req model.PlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := opt.ValidateRequest(req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
		return
	}

	it, err := s.Planner.Plan(r.Context(), req)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Plan failed", err.Error(), r.URL.Path)
		return
	}
	it, err = s.Store.SavePlan(r.Context(), it)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Persist failed", err.Error(), r.URL.Path)
		return
	}

	metrics.PlanSolves.WithLabelValues(it.Outcome.Strategy, it.Status).Inc()
	metrics.SolveDuration.WithLabelValues(it.Outcome.Strategy).Observe(float64(it.Outcome.SolveMs) / 1000)
	metrics.DroppedPOIs.Observe(float64(len(it.Dropped)))
	opt.RecordStats(it.ID, opt.SolveStats{
		Strategy:  it.Outcome.Strategy,
		Status:    opt.Status(it.Status),
		SolveMs:   it.Outcome.SolveMs,
		Objective: it.Outcome.Objective,
		Placed:    len(it.DayOf),
		Dropped:   len(it.Dropped),
	})
	s.publishPlanEvent(r, it)

	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) publishPlanEvent(r *http.Request, it model.Itinerary) {
	evtType := "plan.completed"
	if it.Status != string(opt.StatusOptimal) && it.Status != string(opt.StatusFeasible) {
		evtType = "plan.failed"
	}
	data := map[string]any{
		"planId":   it.ID,
		"city":     it.City,
		"status":   it.Status,
		"strategy": it.Outcome.Strategy,
		"dropped":  len(it.Dropped),
	}
	evt := SSEEvent{Type: evtType, Data: data}
	s.Broker.Publish(it.ID, evt)
	s.Broker.Publish(TopicAllPlans, evt)
	s.Pub.Emit(r.Context(), evtType, data)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	items, next, err := s.Store.ListPlans(r.Context(), q.Get("city"), q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler serves /v1/plans/{id} and /v1/plans/{id}/events/stream.
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}

	if len(parts) >= 3 && parts[1] == "events" && parts[2] == "stream" {
		s.streamPlanEvents(w, r, id)
		return
	}
	if len(parts) == 2 && parts[1] == "stats" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.PlanStatsHandler(w, r, id)
		return
	}
	if len(parts) > 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	it, err := s.Store.GetPlan(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"planId\":%q,\"ts\":%q}\n\n", id, time.Now().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			heartbeat()
		}
	}
}

// BundlesHandler serves GET /v1/bundles?city= from the loaded reference data.
func (s *Server) BundlesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	city := r.URL.Query().Get("city")
	if city == "" {
		writeProblem(w, http.StatusBadRequest, "Missing city", "city query parameter is required", r.URL.Path)
		return
	}
	items := s.Planner.Bundles.City(city)
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "bundles": items})
}

// PlannerConfigHandler serves GET and PUT /v1/planner/config. Updates are
// persisted and applied to the running planner.
func (s *Server) PlannerConfigHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Planner.Config())
	case http.MethodPut:
		var cfg model.PlannerConfig
		if err := decodeJSON(w, r, &cfg); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SavePlannerConfig(r.Context(), cfg); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Persist failed", err.Error(), r.URL.Path)
			return
		}
		s.Planner.Configure(cfg)
		writeJSON(w, http.StatusOK, s.Planner.Config())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlanStatsHandler serves GET /v1/plans/{id}/stats kept by the solve recorder.
func (s *Server) PlanStatsHandler(w http.ResponseWriter, r *http.Request, id string) {
	st, ok := opt.GetStats(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "No stats for plan", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"planId":    id,
		"strategy":  st.Strategy,
		"status":    st.Status,
		"solveMs":   st.SolveMs,
		"objective": st.Objective,
		"placed":    st.Placed,
		"dropped":   st.Dropped,
	})
}

// SubscriptionsHandler serves /v1/subscriptions: POST creates, GET lists.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create failed", err.Error(), r.URL.Path)
			return
		}
		sub.Secret = ""
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
			return
		}
		for i := range items {
			items[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler serves DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	err := s.Store.DeleteSubscription(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

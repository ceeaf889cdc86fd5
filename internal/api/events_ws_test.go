package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newWSServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/plans/events/ws", s.PlanEventsWSHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/plans/events/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func TestPlanEventsWSSubscribeAndFanout(t *testing.T) {
	s := newTestServer(t)
	srv := newWSServer(t, s)

	conn := dialWS(t, srv)
	defer func() { _ = conn.Close() }()

	mustWrite := func(m wsMessage) {
		t.Helper()
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write %s: %v", m.Type, err)
		}
	}
	readMsg := func() wsMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var m wsMessage
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}

	mustWrite(wsMessage{Type: "connection_init"})
	if m := readMsg(); m.Type != "connection_ack" {
		t.Fatalf("want connection_ack, got %+v", m)
	}

	sub, _ := json.Marshal(wsSubscribePayload{PlanID: ""})
	mustWrite(wsMessage{Type: "subscribe", ID: "1", Payload: sub})

	// Messages are handled in order, so a pong confirms the subscription
	// is registered before anything is published.
	mustWrite(wsMessage{Type: "ping"})
	if m := readMsg(); m.Type != "pong" {
		t.Fatalf("want pong, got %+v", m)
	}

	// Publish from several goroutines at once so the fanout writer runs
	// alongside the connection's other writers.
	const events = 6
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Broker.Publish(TopicAllPlans, SSEEvent{
				Type: "plan.completed",
				Data: map[string]any{"city": "rome"},
			})
		}()
	}
	wg.Wait()

	got := 0
	for got < events {
		m := readMsg()
		switch m.Type {
		case "next":
			if m.ID != "1" {
				t.Fatalf("next for unknown subscription %q", m.ID)
			}
			var body struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(m.Payload, &body); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if body.Type != "plan.completed" {
				t.Fatalf("event type = %q", body.Type)
			}
			got++
		case "ping":
			// heartbeat may interleave with events
		default:
			t.Fatalf("unexpected message %+v", m)
		}
	}

	mustWrite(wsMessage{Type: "complete", ID: "1"})
}

func TestPlanEventsWSDuplicateSubscriptionID(t *testing.T) {
	s := newTestServer(t)
	srv := newWSServer(t, s)

	conn := dialWS(t, srv)
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ack wsMessage
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != "connection_ack" {
		t.Fatalf("ack: %+v err=%v", ack, err)
	}

	sub, _ := json.Marshal(wsSubscribePayload{PlanID: "p1"})
	for i := 0; i < 2; i++ {
		if err := conn.WriteJSON(wsMessage{Type: "subscribe", ID: "dup", Payload: sub}); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m wsMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Type != "error" || m.ID != "dup" {
		t.Fatalf("want duplicate-id error, got %+v", m)
	}
}

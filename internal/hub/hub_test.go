package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"meeting-transcription-engine/internal/models"
)

func statusEvent(sessionID, reason string) models.Event {
	return models.Event{
		Type:      models.EventStatus,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Status:    &models.StatusChange{Status: "ACTIVE", Reason: reason},
	}
}

func receive(t *testing.T, sub *Subscription) models.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return models.Event{}
}

func TestSubscribeUnknownSession(t *testing.T) {
	h := NewHub(0)

	if _, err := h.Subscribe("nope"); err != ErrChannelNotFound {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestPublishUnknownSession(t *testing.T) {
	h := NewHub(0)

	if err := h.Publish("nope", statusEvent("nope", "")); err != ErrChannelNotFound {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestPublishRejectsMalformedEvent(t *testing.T) {
	h := NewHub(0)
	h.CreateChannel("s1")

	// status event without its payload
	err := h.Publish("s1", models.Event{Type: models.EventStatus, SessionID: "s1"})
	if err != models.ErrEventNoPayload {
		t.Errorf("expected ErrEventNoPayload, got %v", err)
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	h := NewHub(0)
	h.CreateChannel("s1")

	sub, err := h.Subscribe("s1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for _, reason := range []string{"first", "second", "third"} {
		if err := h.Publish("s1", statusEvent("s1", reason)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for _, want := range []string{"first", "second", "third"} {
		ev := receive(t, sub)
		if ev.Status.Reason != want {
			t.Errorf("expected event %q, got %q", want, ev.Status.Reason)
		}
	}
}

func TestSlowSubscriberDropsWithoutAffectingPeers(t *testing.T) {
	h := NewHub(1)
	h.CreateChannel("s1")

	slow, _ := h.Subscribe("s1")
	fast, _ := h.Subscribe("s1")

	h.Publish("s1", statusEvent("s1", "first"))
	if ev := receive(t, fast); ev.Status.Reason != "first" {
		t.Fatalf("fast subscriber expected first, got %q", ev.Status.Reason)
	}

	// slow never read, its single-slot buffer is full
	h.Publish("s1", statusEvent("s1", "second"))
	if ev := receive(t, fast); ev.Status.Reason != "second" {
		t.Errorf("fast subscriber expected second, got %q", ev.Status.Reason)
	}

	if got := slow.Dropped(); got != 1 {
		t.Errorf("expected slow subscriber to drop 1 event, got %d", got)
	}
	if ev := receive(t, slow); ev.Status.Reason != "first" {
		t.Errorf("slow subscriber should still hold the first event, got %q", ev.Status.Reason)
	}
}

func TestCloseChannelDeliversBufferedEvents(t *testing.T) {
	h := NewHub(0)
	h.CreateChannel("s1")
	sub, _ := h.Subscribe("s1")

	h.Publish("s1", statusEvent("s1", "first"))
	h.Publish("s1", statusEvent("s1", "second"))
	h.CloseChannel("s1")

	if ev := receive(t, sub); ev.Status.Reason != "first" {
		t.Errorf("expected buffered first event, got %q", ev.Status.Reason)
	}
	if ev := receive(t, sub); ev.Status.Reason != "second" {
		t.Errorf("expected buffered second event, got %q", ev.Status.Reason)
	}

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected subscription to be closed after drain")
		}
	case <-time.After(time.Second):
		t.Error("expected closed subscription, got none")
	}

	if _, err := h.Subscribe("s1"); err != ErrChannelNotFound {
		t.Errorf("expected channel to be gone after close, got %v", err)
	}
}

func TestCloseChannelUnknownIsNoop(t *testing.T) {
	h := NewHub(0)
	h.CloseChannel("nope")
	h.CloseChannel("nope")
}

func TestUnsubscribeDetachesOnlyThatSubscriber(t *testing.T) {
	h := NewHub(0)
	h.CreateChannel("s1")
	a, _ := h.Subscribe("s1")
	b, _ := h.Subscribe("s1")

	h.Unsubscribe(a.ID)

	if got := h.Subscribers("s1"); got != 1 {
		t.Errorf("expected 1 subscriber left, got %d", got)
	}

	if _, ok := <-a.Events(); ok {
		t.Error("expected unsubscribed queue to be closed")
	}

	h.Publish("s1", statusEvent("s1", "still here"))
	if ev := receive(t, b); ev.Status.Reason != "still here" {
		t.Errorf("remaining subscriber expected event, got %q", ev.Status.Reason)
	}

	// double unsubscribe is harmless
	h.Unsubscribe(a.ID)
}

func TestWebSocketSubscriberReceivesEvents(t *testing.T) {
	h := NewHub(0)
	h.CreateChannel("s1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "s1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// wait for the server side to attach before publishing
	deadline := time.Now().Add(time.Second)
	for h.Subscribers("s1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket subscriber never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	seg := &models.TranscriptSegment{Text: "hello world"}
	h.Publish("s1", models.Event{
		Type:      models.EventSegment,
		SessionID: "s1",
		Timestamp: time.Now(),
		Segment:   seg,
	})

	var got models.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Type != models.EventSegment {
		t.Errorf("expected segment event, got %q", got.Type)
	}
	if got.Segment == nil || got.Segment.Text != "hello world" {
		t.Errorf("expected segment text to round-trip, got %+v", got.Segment)
	}

	h.CloseChannel("s1")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close after channel teardown, got %v", err)
	}
}

func TestWebSocketUnknownSessionRejected(t *testing.T) {
	h := NewHub(0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "nope")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 handshake response, got %+v", resp)
	}
}

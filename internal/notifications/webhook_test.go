package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestBot", 0)
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	// Should log to console without error
	if err := s.SendContext(context.Background(), "hello from test"); err != nil {
		t.Fatalf("expected nil error without webhook, got %v", err)
	}
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestBot", 0)
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send("battery-texas-1 switched to active")

	if received["username"] != "TestBot" {
		t.Fatalf("username: got %s", received["username"])
	}
	if received["text"] == "" {
		t.Fatal("text should not be empty")
	}
	t.Logf("Slack payload: %+v", received)
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "FleetBot", 0)
	s.Send("daily loss limit breached: $-1200000.00")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "FleetBot" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSend_WebhookError(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestBot", 0)
	s.retry.BaseDelay = time.Millisecond
	s.retry.MaxDelay = time.Millisecond
	if err := s.SendContext(context.Background(), "this will fail gracefully"); err == nil {
		t.Fatal("expected error for unreachable webhook")
	}
}

func TestSend_Throttled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestBot", time.Hour)
	var throttled int
	for i := 0; i < defaultBurst+3; i++ {
		if err := s.SendContext(context.Background(), "alert"); errors.Is(err, ErrThrottled) {
			throttled++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := hits.Load(); got != defaultBurst {
		t.Fatalf("expected %d posts, got %d", defaultBurst, got)
	}
	if throttled != 3 {
		t.Fatalf("expected 3 throttled sends, got %d", throttled)
	}
}

func TestDefaultBotName(t *testing.T) {
	s := NewSender("", "", 0)
	if s.botName != DefaultBotName {
		t.Fatalf("expected default bot name, got %s", s.botName)
	}
}

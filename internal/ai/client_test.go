package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/hylla/flyt/internal/domain"
)

func modelServer(t *testing.T, draftJSON string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("x-goog-api-key") == "" {
			t.Error("missing api key header")
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": draftJSON}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestParseTask(t *testing.T) {
	srv := modelServer(t, `{
		"title": "Review budget",
		"scheduledDate": "2025-03-11",
		"scheduledTime": "14:00",
		"estimatedMinutes": 60,
		"tags": ["finance"],
		"category": "work"
	}`)
	defer srv.Close()

	c := NewClient("test-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	draft, err := c.ParseTask(context.Background(), "Review budget tomorrow at 2pm for 1 hour #finance", now)
	if err != nil {
		t.Fatalf("ParseTask: %v", err)
	}
	if draft.Title != "Review budget" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.ScheduledDate == nil || draft.ScheduledDate.Format(time.DateOnly) != "2025-03-11" {
		t.Errorf("scheduled date = %v", draft.ScheduledDate)
	}
	if draft.ScheduledTime != "14:00" {
		t.Errorf("scheduled time = %q", draft.ScheduledTime)
	}
	if draft.EstimatedMinutes != 60 {
		t.Errorf("estimated minutes = %d", draft.EstimatedMinutes)
	}
	if !slices.Equal(draft.Tags, []string{"finance"}) {
		t.Errorf("tags = %v", draft.Tags)
	}
	if draft.Category != domain.CategoryWork {
		t.Errorf("category = %q", draft.Category)
	}
}

func TestParseTaskDropsMalformedFields(t *testing.T) {
	srv := modelServer(t, `{
		"title": "  Walk dog  ",
		"scheduledDate": "next tuesday",
		"scheduledTime": "25:99",
		"estimatedMinutes": -5,
		"tags": ["#park", "  "],
		"category": "hobby"
	}`)
	defer srv.Close()

	c := NewClient("test-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	draft, err := c.ParseTask(context.Background(), "walk dog", time.Now())
	if err != nil {
		t.Fatalf("ParseTask: %v", err)
	}
	if draft.Title != "Walk dog" {
		t.Errorf("title = %q, want trimmed", draft.Title)
	}
	if draft.ScheduledDate != nil {
		t.Errorf("unparseable date kept: %v", draft.ScheduledDate)
	}
	if draft.ScheduledTime != "" {
		t.Errorf("invalid time kept: %q", draft.ScheduledTime)
	}
	if draft.EstimatedMinutes != 0 {
		t.Errorf("negative minutes kept: %d", draft.EstimatedMinutes)
	}
	if !slices.Equal(draft.Tags, []string{"park"}) {
		t.Errorf("tags = %v, want [park]", draft.Tags)
	}
	if draft.Category != "" {
		t.Errorf("unknown category kept: %q", draft.Category)
	}
}

func TestParseTaskEmptyTitleFails(t *testing.T) {
	srv := modelServer(t, `{"title": ""}`)
	defer srv.Close()

	c := NewClient("test-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := c.ParseTask(context.Background(), "x", time.Now()); err == nil {
		t.Fatal("expected an error for an empty model title")
	}
}

func TestParseTaskServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := c.ParseTask(context.Background(), "x", time.Now()); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestParseTaskDisabled(t *testing.T) {
	c := NewClient("")
	if c.Enabled() {
		t.Error("client with no key reports enabled")
	}
	if _, err := c.ParseTask(context.Background(), "x", time.Now()); err != ErrDisabled {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

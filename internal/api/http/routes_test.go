package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/weatherpipe/weatherpipe/internal/pipeline"
	"github.com/weatherpipe/weatherpipe/internal/store"
)

func newTestApp(history *store.RunHistory, trigger RunTrigger) *fiber.App {
	app := fiber.New()
	if trigger == nil {
		trigger = func(_ context.Context, targetDate time.Time) (*pipeline.Outcome, error) {
			return &pipeline.Outcome{RunID: "deadbeef", TargetDate: targetDate.Format("2006-01-02")}, nil
		}
	}
	RegisterRoutes(app, history, trigger)
	return app
}

func TestLatestRunNotFound(t *testing.T) {
	app := newTestApp(store.NewRunHistory(10), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestLatestRunReturnsMostRecent(t *testing.T) {
	history := store.NewRunHistory(10)
	history.Record(&pipeline.Outcome{RunID: "aaaa1111", TargetDate: "2024-01-14"})
	history.Record(&pipeline.Outcome{RunID: "bbbb2222", TargetDate: "2024-01-15"})
	app := newTestApp(history, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var outcome pipeline.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.RunID != "bbbb2222" {
		t.Fatalf("expected most recent run, got %s", outcome.RunID)
	}
}

func TestTriggerRunDateValidation(t *testing.T) {
	app := newTestApp(store.NewRunHistory(10), nil)

	// Malformed date should return 400.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"date": "15-01-2024"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestTriggerRunPassesRequestedDate(t *testing.T) {
	var got time.Time
	trigger := func(_ context.Context, targetDate time.Time) (*pipeline.Outcome, error) {
		got = targetDate
		return &pipeline.Outcome{RunID: "deadbeef", TargetDate: targetDate.Format("2006-01-02")}, nil
	}
	app := newTestApp(store.NewRunHistory(10), trigger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"date": "2024-01-15"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("trigger received %s, want %s", got, want)
	}
}

func TestTriggerRunAllCitiesFailed(t *testing.T) {
	trigger := func(_ context.Context, targetDate time.Time) (*pipeline.Outcome, error) {
		return &pipeline.Outcome{RunID: "deadbeef"}, pipeline.ErrAllCitiesFailed
	}
	app := newTestApp(store.NewRunHistory(10), trigger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(store.NewRunHistory(10), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

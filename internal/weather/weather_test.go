// internal/weather/weather_test.go
package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const forecastFixture = `{
	"location": {"name": "London"},
	"forecast": {"forecastday": [
		{"date": "2024-08-01", "day": {"avgtemp_c": 21.5, "condition": {"text": "Partly cloudy"}}},
		{"date": "2024-08-02", "day": {"avgtemp_c": 19.0, "condition": {"text": "Light rain"}}}
	]}
}`

func TestForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast.json" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "London" {
			t.Fatalf("unexpected location param: %q", got)
		}
		if got := r.URL.Query().Get("days"); got != "3" {
			t.Fatalf("unexpected days param: %q", got)
		}
		w.Write([]byte(forecastFixture))
	}))
	defer server.Close()

	svc := NewServiceWithBaseURL("test-key", server.URL)
	out, err := svc.Forecast(context.Background(), "London", 3)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}

	if !strings.HasPrefix(out, "Weather forecast for London:\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "2024-08-01: 21.5°C, Partly cloudy") {
		t.Fatalf("missing day line: %q", out)
	}
	if !strings.Contains(out, "2024-08-02: 19°C, Light rain") {
		t.Fatalf("missing day line: %q", out)
	}
}

func TestForecastUnknownLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "No matching location found."}}`))
	}))
	defer server.Close()

	svc := NewServiceWithBaseURL("test-key", server.URL)
	if _, err := svc.Forecast(context.Background(), "Nowhereville", 3); err == nil {
		t.Fatal("expected error for unknown location")
	}
}

func TestForecastServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewServiceWithBaseURL("test-key", server.URL)
	if _, err := svc.Forecast(context.Background(), "London", 3); err == nil {
		t.Fatal("expected error on server failure")
	}
}

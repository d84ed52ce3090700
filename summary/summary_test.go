package summary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voyageflow/config"
	"voyageflow/models"
)

func testConfig(endpoint, key string) config.SummaryConfig {
	return config.SummaryConfig{
		APIKey:            key,
		Endpoint:          endpoint,
		Model:             "gpt-4o-mini",
		MaxTokens:         400,
		Timeout:           2 * time.Second,
		RequestsPerMinute: 60,
		Burst:             5,
	}
}

func TestSummarizeExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Market looks stable."}}]}`))
	}))
	defer srv.Close()

	s := NewService(testConfig(srv.URL, "sk-test"))
	text, source, err := s.Summarize(context.Background(), nil, models.DefaultOpportunities())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if source != SourceExternal {
		t.Errorf("source = %q, want %q", source, SourceExternal)
	}
	if text != "Market looks stable." {
		t.Errorf("unexpected summary: %q", text)
	}
}

func TestSummarizeFallbackWithoutKey(t *testing.T) {
	s := NewService(testConfig("http://unused", ""))
	text, source, err := s.Summarize(context.Background(), nil, models.DefaultOpportunities())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if source != SourceFallback {
		t.Errorf("source = %q, want %q", source, SourceFallback)
	}
	if !strings.Contains(text, "Auto-summary (fallback)") {
		t.Errorf("unexpected fallback text: %q", text)
	}
	if !strings.Contains(text, "Paraxylene") {
		t.Errorf("fallback should name top cargoes: %q", text)
	}
}

func TestSummarizeFallbackOnExternalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewService(testConfig(srv.URL, "sk-test"))
	_, source, err := s.Summarize(context.Background(), nil, models.DefaultOpportunities())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if source != SourceFallback {
		t.Errorf("source = %q, want %q", source, SourceFallback)
	}
}

func TestFallbackEmptyDataset(t *testing.T) {
	text := Fallback(nil)
	if !strings.Contains(text, "Top cargo: N/A.") {
		t.Errorf("expected N/A cargo list, got %q", text)
	}
}

func TestFallbackRanksByFrequency(t *testing.T) {
	records := []models.Opportunity{
		{Cargo: "LBO"},
		{Cargo: "Methanol"},
		{Cargo: "Methanol"},
		{Cargo: "Paraxylene"},
		{Cargo: "Methanol"},
		{Cargo: "Paraxylene"},
	}
	text := Fallback(records)
	if !strings.Contains(text, "Top cargo: Methanol, Paraxylene, LBO.") {
		t.Errorf("unexpected ranking: %q", text)
	}
}

func TestBuildPromptFromTexts(t *testing.T) {
	got := buildPrompt([]string{"alpha", "beta"}, nil)
	if !strings.Contains(got, "[1] alpha") || !strings.Contains(got, "[2] beta") {
		t.Errorf("unexpected prompt: %q", got)
	}
}

func TestBuildPromptFromCargoMix(t *testing.T) {
	got := buildPrompt(nil, models.DefaultOpportunities())
	if !strings.Contains(got, "Paraxylene, LBO, Methanol") {
		t.Errorf("unexpected cargo mix prompt: %q", got)
	}
}

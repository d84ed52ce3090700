package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"voyageflow/config"
	"voyageflow/internal/metrics"
	"voyageflow/logger"
	"voyageflow/models"
)

const (
	SourceExternal = "external"
	SourceFallback = "fallback"
)

// Service produces natural language summaries of the current dataset. When an
// API key is configured it calls the chat completions endpoint; otherwise, or
// whenever the external call fails, it degrades to a deterministic local
// summary so the endpoint always answers.
type Service struct {
	cfg     config.SummaryConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Entry
}

func NewService(cfg config.SummaryConfig) *Service {
	return &Service{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.Burst),
		log:     logger.GetLogger().WithComponent("summary"),
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize returns the summary text and the source that produced it. The
// fallback path never fails, so the returned error is reserved for future use.
func (s *Service) Summarize(ctx context.Context, texts []string, records []models.Opportunity) (string, string, error) {
	prompt := buildPrompt(texts, records)

	if s.cfg.APIKey != "" {
		text, err := s.callExternal(ctx, prompt)
		if err == nil {
			metrics.SummaryRequests.WithLabelValues(SourceExternal).Inc()
			logger.IncrementSummaryCall(len(text))
			return text, SourceExternal, nil
		}
		s.log.WithError(err).Warn("external summary failed, using fallback")
	}

	text := Fallback(records)
	metrics.SummaryRequests.WithLabelValues(SourceFallback).Inc()
	logger.IncrementSummaryCall(len(text))
	return text, SourceFallback, nil
}

func buildPrompt(texts []string, records []models.Opportunity) string {
	if len(texts) > 0 {
		var b strings.Builder
		b.WriteString("Summarize the following publications into 3 concise bullets:\n\n")
		for i, t := range texts {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[%d] %s", i+1, t)
		}
		return b.String()
	}

	cargoes := uniqueCargoes(records)
	mix := strings.Join(cargoes, ", ")
	if mix == "" {
		mix = "N/A"
	}
	return fmt.Sprintf("Summarize market implications based on cargo mix: %s and provide 3 action bullets for commercial and 2 for operations.", mix)
}

func (s *Service) callExternal(ctx context.Context, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:     s.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call summary endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read summary response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summary endpoint returned status %d", resp.StatusCode)
	}

	logger.LogPerformanceEntry(s.log, "summary", "chat_completion", time.Since(start), logger.Fields{
		"model": s.cfg.Model,
	})

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode summary response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		// Mirror the raw body so callers can see what came back.
		return string(raw), nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// Fallback builds the deterministic local summary from cargo frequencies.
func Fallback(records []models.Opportunity) string {
	type cargoCount struct {
		cargo string
		count int
	}
	counts := map[string]int{}
	var order []string
	for _, r := range records {
		if r.Cargo == "" {
			continue
		}
		if _, seen := counts[r.Cargo]; !seen {
			order = append(order, r.Cargo)
		}
		counts[r.Cargo]++
	}

	ranked := make([]cargoCount, 0, len(order))
	for _, c := range order {
		ranked = append(ranked, cargoCount{cargo: c, count: counts[c]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	top := make([]string, 0, len(ranked))
	for _, cc := range ranked {
		top = append(top, cc.cargo)
	}
	topJoined := strings.Join(top, ", ")
	if topJoined == "" {
		topJoined = "N/A"
	}

	return fmt.Sprintf("Auto-summary (fallback): Top cargo: %s. Actions: 1) Prioritize collections on big-volume cargo lines. 2) Improve vessel availability for routes with many failures. 3) Evaluate margins on top cargos.", topJoined)
}

func uniqueCargoes(records []models.Opportunity) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		if r.Cargo == "" {
			continue
		}
		if _, ok := seen[r.Cargo]; ok {
			continue
		}
		seen[r.Cargo] = struct{}{}
		out = append(out, r.Cargo)
	}
	return out
}

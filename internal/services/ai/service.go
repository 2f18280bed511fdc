package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Service provides AI-powered code analysis
type Service struct {
	cfg        *Config
	httpClient *http.Client
	mu         sync.RWMutex

	// Usage tracking
	dailyTokens map[string]int             // userID -> token count
	dailyCost   map[string]decimal.Decimal // userID -> dollars
	lastReset   time.Time
}

// NewService creates a new AI service
func NewService(cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Service{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		dailyTokens: make(map[string]int),
		dailyCost:   make(map[string]decimal.Decimal),
		lastReset:   time.Now(),
	}
}

// Request is one analysis submission
type Request struct {
	UserID    string
	Code      string
	Features  []Feature
	ImageData []byte // handwritten-code upload, nil otherwise
	ImageMIME string
}

// Section is the output of one feature
type Section struct {
	Feature Feature `json:"feature"`
	Text    string  `json:"text"`
}

// Result is the combined outcome of an analysis request
type Result struct {
	Sections   []Section  `json:"sections"`
	Model      Model      `json:"model"`
	TokensUsed TokenUsage `json:"tokens_used"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// CombinedOutput joins section outputs the way history stores them
func (r *Result) CombinedOutput() string {
	parts := make([]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		parts = append(parts, fmt.Sprintf("%s:\n%s", s.Feature, s.Text))
	}
	return strings.Join(parts, "\n\n")
}

// FeatureLabels returns the labels of the sections produced, in order
func (r *Result) FeatureLabels() []string {
	labels := make([]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		labels = append(labels, string(s.Feature))
	}
	return labels
}

// Analyze runs the selected features over the submitted code. With no
// features selected it runs the single combined analysis. Each feature is
// one model call; a failure aborts the whole request.
func (s *Service) Analyze(ctx context.Context, req *Request) (*Result, error) {
	if err := s.checkRateLimits(req.UserID); err != nil {
		return nil, err
	}

	model := s.selectModel(req.Code)
	result := &Result{Model: model}

	if len(req.Features) == 0 {
		text, usage, err := s.generate(ctx, model, completePrompt(req.Code), nil, "")
		if err != nil {
			return nil, err
		}
		s.trackUsage(req.UserID, model, usage)
		result.Sections = append(result.Sections, Section{Feature: FeatureComplete, Text: text})
		result.TokensUsed = usage
		return result, nil
	}

	for _, feature := range req.Features {
		var (
			text  string
			usage TokenUsage
			err   error
		)
		if feature.NeedsImage() {
			if len(req.ImageData) == 0 {
				continue
			}
			text, usage, err = s.generate(ctx, model, feature.Prompt(""), req.ImageData, req.ImageMIME)
		} else {
			text, usage, err = s.generate(ctx, model, feature.Prompt(req.Code), nil, "")
		}
		if err != nil {
			return nil, fmt.Errorf("analysis %q failed: %w", feature, err)
		}

		s.trackUsage(req.UserID, model, usage)
		result.Sections = append(result.Sections, Section{Feature: feature, Text: text})
		result.TokensUsed.Input += usage.Input
		result.TokensUsed.Output += usage.Output
		result.TokensUsed.Total += usage.Total
	}

	if len(result.Sections) == 0 {
		return nil, fmt.Errorf("no analysis produced: selected features need an image upload")
	}

	return result, nil
}

// selectModel routes long inputs to the larger model
func (s *Service) selectModel(code string) Model {
	if len(code) >= s.cfg.LongInputThreshold {
		return s.cfg.LongModel
	}
	return s.cfg.DefaultModel
}

// generate makes one generateContent request to the Gemini API
func (s *Service) generate(ctx context.Context, model Model, prompt string, image []byte, imageMIME string) (string, TokenUsage, error) {
	parts := []map[string]interface{}{
		{"text": prompt},
	}
	if len(image) > 0 {
		if imageMIME == "" {
			imageMIME = "image/png"
		}
		parts = append(parts, map[string]interface{}{
			"inline_data": map[string]string{
				"mime_type": imageMIME,
				"data":      base64.StdEncoding.EncodeToString(image),
			},
		})
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": s.cfg.MaxOutputTokens,
			"temperature":     s.cfg.Temperature,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", TokenUsage{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.cfg.BaseURL, model)

	// Retry transient failures with linear backoff
	var resp *http.Response
	for i := 0; i <= s.cfg.MaxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
		if err != nil {
			return "", TokenUsage{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", s.cfg.APIKey)

		resp, err = s.httpClient.Do(req)
		if err == nil && resp.StatusCode < 500 {
			break
		}
		if i == s.cfg.MaxRetries {
			if err != nil {
				return "", TokenUsage{}, err
			}
			break // final 5xx surfaces through the status check below
		}
		if err == nil {
			resp.Body.Close()
		}
		select {
		case <-time.After(time.Duration(i+1) * time.Second):
		case <-ctx.Done():
			return "", TokenUsage{}, ctx.Err()
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", TokenUsage{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return "", TokenUsage{}, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", TokenUsage{}, err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", TokenUsage{}, fmt.Errorf("empty response from API")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	usage := TokenUsage{
		Input:  result.UsageMetadata.PromptTokenCount,
		Output: result.UsageMetadata.CandidatesTokenCount,
		Total:  result.UsageMetadata.TotalTokenCount,
	}
	if usage.Total == 0 {
		usage.Total = usage.Input + usage.Output
	}

	return sb.String(), usage, nil
}

// checkRateLimits verifies the user hasn't exceeded the daily token budget
func (s *Service) checkRateLimits(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reset daily counters if needed
	if time.Since(s.lastReset) > 24*time.Hour {
		s.dailyTokens = make(map[string]int)
		s.dailyCost = make(map[string]decimal.Decimal)
		s.lastReset = time.Now()
	}

	if s.dailyTokens[userID] >= s.cfg.DailyTokenBudget {
		return fmt.Errorf("daily token limit exceeded")
	}

	return nil
}

// trackUsage records token and cost consumption
func (s *Service) trackUsage(userID string, model Model, usage TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dailyTokens[userID] += usage.Total

	if s.cfg.EnableCostTracking {
		if cost, ok := ModelCosts[model]; ok {
			million := decimal.NewFromInt(1_000_000)
			spent := cost.Input.Mul(decimal.NewFromInt(int64(usage.Input))).Div(million).
				Add(cost.Output.Mul(decimal.NewFromInt(int64(usage.Output))).Div(million))
			s.dailyCost[userID] = s.dailyCost[userID].Add(spent)
		}
	}
}

// GetUsageStats returns usage statistics for a user
func (s *Service) GetUsageStats(userID string) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokensUsed := s.dailyTokens[userID]
	remaining := s.cfg.DailyTokenBudget - tokensUsed

	return map[string]interface{}{
		"tokens_used_today": tokensUsed,
		"tokens_remaining":  remaining,
		"daily_limit":       s.cfg.DailyTokenBudget,
		"cost_today_usd":    s.dailyCost[userID].StringFixed(4),
		"reset_time":        s.lastReset.Add(24 * time.Hour),
	}
}

// Package ai provides AI-powered code analysis using Gemini
package ai

import (
	"time"

	"github.com/shopspring/decimal"
)

// Model represents an available Gemini model
type Model string

const (
	// ModelFlash is fast and cheap; the default for all analyses
	ModelFlash Model = "gemini-1.5-flash"
	// ModelPro is the larger model for long inputs
	ModelPro Model = "gemini-1.5-pro"
)

// TokenCost represents cost per million tokens, in dollars
type TokenCost struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// ModelCosts defines pricing for each model (per million tokens)
var ModelCosts = map[Model]TokenCost{
	ModelFlash: {Input: decimal.NewFromFloat(0.075), Output: decimal.NewFromFloat(0.30)},
	ModelPro:   {Input: decimal.NewFromFloat(1.25), Output: decimal.NewFromFloat(5.00)},
}

// Config holds AI service configuration
type Config struct {
	// API configuration
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration

	// Generation settings
	DefaultModel Model
	LongModel    Model
	// Inputs at or above this length route to LongModel
	LongInputThreshold int
	MaxOutputTokens    int
	Temperature        float64

	// Cost management
	DailyTokenBudget   int
	EnableCostTracking bool
}

// DefaultConfig returns production-ready defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		MaxRetries: 3,
		Timeout:    60 * time.Second,

		DefaultModel:       ModelFlash,
		LongModel:          ModelPro,
		LongInputThreshold: 20000,
		MaxOutputTokens:    4096,
		Temperature:        0.3,

		DailyTokenBudget:   500000, // 500K tokens/day per user
		EnableCostTracking: true,
	}
}

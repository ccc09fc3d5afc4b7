package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerlog/careerlog/models"
	openai_provider "github.com/careerlog/careerlog/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	// ScoreMatches scores each entry item against the responsibility list.
	// Replies that fail the response contract surface *models.SchemaError.
	ScoreMatches(ctx context.Context, responsibilities []string, items []models.EntryItem) ([]models.ScoredMatch, error)

	// GenerateReview synthesizes a month of entries into a review.
	GenerateReview(ctx context.Context, month, year int, entries []models.Entry) (models.Review, error)
}

// Options configures a provider client.
type Options struct {
	APIKey          string
	CompletionModel string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, opts Options) (Provider, error) {
	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		model := opts.CompletionModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return openai_provider.NewClient(opts.APIKey, model, opts.Temperature, opts.MaxTokens, timeout), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", client)
	}
}

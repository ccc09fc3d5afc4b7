package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/careerlog/careerlog/models"
)

const (
	openaiAPIURL = "https://api.openai.com/v1/chat/completions"
)

// client implements the provider contract using OpenAI's API
type client struct {
	apiKey          string
	completionModel string
	temperature     float64
	maxTokens       int
	httpClient      *http.Client
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a request to the OpenAI API
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a new OpenAI client
func NewClient(apiKey, completionModel string, temperature float64, maxTokens int, timeout time.Duration) *client {
	return &client{
		apiKey:          apiKey,
		completionModel: completionModel,
		temperature:     temperature,
		maxTokens:       maxTokens,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// ScoreMatches asks the model to score each entry item against the
// responsibility list. The reply must be the exact JSON array shape below;
// anything else is a *models.SchemaError, never a guessed default.
func (c *client) ScoreMatches(ctx context.Context, responsibilities []string, items []models.EntryItem) ([]models.ScoredMatch, error) {
	systemPrompt := `
You match journal entries against job responsibilities. For each responsibility
that is evidenced by one or more of the entry items, emit one match object.

RULES:
1. Only emit a match when the items genuinely relate to the responsibility.
2. score is a float in [0,1]: how strongly the cited items evidence it.
3. responsibility_index and matched_item_indices are 0-based positions into
   the lists given below.

RESPONSE FORMAT:
Respond ONLY with a valid JSON array:
[
  {"responsibility_index": 0, "matched_item_indices": [1, 2], "score": 0.8}
]
Do not include any other text or explanation. An empty array is valid.
`
	var rb strings.Builder
	for i, r := range responsibilities {
		fmt.Fprintf(&rb, "%d. %s\n", i, r)
	}
	var ib strings.Builder
	for i, item := range items {
		fmt.Fprintf(&ib, "%d. [%s] %s\n", i, item.Category, item.Text)
	}
	userPrompt := fmt.Sprintf("RESPONSIBILITIES:\n%s\nENTRY ITEMS:\n%s", rb.String(), ib.String())

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	responseStr, err := c.sendRequest(ctx, messages)
	if err != nil {
		return nil, err
	}

	var scored []models.ScoredMatch
	if err := json.Unmarshal([]byte(stripCodeFence(responseStr)), &scored); err != nil {
		return nil, &models.SchemaError{Op: "score_matches", Reason: err.Error()}
	}
	return scored, nil
}

// GenerateReview synthesizes a month of entries into a performance-review
// summary. Shape violations surface as *models.SchemaError so the caller
// can substitute the typed fallback.
func (c *client) GenerateReview(ctx context.Context, month, year int, entries []models.Entry) (models.Review, error) {
	systemPrompt := `
You write short, factual monthly performance-review summaries from a user's
work journal. Ground every statement in the entries; never invent work.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{
  "summary": "two or three sentences",
  "wins": ["array", "of", "strings"],
  "growth": ["array", "of", "strings"],
  "themes": ["array", "of", "strings"]
}
Do not include any other text or explanation.
`
	var eb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&eb, "Date: %s\n", e.EntryDate.Format("2006-01-02"))
		for _, item := range e.Items {
			fmt.Fprintf(&eb, "- [%s] %s\n", item.Category, item.Text)
		}
		eb.WriteString("\n")
	}
	userPrompt := fmt.Sprintf("MONTH: %d-%02d\n\nENTRIES:\n%s", year, month, eb.String())

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	responseStr, err := c.sendRequest(ctx, messages)
	if err != nil {
		return models.Review{}, err
	}

	var parsed struct {
		Summary string   `json:"summary"`
		Wins    []string `json:"wins"`
		Growth  []string `json:"growth"`
		Themes  []string `json:"themes"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(responseStr)), &parsed); err != nil {
		return models.Review{}, &models.SchemaError{Op: "generate_review", Reason: err.Error()}
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return models.Review{}, &models.SchemaError{Op: "generate_review", Reason: "summary missing"}
	}
	return models.Review{
		Month:   month,
		Year:    year,
		Summary: parsed.Summary,
		Wins:    parsed.Wins,
		Growth:  parsed.Growth,
		Themes:  parsed.Themes,
	}, nil
}

// sendRequest sends a request to the OpenAI API
func (c *client) sendRequest(ctx context.Context, messages []Message) (string, error) {
	requestBody := request{
		Model:       c.completionModel,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openaiAPIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var openaiResp response
	if err := json.Unmarshal(buf.Bytes(), &openaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return openaiResp.Choices[0].Message.Content, nil
}

// stripCodeFence unwraps ```json fenced replies some models insist on.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Package ai calls a Gemini-style generateContent endpoint to parse free-text
// task input into a structured draft. The service is strictly best-effort:
// callers fall back to the deterministic parser whenever this client is
// disabled, unreachable, or returns output that fails validation.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hylla/flyt/internal/domain"
	"github.com/hylla/flyt/internal/parse"
)

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel    = "gemini-2.5-flash"

	requestTimeout = 15 * time.Second
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("ai: no api key configured")

const systemPrompt = `You are a task parsing assistant. Given natural language input, extract structured task data.

Rules:
1. Extract the core task title, removing date/time/duration modifiers
2. Parse relative dates ("today", "tomorrow", "next Monday") to ISO format (YYYY-MM-DD)
3. Parse times to 24-hour format (HH:mm)
4. Convert duration expressions to minutes ("1 hour" = 60, "30 mins" = 30)
5. Extract hashtags as tags (without the # symbol)
6. Infer work/life category from context keywords

Return a JSON object with these fields:
- title: string
- scheduledDate: string | null (ISO date YYYY-MM-DD)
- scheduledTime: string | null (HH:mm format)
- estimatedMinutes: number | null
- tags: string[]
- category: "work" | "life" | null`

// Client talks to one configured model endpoint.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithEndpoint points the client at a different API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

// WithModel selects the model name used in request paths.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient constructs a client. An empty apiKey yields a disabled client
// whose ParseTask always returns ErrDisabled.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		model:    defaultModel,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// draftPayload is the JSON shape the model is asked to produce.
type draftPayload struct {
	Title            string   `json:"title"`
	ScheduledDate    *string  `json:"scheduledDate"`
	ScheduledTime    *string  `json:"scheduledTime"`
	EstimatedMinutes *int     `json:"estimatedMinutes"`
	Tags             []string `json:"tags"`
	Category         *string  `json:"category"`
}

// ParseTask asks the model to parse input into a draft. The current date is
// included so relative phrases resolve deterministically. Any transport,
// status, or validation failure is returned as an error for the caller to
// fall back on.
func (c *Client) ParseTask(ctx context.Context, input string, now time.Time) (parse.Draft, error) {
	if !c.Enabled() {
		return parse.Draft{}, ErrDisabled
	}

	prompt := fmt.Sprintf("%s\n\nToday's date: %s\n\nParse this task input:\n%q",
		systemPrompt, now.Format(time.DateOnly), input)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.1,
			MaxOutputTokens:  1000,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return parse.Draft{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return parse.Draft{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return parse.Draft{}, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return parse.Draft{}, fmt.Errorf("read response: %w", err)
	}

	var parsed generateResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error.Message != "" {
			return parse.Draft{}, fmt.Errorf("model error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return parse.Draft{}, fmt.Errorf("model error (%d)", resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return parse.Draft{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return parse.Draft{}, errors.New("empty model response")
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(parsed.Candidates[0].Content.Parts[0].Text), &payload); err != nil {
		return parse.Draft{}, fmt.Errorf("invalid structured output: %w", err)
	}
	return draftFromPayload(payload)
}

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// draftFromPayload validates model output field by field. A bad title fails
// the whole parse; other malformed fields are dropped rather than guessed at.
func draftFromPayload(p draftPayload) (parse.Draft, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return parse.Draft{}, errors.New("model returned an empty title")
	}

	draft := parse.Draft{Title: title}
	if p.ScheduledDate != nil {
		if date, err := time.ParseInLocation(time.DateOnly, *p.ScheduledDate, time.UTC); err == nil {
			draft.ScheduledDate = &date
		}
	}
	if p.ScheduledTime != nil && clockPattern.MatchString(*p.ScheduledTime) {
		draft.ScheduledTime = *p.ScheduledTime
	}
	if p.EstimatedMinutes != nil && *p.EstimatedMinutes > 0 {
		draft.EstimatedMinutes = *p.EstimatedMinutes
	}
	for _, tag := range p.Tags {
		tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
		if tag != "" {
			draft.Tags = append(draft.Tags, tag)
		}
	}
	if p.Category != nil {
		switch domain.Category(*p.Category) {
		case domain.CategoryWork:
			draft.Category = domain.CategoryWork
		case domain.CategoryLife:
			draft.Category = domain.CategoryLife
		}
	}
	return draft, nil
}

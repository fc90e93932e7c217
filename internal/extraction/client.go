// Package extraction calls an external AI service to pull structured
// fields out of document text: chat completion for field extraction and an
// async OCR pipeline for scanned uploads.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config holds extraction service configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client talks to the extraction API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	// zero means the package defaults; tests shorten these
	pollInterval time.Duration
	pollBudget   time.Duration
}

// NewClient creates an extraction client. If APIKey is empty the client is
// not configured and calls return ErrNotConfigured.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

var ErrNotConfigured = fmt.Errorf("extraction service not configured")

// APIError is a non-2xx response from the extraction API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("extraction API returned %d: %s", e.StatusCode, e.Body)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ExtractFields asks the model to pull the named fields out of document
// text and returns them as a string map. Fields the model does not find
// are omitted from the result.
func (c *Client) ExtractFields(ctx context.Context, text string, fields []string) (map[string]string, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	prompt := fmt.Sprintf(
		"Extract the following fields from the document below and respond with a single JSON object whose keys are the field names. Omit any field not present in the document. Fields: %s\n\nDocument:\n%s",
		strings.Join(fields, ", "), text,
	)

	reply, err := c.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := ParseJSONReply(reply)
	if err != nil {
		return nil, err
	}

	// Keep only the requested fields; the model sometimes volunteers extras.
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}
	out := make(map[string]string)
	for k, v := range raw {
		if !want[k] {
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = fmt.Sprintf("%t", val)
		}
	}
	return out, nil
}

func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You extract structured data from legal and financial documents. Respond only with JSON."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return cr.Choices[0].Message.Content, nil
}

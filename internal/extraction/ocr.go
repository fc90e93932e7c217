package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	ocrPollInterval = 2 * time.Second
	ocrPollBudget   = 90 * time.Second
)

// OCRJob identifies a submitted OCR document.
type OCRJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OCRResult is the recognized text of a completed job.
type OCRResult struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
}

type ocrSubmitRequest struct {
	RequestID string `json:"request_id"`
	Filename  string `json:"filename"`
	Content   []byte `json:"content"`
}

type ocrStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SubmitOCR uploads a scanned document for recognition and returns the job
// handle. The request carries a client-generated ID so a retried submit
// cannot create a duplicate job.
func (c *Client) SubmitOCR(ctx context.Context, filename string, content []byte) (*OCRJob, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(ocrSubmitRequest{
		RequestID: uuid.NewString(),
		Filename:  filename,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/ocr/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit ocr: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var job OCRJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &job, nil
}

// WaitOCR polls the job until it completes, fails, or the poll budget runs
// out. Polling is constant-interval with a hard overall deadline.
func (c *Client) WaitOCR(ctx context.Context, jobID string) (*OCRResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	interval, budget := c.pollInterval, c.pollBudget
	if interval == 0 {
		interval = ocrPollInterval
	}
	if budget == 0 {
		budget = ocrPollBudget
	}
	backoff := retry.WithMaxDuration(budget, retry.NewConstant(interval))

	var result *OCRResult
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, err := c.ocrStatus(ctx, jobID)
		if err != nil {
			// Transient transport errors keep polling; API errors are final.
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return err
			}
			return retry.RetryableError(err)
		}

		switch status.Status {
		case "completed":
			result = &OCRResult{JobID: status.ID, Text: status.Text}
			return nil
		case "failed":
			return fmt.Errorf("ocr job %s failed: %s", jobID, status.Error)
		default:
			return retry.RetryableError(fmt.Errorf("ocr job %s still %s", jobID, status.Status))
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) ocrStatus(ctx context.Context, jobID string) (*ocrStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.cfg.BaseURL+"/ocr/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr status: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var status ocrStatusResponse
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &status, nil
}

package cwc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

const (
	defaultSubmitTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of an intake response is read;
	// receipts are tiny and anything larger is garbage.
	maxResponseBytes = 1 << 20
)

// wireRequest is the submission payload for both chambers.
type wireRequest struct {
	OfficeID   string `json:"office_id"`
	TemplateID string `json:"template_id"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Client submits messages to the House and Senate intake endpoints.
// The zero value is not usable; populate the endpoint URLs.
type Client struct {
	// HouseURL and SenateURL are the chamber intake endpoints; requests
	// POST directly to them.
	HouseURL  string
	SenateURL string
	// APIKey is sent as X-Api-Key when non-empty.
	APIKey string
	// Timeout bounds each submission including connect and body read.
	// Zero means defaultSubmitTimeout.
	Timeout time.Duration
	// HTTPClient overrides http.DefaultClient when non-nil.
	HTTPClient *http.Client
}

var _ Submitter = (*Client)(nil)

// Submit posts the message to the chamber's intake and parses the answer.
// One request, no retries; see the package comment for why.
func (c *Client) Submit(ctx context.Context, chamber domain.Chamber, officeID string, msg Message) (SubmissionResult, error) {
	endpoint, err := c.endpointFor(chamber)
	if err != nil {
		return SubmissionResult{}, err
	}

	payload, err := json.Marshal(wireRequest{
		OfficeID:   officeID,
		TemplateID: msg.TemplateID,
		Recipient:  msg.RecipientName,
		Subject:    msg.Subject,
		Body:       msg.Body,
	})
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("encode submission: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("submit to %s intake: %w", chamber, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("read intake response: %w", err)
	}

	return parseSubmissionResponse(resp.StatusCode, body)
}

func (c *Client) endpointFor(chamber domain.Chamber) (string, error) {
	switch chamber {
	case domain.ChamberHouse:
		if c.HouseURL == "" {
			return "", fmt.Errorf("house intake endpoint not configured")
		}
		return c.HouseURL, nil
	case domain.ChamberSenate:
		if c.SenateURL == "" {
			return "", fmt.Errorf("senate intake endpoint not configured")
		}
		return c.SenateURL, nil
	default:
		return "", fmt.Errorf("unknown chamber %q", chamber)
	}
}

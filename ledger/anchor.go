// Package ledger talks to the optional result-anchoring collaborator. A
// finalized match or tournament result is posted and comes back with an
// opaque transaction reference; when the collaborator is absent or down,
// gameplay and bracket correctness are unaffected.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrUnavailable = errors.New("ledger anchoring service unavailable")

// Receipt is the collaborator's proof of anchoring.
type Receipt struct {
	TxRef      string    `json:"tx_ref"`
	AnchoredAt time.Time `json:"anchored_at"`
}

// Record is the finalized result submitted for anchoring.
type Record struct {
	Kind     string          `json:"kind"` // "match" or "tournament"
	RefID    string          `json:"ref_id"`
	WinnerID string          `json:"winner_id"`
	Payload  json.RawMessage `json:"payload"`
}

type Anchorer interface {
	Anchor(ctx context.Context, record Record) (*Receipt, error)
}

type HTTPAnchorerConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

type httpAnchorer struct {
	client    *http.Client
	baseURL   string
	authToken string
}

func NewHTTPAnchorer(cfg HTTPAnchorerConfig) (Anchorer, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("invalid ledger configuration: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &httpAnchorer{
		client:    &http.Client{Timeout: timeout},
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
	}, nil
}

func (a *httpAnchorer) Anchor(ctx context.Context, record Record) (*Receipt, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal anchor record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/anchors", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.authToken)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("ledger rejected anchor for %s: status %d", record.RefID, resp.StatusCode)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to decode anchor receipt: %w", err)
	}
	return &receipt, nil
}

// Disabled is the anchorer used when no collaborator is configured.
type Disabled struct{}

func (Disabled) Anchor(ctx context.Context, record Record) (*Receipt, error) {
	return nil, ErrUnavailable
}

// Package nic talks to the NIC e-invoicing gateway to register invoices and
// obtain IRNs. Payload signing and encryption are delegated to a
// PayloadSealer collaborator; this client only handles transport, auth and
// acknowledgment parsing.
package nic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"billserver/internal/domain"
)

// PayloadSealer produces the signed/encrypted request body the gateway
// expects for an invoice.
type PayloadSealer interface {
	Seal(ctx context.Context, inv *domain.Invoice) ([]byte, error)
}

// Ack is the acknowledgment returned for a registered invoice.
type Ack struct {
	IRN      string
	AckNo    string
	AckDate  time.Time
	SignedQR string
}

// Client is an HTTP client for the NIC e-invoicing API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	username     string
	httpc        *http.Client
	logger       zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a NIC API client.
func NewClient(baseURL, clientID, clientSecret, username string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		username:     username,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		logger:       logger.With().Str("component", "nic_client").Logger(),
	}
}

type authResponse struct {
	Status string `json:"Status"`
	Data   struct {
		AuthToken string `json:"AuthToken"`
		TokenExp  int64  `json:"TokenExpiry"`
	} `json:"Data"`
	ErrorDetails []apiError `json:"ErrorDetails"`
}

type irnResponse struct {
	Status string `json:"Status"`
	Data   struct {
		Irn          string `json:"Irn"`
		AckNo        string `json:"AckNo"`
		AckDt        string `json:"AckDt"`
		SignedQRCode string `json:"SignedQRCode"`
	} `json:"Data"`
	ErrorDetails []apiError `json:"ErrorDetails"`
}

type apiError struct {
	ErrorCode    string `json:"ErrorCode"`
	ErrorMessage string `json:"ErrorMessage"`
}

// GenerateIRN registers a sealed invoice payload and returns the gateway
// acknowledgment. A non-success status is surfaced as domain.ErrIRNRejected
// so callers can distinguish it from transport faults.
func (c *Client) GenerateIRN(ctx context.Context, sealed []byte) (*Ack, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/eicore/v1.03/Invoice", bytes.NewReader(sealed))
	if err != nil {
		return nil, fmt.Errorf("nic: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("client_id", c.clientID)
	req.Header.Set("client_secret", c.clientSecret)
	req.Header.Set("user_name", c.username)
	req.Header.Set("AuthToken", token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nic: submit invoice: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("nic: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nic: gateway returned %d", resp.StatusCode)
	}

	var parsed irnResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("nic: decode response: %w", err)
	}
	if parsed.Status != "1" {
		msg := "unknown error"
		if len(parsed.ErrorDetails) > 0 {
			msg = parsed.ErrorDetails[0].ErrorMessage
		}
		c.logger.Warn().Str("status", parsed.Status).Str("error", msg).Msg("irn generation rejected")
		return nil, fmt.Errorf("%w: %s", domain.ErrIRNRejected, msg)
	}

	ackDate, err := time.ParseInLocation("2006-01-02 15:04:05", parsed.Data.AckDt, time.Local)
	if err != nil {
		return nil, fmt.Errorf("nic: bad ack date %q: %w", parsed.Data.AckDt, err)
	}
	return &Ack{
		IRN:      parsed.Data.Irn,
		AckNo:    parsed.Data.AckNo,
		AckDate:  ackDate,
		SignedQR: parsed.Data.SignedQRCode,
	}, nil
}

// ensureToken returns a cached auth token, refreshing it when within a
// minute of expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/eivital/v1.04/auth", nil)
	if err != nil {
		return "", fmt.Errorf("nic: build auth request: %w", err)
	}
	req.Header.Set("client_id", c.clientID)
	req.Header.Set("client_secret", c.clientSecret)
	req.Header.Set("user_name", c.username)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("nic: authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nic: auth returned %d", resp.StatusCode)
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("nic: decode auth response: %w", err)
	}
	if parsed.Status != "1" || parsed.Data.AuthToken == "" {
		return "", fmt.Errorf("nic: auth rejected")
	}

	c.token = parsed.Data.AuthToken
	c.tokenExpiry = time.Unix(parsed.Data.TokenExp, 0)
	if parsed.Data.TokenExp == 0 {
		c.tokenExpiry = time.Now().Add(5 * time.Hour)
	}
	return c.token, nil
}

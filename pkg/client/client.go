// Package client provides the DocVault Go SDK for querying the integrity
// service: Merkle roots, verification reports, and the anchored audit trail.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when the service has no record of the requested
// document.
var ErrNotFound = errors.New("document not found")

// Status mirrors GET /api/v1/integrity/status.
type Status struct {
	Connected      bool   `json:"connected"`
	SimulationMode bool   `json:"simulation_mode"`
	Queued         int    `json:"queued"`
	Processed      uint64 `json:"processed"`
	Dropped        uint64 `json:"dropped"`
	MerkleRoot     string `json:"merkle_root"`
	Documents      int    `json:"documents"`
}

// Root mirrors GET /api/v1/integrity/merkle-root.
type Root struct {
	MerkleRoot string `json:"merkle_root"`
	Documents  int    `json:"documents"`
	Empty      bool   `json:"empty"`
}

// Report mirrors GET /api/v1/integrity/verify-ledger/:id.
type Report struct {
	DocumentID   string `json:"document_id"`
	Verified     bool   `json:"verified"`
	Stage        string `json:"stage"`
	Tier         string `json:"tier,omitempty"`
	StoredHash   string `json:"stored_hash,omitempty"`
	LedgerHash   string `json:"ledger_hash,omitempty"`
	ComputedRoot string `json:"computed_root,omitempty"`
	CurrentRoot  string `json:"current_root,omitempty"`
	Simulated    bool   `json:"simulated"`
}

// RootRecord is one anchored Merkle root.
type RootRecord struct {
	Root      string    `json:"root"`
	Position  uint64    `json:"position"`
	Timestamp time.Time `json:"timestamp"`
	Simulated bool      `json:"simulated"`
}

// HistoryRecord is one anchored document action.
type HistoryRecord struct {
	Position     uint64    `json:"position"`
	Action       string    `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
	ActorHash    string    `json:"actor_hash,omitempty"`
	PayloadHash  string    `json:"payload_hash,omitempty"`
	MetadataHash string    `json:"metadata_hash,omitempty"`
	Simulated    bool      `json:"simulated"`
	Err          string    `json:"error,omitempty"`
}

// Client is the DocVault SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client pointed at the service base URL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Status fetches the integrity subsystem status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.getJSON(ctx, "/api/v1/integrity/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// CurrentRoot fetches the live Merkle root.
func (c *Client) CurrentRoot(ctx context.Context) (*Root, error) {
	var r Root
	if err := c.getJSON(ctx, "/api/v1/integrity/merkle-root", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// VerifyDocument runs the ledger-backed verification for one document.
func (c *Client) VerifyDocument(ctx context.Context, documentID string) (*Report, error) {
	var rep Report
	path := "/api/v1/integrity/verify-ledger/" + url.PathEscape(documentID)
	if err := c.getJSON(ctx, path, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// HistoricalRoots lists the anchored Merkle roots, newest first.
func (c *Client) HistoricalRoots(ctx context.Context) ([]RootRecord, error) {
	var resp struct {
		Roots []RootRecord `json:"roots"`
	}
	if err := c.getJSON(ctx, "/api/v1/ledger/roots", &resp); err != nil {
		return nil, err
	}
	return resp.Roots, nil
}

// DocumentHistory lists the anchored action trail for one document, oldest
// first.
func (c *Client) DocumentHistory(ctx context.Context, documentID string) ([]HistoryRecord, error) {
	var resp struct {
		History []HistoryRecord `json:"history"`
	}
	path := "/api/v1/ledger/history/" + url.PathEscape(documentID)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

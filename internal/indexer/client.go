// Package indexer is an HTTP client for the SuperAxe explorer API that
// serves balances, unspent outputs and transaction broadcast.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public SuperAxe explorer API.
const DefaultBaseURL = "https://api.superaxecoin.com"

const maxBodySize = 4 << 20

var (
	// ErrUnavailable is returned for transport failures, non-2xx responses and malformed bodies.
	ErrUnavailable = errors.New("indexer unavailable")
	// ErrRejected matches every *RejectedError.
	ErrRejected = errors.New("transaction rejected")
)

// RejectedError carries the reason the indexer reported for refusing a broadcast.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return "broadcast rejected: " + e.Message }

// Is makes errors.Is(err, ErrRejected) hold for any RejectedError.
func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

type (
	// Metrics observes every API call.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// Config configures the HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RPS caps outgoing requests per second; zero or negative disables the limit.
	RPS int
}

// Client talks to the indexer API. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rl         ratelimit.Limiter
	metrics    Metrics
	logger     *zap.Logger
}

// New constructs a Client.
func New(cfg Config, metrics Metrics, logger *zap.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	rl := ratelimit.NewUnlimited()
	if cfg.RPS > 0 {
		rl = ratelimit.New(cfg.RPS)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		rl:         rl,
		metrics:    metrics,
		logger:     logger.Named("indexer"),
	}
}

// do sends the request and returns the status code and a size-limited body.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.rl.Take()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrUnavailable, ctxErr)
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: GET %s returned status %d", ErrUnavailable, path, status)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func addressPath(addr, suffix string) string {
	return "/api/address/" + url.PathEscape(addr) + suffix
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("health", err, started)
	}()

	status, _, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: health returned status %d", ErrUnavailable, status)
	}
	return nil
}

// Balance returns the confirmed balance of addr in satoshis.
func (c *Client) Balance(ctx context.Context, addr string) (balance uint64, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("balance", err, started)
	}()

	var resp struct {
		Balance uint64 `json:"balance"`
	}
	if err := c.getJSON(ctx, addressPath(addr, "/balance"), &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// UTXOs returns the unspent outputs of addr in the order the indexer lists them.
func (c *Client) UTXOs(ctx context.Context, addr string) (utxos []UTXO, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("utxos", err, started)
	}()

	if err := c.getJSON(ctx, addressPath(addr, "/utxos"), &utxos); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched utxos", zap.String("address", addr), zap.Int("count", len(utxos)))
	return utxos, nil
}

// AddressInfo returns balance totals and history for addr.
func (c *Client) AddressInfo(ctx context.Context, addr string) (info AddressInfo, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("address_info", err, started)
	}()

	if err := c.getJSON(ctx, addressPath(addr, ""), &info); err != nil {
		return AddressInfo{}, err
	}
	return info, nil
}

// Broadcast submits a raw transaction hex and returns the txid the indexer reports.
func (c *Client) Broadcast(ctx context.Context, txHex string) (txid string, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("broadcast", err, started)
	}()

	status, data, err := c.do(ctx, http.MethodPost, "/api/broadcast", broadcastRequest{Hex: txHex})
	if err != nil {
		return "", err
	}

	var resp broadcastResponse
	decodeErr := json.Unmarshal(data, &resp)
	if decodeErr == nil && resp.Error != "" {
		return "", &RejectedError{Message: resp.Error}
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: broadcast returned status %d", ErrUnavailable, status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decode broadcast response: %v", ErrUnavailable, decodeErr)
	}
	if resp.TxID == "" {
		return "", fmt.Errorf("%w: broadcast response without txid", ErrUnavailable)
	}
	c.logger.Info("transaction broadcast", zap.String("txid", resp.TxID))
	return resp.TxID, nil
}

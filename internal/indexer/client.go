// Package indexer fetches per-chain token records from a GraphQL token indexer.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/identity"
	"multichain-token-lab/internal/observability"
	"multichain-token-lab/internal/tokenid"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultPageSize    = 500
	DefaultConcurrency = 4
)

// ErrUnexpectedStatus is returned when the indexer answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected indexer status")

// Client queries the indexer over GraphQL-over-HTTP.
type Client struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	pageSize    int
	concurrency int
	metrics     *observability.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithPageSize sets how many tokens are requested per page.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithConcurrency bounds the number of chains fetched at once.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMetrics records request latency and errors.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock overrides the time source used to stamp UpdatedAt.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new indexer client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		pageSize:    DefaultPageSize,
		concurrency: DefaultConcurrency,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTokens fetches every chain concurrently and returns the records
// in chainIDs order. The first failing chain cancels the rest.
func (c *Client) FetchTokens(ctx context.Context, chainIDs []uint64) ([]domain.TokenRecord, error) {
	perChain := make([][]domain.TokenRecord, len(chainIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, chainID := range chainIDs {
		g.Go(func() error {
			records, err := c.FetchChainTokens(gctx, chainID)
			if err != nil {
				return fmt.Errorf("chain %d: %w", chainID, err)
			}
			perChain[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, records := range perChain {
		total += len(records)
	}
	all := make([]domain.TokenRecord, 0, total)
	for _, records := range perChain {
		all = append(all, records...)
	}
	return all, nil
}

// FetchChainTokens pages through one chain's tokens, highest pooled value first.
func (c *Client) FetchChainTokens(ctx context.Context, chainID uint64) ([]domain.TokenRecord, error) {
	var records []domain.TokenRecord
	stamp := c.now().UnixMilli()

	for skip := 0; ; skip += c.pageSize {
		vars := map[string]any{
			"chainId": chainID,
			"first":   c.pageSize,
			"skip":    skip,
		}

		var data tokensData
		if err := c.query(ctx, chainID, tokensQuery, vars, &data); err != nil {
			return nil, err
		}

		for _, t := range data.Tokens {
			if t.Address == "" {
				continue
			}
			rec := domain.TokenRecord{
				ID:                  tokenid.Build(chainID, t.Address),
				ChainID:             chainID,
				Address:             t.Address,
				Name:                t.Name,
				Symbol:              t.Symbol,
				LogoURL:             t.LogoURL,
				TotalValuePooledUsd: float64(t.TotalValuePooledUsd),
				PriceUsd:            float64(t.PriceUsd),
				UpdatedAt:           stamp,
			}
			identity.Normalize(&rec)
			if !tokenid.Valid(rec.ID) {
				// Other address encodings are still usable as ids.
				c.logger.Debug().Str("token_id", string(rec.ID)).Msg("unrecognized address format")
			}
			records = append(records, rec)
		}

		c.logger.Debug().
			Uint64("chain_id", chainID).
			Int("skip", skip).
			Int("page", len(data.Tokens)).
			Msg("fetched token page")

		if len(data.Tokens) < c.pageSize {
			return records, nil
		}
	}
}

// query performs a GraphQL request with retries and exponential backoff.
func (c *Client) query(ctx context.Context, chainID uint64, q string, vars map[string]any, result any) (err error) {
	start := time.Now()
	defer func() {
		tokens := 0
		if d, ok := result.(*tokensData); ok && err == nil {
			tokens = len(d.Tokens)
		}
		c.metrics.RecordIndexerRequest(strconv.FormatUint(chainID, 10), time.Since(start).Seconds(), tokens, err)
	}()

	body, err := json.Marshal(graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("retrying indexer request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: rate limited (429)", ErrUnexpectedStatus)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(respBody, 256))
			// Client errors will not change on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return statusErr
			}
			lastErr = statusErr
			continue
		}

		var gqlResp graphQLResponse
		if err := json.Unmarshal(respBody, &gqlResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if len(gqlResp.Errors) > 0 {
			// GraphQL errors are not retried
			return gqlResp.Errors
		}

		if result != nil && gqlResp.Data != nil {
			if err := json.Unmarshal(gqlResp.Data, result); err != nil {
				return fmt.Errorf("unmarshal data: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

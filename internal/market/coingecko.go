// Package market hosts the CoinGecko connector, the only permitted data source.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/CBoon99/spiralbot-v2/internal/metrics"
)

const (
	defaultBaseURL    = "https://api.coingecko.com/api/v3"
	defaultVsCurrency = "usd"
	defaultTimeout    = 15 * time.Second
	maxPerPage        = 100 // API page size cap
	userAgent         = "spiralbot-go/2.1 (simulation)"
)

type marketEntry struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`
}

// Client polls CoinGecko market listings with bounded retries.
type Client struct {
	baseURL    string
	vsCurrency string
	topN       int
	maxRetries int
	http       *http.Client
	log        zerolog.Logger
	calls      int64
}

// Option configures Client construction parameters.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient constructs a CoinGecko client for the given base URL and universe size.
func NewClient(baseURL, vsCurrency string, topN, maxRetries int, log zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if vsCurrency == "" {
		vsCurrency = defaultVsCurrency
	}
	if topN <= 0 {
		topN = 50
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		vsCurrency: vsCurrency,
		topN:       topN,
		maxRetries: maxRetries,
		http:       &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calls reports how many requests have been issued this run.
func (c *Client) Calls() int64 { return atomic.LoadInt64(&c.calls) }

// FetchPrices returns the current price per upper-cased symbol for the top-N
// coins by market cap. Entries without a positive price are dropped.
func (c *Client) FetchPrices(ctx context.Context) (map[string]float64, error) {
	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(min(c.topN, maxPerPage)))
	params.Set("page", "1")
	params.Set("sparkline", "false")

	body, err := c.get(ctx, c.baseURL+"/coins/markets?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var entries []marketEntry
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode markets response: %w", err)
	}

	prices := make(map[string]float64, len(entries))
	for _, entry := range entries {
		symbol := strings.ToUpper(strings.TrimSpace(entry.Symbol))
		if symbol == "" || entry.CurrentPrice <= 0 {
			continue
		}
		prices[symbol] = entry.CurrentPrice
	}
	c.log.Debug().Int("symbols", len(prices)).Int64("call", c.Calls()).Msg("fetched market prices")
	return prices, nil
}

// Ping probes API reachability. Used by the supervisor preflight; a failure
// here is a warning, not a launch blocker.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.get(ctx, c.baseURL+"/ping")
	if err != nil {
		return err
	}
	body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) (body io.ReadCloser, err error) {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if rerr != nil {
			return nil, fmt.Errorf("create request: %w", rerr)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		atomic.AddInt64(&c.calls, 1)
		metrics.APICallsTotal.Inc()
		resp, derr := c.http.Do(req)
		if derr == nil && resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		if derr == nil {
			resp.Body.Close()
			err = fmt.Errorf("unexpected status %d", resp.StatusCode)
			if !retryableStatus(resp.StatusCode) {
				return nil, err
			}
		} else {
			err = fmt.Errorf("http do: %w", derr)
		}

		if attempt >= c.maxRetries {
			return nil, err
		}
		c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("market request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

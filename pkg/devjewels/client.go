package devjewels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultStockURL is the DevJewels stock endpoint.
	DefaultStockURL = "https://admin.devjewels.com/mobileapi/api_stock.php"
	// DefaultDesignURL is the DevJewels design metadata endpoint.
	DefaultDesignURL = "https://admin.devjewels.com/mobileapi/api_design.php"

	defaultStockTimeout  = 10 * time.Second
	defaultDesignTimeout = 30 * time.Second

	// maxBodyBytes caps how much of a feed response is read.
	maxBodyBytes = 64 << 20
)

// Config holds the parameters of a DevJewels client.
type Config struct {
	StockURL      string
	DesignURL     string
	UserID        string
	StockTimeout  time.Duration
	DesignTimeout time.Duration
	Debug         bool
}

// Client fetches raw stock and design records from the DevJewels feeds.
// It performs exactly one round trip per call and never retries.
type Client struct {
	stockURL   string
	designURL  string
	userID     string
	stockHTTP  *http.Client
	designHTTP *http.Client
	debug      bool
}

// NewClient constructs a Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.StockURL == "" {
		cfg.StockURL = DefaultStockURL
	}
	if cfg.DesignURL == "" {
		cfg.DesignURL = DefaultDesignURL
	}
	if cfg.StockTimeout <= 0 {
		cfg.StockTimeout = defaultStockTimeout
	}
	if cfg.DesignTimeout <= 0 {
		cfg.DesignTimeout = defaultDesignTimeout
	}
	return &Client{
		stockURL:   cfg.StockURL,
		designURL:  cfg.DesignURL,
		userID:     cfg.UserID,
		stockHTTP:  &http.Client{Timeout: cfg.StockTimeout},
		designHTTP: &http.Client{Timeout: cfg.DesignTimeout},
		debug:      cfg.Debug,
	}
}

// FetchStock retrieves and validates the stock feed.
func (c *Client) FetchStock(ctx context.Context) (*StockFeed, error) {
	raw, err := c.fetch(ctx, c.stockHTTP, feedStock, c.stockURL)
	if err != nil {
		return nil, err
	}
	feed := validateStock(raw)
	logRejected(feedStock, feed.Rejected)
	return feed, nil
}

// FetchDesigns retrieves and validates the design feed.
func (c *Client) FetchDesigns(ctx context.Context) (*DesignFeed, error) {
	raw, err := c.fetch(ctx, c.designHTTP, feedDesign, c.designURL)
	if err != nil {
		return nil, err
	}
	feed := validateDesigns(raw)
	logRejected(feedDesign, feed.Rejected)
	return feed, nil
}

// fetch posts the credentials to url and returns the records under "data".
// Every failure is reported as a *FeedError.
func (c *Client) fetch(ctx context.Context, hc *http.Client, feed, url string) ([]json.RawMessage, error) {
	payload, err := json.Marshal(FeedRequest{UserID: c.userID})
	if err != nil {
		return nil, &FeedError{Feed: feed, Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &FeedError{Feed: feed, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &FeedError{Feed: feed, Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FeedError{Feed: feed, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if c.debug {
		log.Debug().
			Str("feed", feed).
			Int("status_code", resp.StatusCode).
			Int("bytes", len(body)).
			Dur("latency", time.Since(start)).
			Msg("[DEVJEWELS] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FeedError{Feed: feed, StatusCode: resp.StatusCode, Cause: errors.New(http.StatusText(resp.StatusCode))}
	}

	var env feedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &FeedError{Feed: feed, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	if env.Data == nil {
		return nil, &FeedError{Feed: feed, Cause: errors.New("response has no data field")}
	}
	return *env.Data, nil
}

func logRejected(feed string, rejected []*RecordError) {
	for _, r := range rejected {
		log.Warn().Err(r.Err).Str("feed", feed).Int("index", r.Index).Msg("Skipping invalid feed record")
	}
}

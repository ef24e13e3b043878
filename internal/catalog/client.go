package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"listing-sync/internal/models"
	"listing-sync/internal/util"

	"go.uber.org/zap"
)

const maxBodySize = 8 << 20

// Doer executes HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the remote catalog JSON API
type Client struct {
	doer      Doer
	endpoint  string
	apiKey    string
	userAgent string
	logger    *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a catalog client for the given connection settings
func NewClient(doer Doer, settings models.CatalogSettings, opts ...Option) *Client {
	c := &Client{
		doer:      doer,
		endpoint:  settings.Endpoint(),
		apiKey:    settings.APIKey,
		userAgent: "listing-sync",
		logger:    util.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns the http.Client used for catalog and image requests
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// post sends body as JSON to resource and decodes the JSON response into out
func (c *Client) post(ctx context.Context, operation, resource string, body, out interface{}) error {
	start := time.Now()
	defer func() {
		util.CatalogRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	if err := c.do(ctx, resource, body, out); err != nil {
		util.CatalogRequestErrors.WithLabelValues(operation).Inc()
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, resource string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.endpoint + "/" + strings.TrimLeft(resource, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "bearer "+c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Preview:    bodyPreview(raw),
		}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return &TransportError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Preview:    bodyPreview(raw),
			Reason:     fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type")),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Preview:    bodyPreview(raw),
			Reason:     "malformed JSON body",
		}
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// nameDomain is the exact-match-by-name search filter
func nameDomain(name string) map[string]interface{} {
	return map[string]interface{}{
		"domain": [][]interface{}{{"name", "=", name}},
	}
}

// parseIDs accepts a single id, an array of ids or an array of records with an id field
func parseIDs(raw json.RawMessage) ([]int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] != '[' {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		return []int64{id}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := parseID(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(raw json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var record struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return 0, fmt.Errorf("unexpected record %s: %w", string(raw), err)
	}
	if record.ID == nil {
		return 0, fmt.Errorf("record without id: %s", string(raw))
	}
	return *record.ID, nil
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is where the analysis backend listens in development
	DefaultBaseURL = "http://localhost:8082"
	// DefaultTimeout bounds every backend call
	DefaultTimeout = 15 * time.Second
)

// Config describes how to reach the backend
type Config struct {
	BaseURL string
	Prefix  string
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second, 0 for unlimited
	RateLimit float64
}

// Hints narrows a record fetch on the backend side
type Hints struct {
	Keyword string
}

// APIError is returned for any non-2xx backend response
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s - %s", e.Status, e.Body)
}

// Client talks to the analysis backend over HTTP
type Client struct {
	client  *resty.Client
	prefix  string
	limiter *rate.Limiter
}

var _ API = (*Client)(nil)

// NewClient creates a backend client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", "Social-Mentions-Dashboard/1.0").
			SetHeader("Accept", "application/json"),
		prefix: cfg.Prefix,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// JoinPath joins path segments with single slashes and a leading slash
func JoinPath(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + strings.Join(kept, "/")
}

// do performs one request and returns the body when the response is JSON
func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body interface{}) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req := c.client.R().SetContext(ctx)
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			req.SetQueryParam(k, v)
		}
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	full := JoinPath(c.prefix, path)
	logrus.Debugf("Backend request: %s %s", method, full)

	resp, err := req.Execute(method, full)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, full, err)
	}

	if !resp.IsSuccess() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}

	if !strings.Contains(resp.Header().Get("Content-Type"), "application/json") {
		return nil, nil
	}
	return resp.Body(), nil
}

func decode(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// unwrapList accepts a bare array or an {items|data: [...]} envelope
func unwrapList(data []byte) ([]interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var payload interface{}
	if err := decode(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch v := payload.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		for _, key := range []string{"items", "data"} {
			if list, ok := v[key].([]interface{}); ok {
				return list, nil
			}
		}
	}
	return nil, fmt.Errorf("unexpected response shape %T", payload)
}

// FetchAnalysisRecords loads the current batch of analysis rows
func (c *Client) FetchAnalysisRecords(ctx context.Context, hints Hints) ([]models.RawRecord, error) {
	data, err := c.do(ctx, http.MethodGet, "/analysis", map[string]string{"keyword": hints.Keyword}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analysis records: %w", err)
	}

	items, err := unwrapList(data)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analysis records: %w", err)
	}

	records := make([]models.RawRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			logrus.Debugf("Skipping analysis item %d: not an object", i)
			continue
		}
		records = append(records, models.RawRecord(obj))
	}

	logrus.Infof("Fetched %d analysis records", len(records))
	return records, nil
}

// GetSettings reads the settings document
func (c *Client) GetSettings(ctx context.Context) (models.Settings, error) {
	data, err := c.do(ctx, http.MethodGet, "/settings", nil, nil)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	var settings models.Settings
	if len(data) > 0 {
		if err := json.Unmarshal(data, &settings); err != nil {
			return models.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
		}
	}
	return settings.Normalize(), nil
}

// UpdateSettings writes the normalized settings and returns what the backend stored
func (c *Client) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	payload := settings.Normalize()

	data, err := c.do(ctx, http.MethodPut, "/settings", nil, payload)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to update settings: %w", err)
	}

	if len(data) == 0 {
		return payload, nil
	}
	var stored models.Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		return models.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return stored.Normalize(), nil
}

func (c *Client) postAction(ctx context.Context, path string) (map[string]interface{}, error) {
	data, err := c.do(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{}
	if len(data) > 0 {
		if err := decode(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return result, nil
}

// ScanAlerts asks the backend to evaluate the threshold and send alerts now
func (c *Client) ScanAlerts(ctx context.Context) (map[string]interface{}, error) {
	result, err := c.postAction(ctx, "/alerts/scan")
	if err != nil {
		return nil, fmt.Errorf("failed to scan alerts: %w", err)
	}
	return result, nil
}

// SendTestMail asks the backend to send a test alert email
func (c *Client) SendTestMail(ctx context.Context) (map[string]interface{}, error) {
	result, err := c.postAction(ctx, "/alerts/test")
	if err != nil {
		return nil, fmt.Errorf("failed to send test mail: %w", err)
	}
	return result, nil
}

// GetTweetDates lists the days the backend holds tweets for, as YYYY-MM-DD
func (c *Client) GetTweetDates(ctx context.Context) ([]string, error) {
	data, err := c.do(ctx, http.MethodGet, "/tweet-dates", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get tweet dates: %w", err)
	}

	items, err := unwrapList(data)
	if err != nil {
		return nil, fmt.Errorf("failed to get tweet dates: %w", err)
	}

	dates := make([]string, 0, len(items))
	for _, item := range items {
		var value string
		switch v := item.(type) {
		case string:
			value = v
		case map[string]interface{}:
			for _, key := range []string{"date", "tweetDate", "createdAt"} {
				if s, ok := v[key].(string); ok {
					value = s
					break
				}
			}
		}
		if len(value) >= 10 {
			dates = append(dates, value[:10])
		}
	}
	return dates, nil
}

// ListKeywords returns the whole keyword dictionary
func (c *Client) ListKeywords(ctx context.Context) ([]models.KeywordEntry, error) {
	data, err := c.do(ctx, http.MethodGet, "/sentiment-dictionary", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}

	items, err := unwrapList(data)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	if len(items) == 0 {
		return []models.KeywordEntry{}, nil
	}

	// re-encode so the entries go through the typed decoder
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	entries := []models.KeywordEntry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	return entries, nil
}

func (c *Client) writeKeyword(ctx context.Context, method, path string, entry models.KeywordEntry) (models.KeywordEntry, error) {
	if err := entry.Validate(); err != nil {
		return models.KeywordEntry{}, err
	}

	data, err := c.do(ctx, method, path, nil, entry)
	if err != nil {
		return models.KeywordEntry{}, err
	}
	if len(data) == 0 {
		return entry, nil
	}

	var stored models.KeywordEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return models.KeywordEntry{}, fmt.Errorf("failed to decode keyword: %w", err)
	}
	return stored, nil
}

// CreateKeyword adds a dictionary entry
func (c *Client) CreateKeyword(ctx context.Context, entry models.KeywordEntry) (models.KeywordEntry, error) {
	stored, err := c.writeKeyword(ctx, http.MethodPost, "/sentiment-dictionary", entry)
	if err != nil {
		return models.KeywordEntry{}, fmt.Errorf("failed to create keyword: %w", err)
	}
	return stored, nil
}

// UpdateKeyword replaces a dictionary entry
func (c *Client) UpdateKeyword(ctx context.Context, id int64, entry models.KeywordEntry) (models.KeywordEntry, error) {
	entry.ID = id
	stored, err := c.writeKeyword(ctx, http.MethodPut, "/sentiment-dictionary/"+strconv.FormatInt(id, 10), entry)
	if err != nil {
		return models.KeywordEntry{}, fmt.Errorf("failed to update keyword %d: %w", id, err)
	}
	return stored, nil
}

// DeleteKeyword removes a dictionary entry
func (c *Client) DeleteKeyword(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodDelete, "/sentiment-dictionary/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("failed to delete keyword %d: %w", id, err)
	}
	return nil
}

// UpdateSentiment writes a sentiment override back to the backend
func (c *Client) UpdateSentiment(ctx context.Context, recordID string, sentiment models.Sentiment) error {
	body := map[string]string{"sentiment": string(sentiment)}
	if _, err := c.do(ctx, http.MethodPut, "/sentiment/update/"+url.PathEscape(recordID), nil, body); err != nil {
		return fmt.Errorf("failed to update sentiment of %s: %w", recordID, err)
	}
	return nil
}

package remote

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tideflow-io/tideflow/pkg/clients"
	"github.com/tideflow-io/tideflow/pkg/errors"
)

// Client fetches pages and result counts from collection endpoints.
// Errors returned by implementations must carry the classification the
// retry policy switches on: rate_limit (with a retry_after detail),
// server, client, or decode.
type Client interface {
	// FetchPage returns one page of records from endpoint; resultKey names
	// the response field holding the record list
	FetchPage(ctx context.Context, endpoint, resultKey string, req PageRequest) ([]Record, error)

	// FetchCount returns the total result count for the given filters
	FetchCount(ctx context.Context, endpoint string, req PageRequest) (int64, error)
}

// APIClient is the HTTP implementation of Client
type APIClient struct {
	baseURL string
	token   string
	http    *clients.HTTPClient
	logger  *zap.Logger
}

// APIClientConfig configures an APIClient
type APIClientConfig struct {
	BaseURL         string
	Token           string
	RequestTimeout  time.Duration
	RateLimitPerSec float64
	RateBurst       int
}

// NewAPIClient creates a collection API client
func NewAPIClient(cfg APIClientConfig, logger *zap.Logger) *APIClient {
	httpCfg := clients.DefaultHTTPConfig()
	if cfg.RequestTimeout > 0 {
		httpCfg.RequestTimeout = cfg.RequestTimeout
	}
	httpCfg.RateLimit = cfg.RateLimitPerSec
	httpCfg.RateBurst = cfg.RateBurst

	return &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    clients.NewHTTPClient(httpCfg, logger),
		logger:  logger.With(zap.String("component", "api_client")),
	}
}

// FetchPage implements Client
func (c *APIClient) FetchPage(ctx context.Context, endpoint, resultKey string, req PageRequest) ([]Record, error) {
	body, err := c.get(ctx, c.baseURL+"/"+endpoint+".json", req)
	if err != nil {
		return nil, err
	}

	var payload map[string]gojson.RawMessage
	if err := decode(body, &payload); err != nil {
		return nil, err
	}

	raw, ok := payload[resultKey]
	if !ok {
		// An absent result key means an empty page, same as the remote
		// omitting the field entirely.
		return nil, nil
	}

	var objects []map[string]interface{}
	if err := decode(raw, &objects); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(objects))
	for _, obj := range objects {
		rec, err := recordFromObject(obj)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// FetchCount implements Client. Count lives next to the collection at
// <endpoint>/count.json and honors the same filters.
func (c *APIClient) FetchCount(ctx context.Context, endpoint string, req PageRequest) (int64, error) {
	// The count endpoint rejects paging parameters.
	req.Page = 0
	req.SinceID = 0
	req.Limit = 0

	body, err := c.get(ctx, c.baseURL+"/"+endpoint+"/count.json", req)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Count int64 `json:"count"`
	}
	if err := decode(body, &payload); err != nil {
		return 0, err
	}

	return payload.Count, nil
}

// get issues one GET and classifies the response. It never retries; retry
// decisions belong to the caller's policy.
func (c *APIClient) get(ctx context.Context, url string, req PageRequest) ([]byte, error) {
	full := url
	if q := req.Values().Encode(); q != "" {
		full = url + "?" + q
	}

	headers := map[string]string{"Accept": "application/json"}
	if c.token != "" {
		headers["X-Access-Token"] = c.token
	}

	c.logger.Debug("GET", zap.String("url", full))

	resp, err := c.http.Get(ctx, full, headers)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<20))

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.ErrorTypeDecode, "failed to read response body")
	}

	return body, nil
}

// classifyStatus maps a non-2xx response onto the engine's error taxonomy
func classifyStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		err := errors.Newf(errors.ErrorTypeRateLimit, "rate limited (%d)", code).
			WithDetail("http_status", code)
		if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			err = err.WithDetail("retry_after", wait)
		}
		return err
	case code >= 500 && code < 600:
		return errors.Newf(errors.ErrorTypeServer, "server error (%d)", code).
			WithDetail("http_status", code)
	default:
		return errors.Newf(errors.ErrorTypeClient, "client error (%d)", code).
			WithDetail("http_status", code)
	}
}

// parseRetryAfter reads the server-provided wait. The header is formally
// undocumented for this API but honoring it is proven behavior; fractional
// values are floored like the original integration did.
func parseRetryAfter(h string) (time.Duration, bool) {
	if h == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return time.Duration(math.Floor(f)) * time.Second, true
}

// decode unmarshals JSON, preserving integer precision, and classifies
// failures as decode errors so the retry policy treats them as transient.
func decode(data []byte, v interface{}) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDecode, "failed to decode response")
	}
	return nil
}

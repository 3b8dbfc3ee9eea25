package zentao

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/aipper/zentao-mcp/internal/metrics"
)

// Envelope is the normalized result of one HTTP exchange.
type Envelope struct {
	Status  int
	Headers http.Header
	// Data holds the decoded JSON body when the response declared a JSON
	// content type and the body parsed; otherwise it is nil.
	Data any
	// Raw always holds the body text.
	Raw string
}

// Transport issues single HTTP requests with a bounded timeout and normalizes
// success and failure into Envelope / APIError.
type Transport struct {
	client  *http.Client
	timeout time.Duration
	// retries enables the opt-in retry wrapper for idempotent requests.
	// Zero means one attempt, no retry.
	retries int
	logger  zerolog.Logger
}

func newTransport(httpClient *http.Client, timeout time.Duration, retries int, logger zerolog.Logger) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Transport{
		client:  httpClient,
		timeout: timeout,
		retries: retries,
		logger:  logger.With().Str("component", "transport").Logger(),
	}
}

// Do performs one request. Non-2xx responses return *APIError; deadline
// overruns return an error wrapping ErrTimeout. GET requests retry transient
// failures when retries are configured.
func (t *Transport) Do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*Envelope, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	attempt := func() (*Envelope, error) {
		envelope, err := t.doOnce(ctx, method, rawURL, headers, body)
		if err != nil && !retryableError(err) {
			return nil, backoff.Permanent(err)
		}
		return envelope, err
	}

	if t.retries > 0 && method == http.MethodGet {
		return backoff.Retry(ctx, attempt,
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(uint(t.retries)+1),
		)
	}
	return t.doOnce(ctx, method, rawURL, headers, body)
}

func (t *Transport) doOnce(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*Envelope, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	started := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			t.logger.Warn().Str("method", method).Str("url", rawURL).Dur("timeout", t.timeout).Msg("upstream request timed out")
			return nil, fmt.Errorf("%w after %s: %s %s", ErrTimeout, t.timeout, method, rawURL)
		}
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	metrics.ObserveUpstreamRequest(method, resp.StatusCode, time.Since(started))

	envelope := &Envelope{
		Status:  resp.StatusCode,
		Headers: resp.Header.Clone(),
		Raw:     string(raw),
	}
	if isJSONContentType(resp.Header.Get("Content-Type")) && len(raw) > 0 {
		var decoded any
		if jsonErr := json.Unmarshal(raw, &decoded); jsonErr == nil {
			envelope.Data = decoded
		}
		// Parse failure keeps the raw text; a broken body must not mask
		// the actual HTTP outcome.
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.logger.Debug().Str("method", method).Str("url", rawURL).Int("status", resp.StatusCode).Msg("upstream returned error status")
		return nil, newAPIError(resp.StatusCode, envelope.Raw)
	}
	return envelope, nil
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// retryableError reports whether an error is worth retrying: transport-level
// failures and 5xx statuses. Timeouts and 4xx are permanent.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

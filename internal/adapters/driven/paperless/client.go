// Package paperless provides the document store adapter: an authenticated
// HTTP client for a Paperless-ngx style API with pagination draining,
// proactive throttling and bounded retries on transient failures.
package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
	"github.com/custodia-labs/doctag-cli/internal/core/ports/driven"
	"github.com/custodia-labs/doctag-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.DocumentStore = (*Client)(nil)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of attempts for transient failures.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries; attempt n waits
	// RetryDelay * 2^n.
	RetryDelay = time.Second

	// pageRate throttles pagination draining to avoid hammering the store.
	pageRate = 10 // requests per second

	// maxErrorBody bounds how much of an error response body is kept.
	maxErrorBody = 512
)

// Client talks to the document store HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	pages   *rate.Limiter
}

// NewClient creates a document store client from settings.
func NewClient(cfg domain.PaperlessSettings) *Client {
	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: DefaultTimeout},
		pages:   rate.NewLimiter(rate.Limit(pageRate), 1),
	}
}

// paginated is the store's envelope for list endpoints.
type paginated struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// retryableMethod reports whether a request may be re-sent after a
// transient failure. Only read methods qualify: the store may have
// processed a write whose response was lost, and re-sending a create
// would mint a duplicate.
func retryableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// do performs one API call, retrying read requests on transient failures.
// Auth failures are surfaced immediately: retrying a rejected token never
// helps. Writes are never retried, whatever the failure.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if !retryableMethod(method) {
		return c.doOnce(ctx, method, path, query, body, out)
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			delay := RetryDelay << (attempt - 1)
			logger.Debug("Store retry %d/%d for %s %s in %s", attempt+1, MaxRetries, method, path, delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := c.doOnce(ctx, method, path, query, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var storeErr *domain.StoreError
		if !errors.As(err, &storeErr) || !storeErr.Retryable() {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Transport errors (connection refused, request timeout) are
		// treated as transient.
		return &domain.StoreError{Kind: domain.StoreUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return c.statusError(resp)
}

func (c *Client) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	base := fmt.Errorf("%s: %s", resp.Request.URL.Path, bytes.TrimSpace(snippet))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &domain.StoreError{
			Kind:       domain.StoreAuthFailure,
			StatusCode: resp.StatusCode,
			Err:        errors.New("authentication failed, check your API token"),
		}
	case resp.StatusCode == http.StatusNotFound:
		return &domain.StoreError{
			Kind:       domain.StoreNotFound,
			StatusCode: resp.StatusCode,
			Err:        domain.ErrNotFound,
		}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &domain.StoreError{
			Kind:       domain.StoreUnavailable,
			StatusCode: resp.StatusCode,
			Err:        base,
		}
	default:
		return &domain.StoreError{
			Kind:       domain.StoreBadRequest,
			StatusCode: resp.StatusCode,
			Err:        base,
		}
	}
}

// getAllPages drains a paginated list endpoint, throttled by the page
// limiter. Pagination is this adapter's responsibility; callers receive the
// full result set.
func (c *Client) getAllPages(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}

	var results []json.RawMessage
	for page := 1; ; page++ {
		if err := c.pages.Wait(ctx); err != nil {
			return nil, err
		}

		query.Set("page", strconv.Itoa(page))
		var resp paginated
		if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		results = append(results, resp.Results...)

		if resp.Next == nil || *resp.Next == "" {
			return results, nil
		}
	}
}

// Package hunter finds work email addresses via the Hunter.io API.
package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/pipeline"
)

const defaultBaseURL = "https://api.hunter.io/v2"

// Client calls the Hunter email-finder endpoint. Rate-limit responses are
// retried with exponential backoff; other API errors surface to the caller.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewClient(apiKey string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		metrics: m,
		logger:  logger.With("component", "hunter"),
	}
}

// SetBaseURL overrides the API endpoint, used by tests
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

type finderResponse struct {
	Data struct {
		Email string `json:"email"`
		Score int    `json:"score"`
	} `json:"data"`
	Errors []struct {
		Details string `json:"details"`
	} `json:"errors"`
}

// rateLimitError marks a 429 so the backoff loop knows to retry
type rateLimitError struct{}

func (rateLimitError) Error() string { return "rate limited" }

// FindEmail looks up the email for a person at a company. A nil result with
// nil error means Hunter had no match.
func (c *Client) FindEmail(ctx context.Context, name, company string) (*pipeline.EmailResult, error) {
	first, last := splitName(name)

	q := url.Values{}
	q.Set("company", company)
	q.Set("first_name", first)
	q.Set("last_name", last)
	q.Set("api_key", c.apiKey)
	endpoint := c.baseURL + "/email-finder?" + q.Encode()

	var result *pipeline.EmailResult

	operation := func() error {
		res, retryable, err := c.doFind(ctx, endpoint)
		if err != nil {
			if retryable {
				c.metrics.ProviderRetriesTotal.WithLabelValues("hunter").Inc()
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 2 * time.Second
	expBackoff.MaxElapsedTime = 45 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, fmt.Errorf("hunter lookup for %s at %s: %w", name, company, err)
	}
	return result, nil
}

func (c *Client) doFind(ctx context.Context, endpoint string) (*pipeline.EmailResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, rateLimitError{}
	}
	if resp.StatusCode == http.StatusNotFound {
		// no match for this person
		return nil, false, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, err
	}

	var fr finderResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, false, fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if len(fr.Errors) > 0 {
			msg = fr.Errors[0].Details
		}
		return nil, false, fmt.Errorf("hunter API error: %s", msg)
	}

	if fr.Data.Email == "" {
		return nil, false, nil
	}
	return &pipeline.EmailResult{Email: fr.Data.Email, Confidence: fr.Data.Score}, false, nil
}

// splitName splits a full name into first and last for the finder endpoint.
// Middle names go with the last name, which is what Hunter expects.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

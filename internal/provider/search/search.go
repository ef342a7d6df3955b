// Package search discovers candidate contacts via the Serper web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxzi/outreach/internal/action"
)

const defaultEndpoint = "https://google.serper.dev/search"

// Client queries a SERP API and maps organic results to contact candidates
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 20 * time.Second},
		logger:   logger.With("component", "search"),
	}
}

// SetEndpoint overrides the API endpoint, used by tests
func (c *Client) SetEndpoint(u string) {
	c.endpoint = u
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title      string `json:"title"`
		Link       string `json:"link"`
		Snippet    string `json:"snippet"`
		Attributes struct {
			Company string `json:"company"`
		} `json:"attributes"`
	} `json:"organic"`
}

// Search runs one query and returns up to maxResults candidates
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]action.SearchResult, error) {
	body, err := json.Marshal(searchRequest{Q: query, Num: maxResults})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]action.SearchResult, 0, len(sr.Organic))
	for _, o := range sr.Organic {
		if len(results) >= maxResults {
			break
		}
		results = append(results, action.SearchResult{
			Title:   o.Title,
			Company: o.Attributes.Company,
			URL:     o.Link,
			Snippet: o.Snippet,
		})
	}

	c.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

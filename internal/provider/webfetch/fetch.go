// Package webfetch retrieves website pages used to ground personalized
// inserts.
package webfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/foxzi/outreach/internal/pipeline"
)

const (
	// maxBodyBytes bounds a single page read
	maxBodyBytes = 512 * 1024
	// maxTextLen bounds the extracted text handed to the generator
	maxTextLen = 8000
	// maxPages bounds how many pages one site contributes
	maxPages = 3
)

var (
	tagPattern    = regexp.MustCompile(`(?s)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	markupPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)
	linkPattern   = regexp.MustCompile(`(?i)<a[^>]+href=["']([^"'#?]+)["']`)
)

// Fetcher downloads a contact's website and strips it to plain text. It
// fetches the homepage plus up to two same-host pages linked from it.
type Fetcher struct {
	http   *http.Client
	logger *slog.Logger
}

func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		http:   &http.Client{Timeout: timeout},
		logger: logger.With("component", "webfetch"),
	}
}

// FetchPages retrieves the homepage at rawURL and follows up to two
// same-host links found in it. Non-HTML or empty pages yield no page, not an
// error: the stage treats zero pages as a skip.
func (f *Fetcher) FetchPages(ctx context.Context, rawURL string) ([]pipeline.Page, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	body, err := f.fetchOne(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var pages []pipeline.Page
	if text := extractText(body); text != "" {
		pages = append(pages, pipeline.Page{URL: rawURL, Text: text})
	}

	// Secondary pages are best effort: a broken link must not fail the
	// contact when the homepage already produced text.
	for _, link := range sameHostLinks(base, body) {
		if len(pages) >= maxPages {
			break
		}
		sub, err := f.fetchOne(ctx, link)
		if err != nil {
			f.logger.Debug("skipping linked page", "url", link, "error", err)
			continue
		}
		if text := extractText(sub); text != "" {
			pages = append(pages, pipeline.Page{URL: link, Text: text})
		}
	}
	return pages, nil
}

// fetchOne downloads a single page body. Non-text content returns empty.
func (f *Fetcher) fetchOne(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", "outreach/1.0")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "text/html") && !strings.Contains(ct, "text/plain") {
		f.logger.Debug("skipping non-text page", "url", pageURL, "content_type", ct)
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", pageURL, err)
	}
	return string(body), nil
}

// sameHostLinks extracts deduplicated same-host links from an HTML body
func sameHostLinks(base *url.URL, body string) []string {
	seen := map[string]bool{base.String(): true}
	var links []string

	for _, m := range linkPattern.FindAllStringSubmatch(body, -1) {
		ref, err := url.Parse(m[1])
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host || (abs.Scheme != "http" && abs.Scheme != "https") {
			continue
		}
		abs.Fragment = ""
		s := abs.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		links = append(links, s)
	}
	return links
}

// extractText strips markup and collapses whitespace
func extractText(html string) string {
	s := tagPattern.ReplaceAllString(html, " ")
	s = markupPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > maxTextLen {
		s = s[:maxTextLen]
	}
	return s
}

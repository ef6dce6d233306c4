// Package http provides an HTTP implementation of wikifetch.Lookup backed by
// the MediaWiki Action API (article text and search) and the Wikidata API
// (entity to article cross-reference).
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/fwojciec/wikifetch"
	"golang.org/x/time/rate"
)

// Defaults for Client options.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultUserAgent      = "wikifetch/1.0 (https://github.com/fwojciec/wikifetch)"
	DefaultWikipediaURL   = "https://en.wikipedia.org/w/api.php"
	DefaultWikidataURL    = "https://www.wikidata.org/w/api.php"
	DefaultSite           = "enwiki"
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 2 * time.Second
	DefaultMinInterval    = 100 * time.Millisecond
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Ensure Client implements wikifetch.Lookup at compile time.
var _ wikifetch.Lookup = (*Client)(nil)

// Client retrieves articles over HTTP. Transient failures (transport errors,
// HTTP 429 and 5xx) are retried with exponential backoff; 404 responses and
// malformed payloads are not. All requests made through one Client share a
// single rate limiter, so request spacing holds across goroutines.
type Client struct {
	client         *http.Client
	timeout        time.Duration
	userAgent      string
	wikipediaURL   string
	wikidataURL    string
	site           string
	maxRetries     int
	initialBackoff time.Duration
	limiter        *rate.Limiter
	now            func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the timeout for each HTTP request.
// Defaults to DefaultTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header. Wikimedia APIs require a
// descriptive agent with contact information.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithWikipediaURL sets the MediaWiki Action API endpoint.
func WithWikipediaURL(u string) Option {
	return func(c *Client) {
		c.wikipediaURL = u
	}
}

// WithWikidataURL sets the Wikidata API endpoint.
func WithWikidataURL(u string) Option {
	return func(c *Client) {
		c.wikidataURL = u
	}
}

// WithSite sets the Wikidata sitelink used for authoritative titles.
func WithSite(site string) Option {
	return func(c *Client) {
		c.site = site
	}
}

// WithRetry sets the number of retries after the first attempt and the
// first backoff delay. Each following delay doubles.
func WithRetry(maxRetries int, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initial
	}
}

// WithMinInterval sets the minimum spacing between consecutive requests.
// Zero or less disables spacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		c.limiter = newLimiter(d)
	}
}

// WithClock sets the function used to stamp fetched documents.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		userAgent:      DefaultUserAgent,
		wikipediaURL:   DefaultWikipediaURL,
		wikidataURL:    DefaultWikidataURL,
		site:           DefaultSite,
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		limiter:        newLimiter(DefaultMinInterval),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{
		Timeout: c.timeout,
	}

	return c
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Lookup fetches the article with the exact title.
func (c *Client) Lookup(ctx context.Context, title string) (*wikifetch.Document, error) {
	docs, err := c.queryPages(ctx, []string{title})
	if err != nil {
		return nil, err
	}
	doc, ok := docs[title]
	if !ok {
		return nil, wikifetch.Errorf(wikifetch.ENOTFOUND, "article %q not found", title)
	}
	return doc, nil
}

// BatchLookup fetches several articles in one request. The API returns the
// full text of only one page per request, so existing pages that come back
// without text are fetched again one by one.
func (c *Client) BatchLookup(ctx context.Context, titles []string) (map[string]*wikifetch.Document, error) {
	if len(titles) == 0 {
		return map[string]*wikifetch.Document{}, nil
	}
	if len(titles) > wikifetch.MaxBatchTitles {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "batch of %d titles exceeds limit of %d", len(titles), wikifetch.MaxBatchTitles)
	}

	docs, err := c.queryPages(ctx, titles)
	if err != nil {
		return nil, err
	}

	if len(titles) > 1 {
		for _, title := range titles {
			doc, ok := docs[title]
			if !ok || doc.Body != "" {
				continue
			}
			single, err := c.queryPages(ctx, []string{title})
			if err != nil {
				continue
			}
			if d, ok := single[title]; ok {
				docs[title] = d
			}
		}
	}

	return docs, nil
}

// Search returns up to limit article titles matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.get(ctx, c.wikipediaURL, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.asError()
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

// AuthoritativeTitle returns the article title linked from the Wikidata
// entity key on the configured site.
func (c *Client) AuthoritativeTitle(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", key)
	params.Set("props", "sitelinks")
	params.Set("sitefilter", c.site)

	var resp entitiesResponse
	if err := c.get(ctx, c.wikidataURL, params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error.asError()
	}

	entity, ok := resp.Entities[key]
	if !ok || entity.Missing != nil {
		return "", wikifetch.Errorf(wikifetch.ENOTFOUND, "entity %q not found", key)
	}
	link, ok := entity.Sitelinks[c.site]
	if !ok || link.Title == "" {
		return "", wikifetch.Errorf(wikifetch.ENOTFOUND, "entity %q has no %s article", key, c.site)
	}
	return link.Title, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// queryPages fetches titles and returns documents keyed by the requested
// title, following title normalization and redirects.
func (c *Client) queryPages(ctx context.Context, titles []string) (map[string]*wikifetch.Document, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", strings.Join(titles, "|"))
	params.Set("prop", "extracts|revisions|info")
	params.Set("explaintext", "1")
	params.Set("rvprop", "timestamp")
	params.Set("inprop", "url")
	params.Set("redirects", "1")

	var resp queryResponse
	if err := c.get(ctx, c.wikipediaURL, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.asError()
	}

	normalized := make(map[string]string, len(resp.Query.Normalized))
	for _, n := range resp.Query.Normalized {
		normalized[n.From] = n.To
	}
	redirects := make(map[string]string, len(resp.Query.Redirects))
	for _, r := range resp.Query.Redirects {
		redirects[r.From] = r.To
	}
	pages := make(map[string]page, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		pages[p.Title] = p
	}

	fetchedAt := c.now().UTC()
	docs := make(map[string]*wikifetch.Document, len(titles))
	for _, title := range titles {
		final := title
		if to, ok := normalized[final]; ok {
			final = to
		}
		if to, ok := redirects[final]; ok {
			final = to
		}

		p, ok := pages[final]
		if !ok || p.Missing || p.Invalid || p.PageID == 0 {
			continue
		}
		docs[title] = p.document(fetchedAt)
	}
	return docs, nil
}

// get performs a GET request against endpoint and decodes the JSON body into
// out, retrying transient failures.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	target := endpoint + "?" + params.Encode()

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
			return fmt.Errorf("HTTP %d for %s", resp.StatusCode, endpoint)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(wikifetch.Errorf(wikifetch.ENOTFOUND, "HTTP 404 for %s", endpoint))
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("HTTP %d for %s", resp.StatusCode, endpoint))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(wikifetch.Errorf(wikifetch.EINVALID, "malformed response from %s: %v", endpoint, err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))
}

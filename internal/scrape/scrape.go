// Package scrape discovers downloadable archive links on a source listing
// page.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/angstwad/retro-rom-downloader/internal/catalog"
	"github.com/angstwad/retro-rom-downloader/internal/services"
)

// Client fetches source pages and extracts archive links from them.
type Client struct {
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New constructs a scrape client with the given request timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLinks downloads the page at pageURL and returns every archive anchor
// on it in document order. Hrefs are resolved against the page URL and then
// percent-decoded; anchors that do not end in .zip are ignored.
func (c *Client) FetchLinks(ctx context.Context, pageURL string) ([]catalog.Link, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "parse url", fmt.Sprintf("invalid listing page URL %q", pageURL), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "build request", "cannot build the listing page request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "fetch", "get page", "listing page request timed out", err)
		}
		return nil, services.Wrap(services.ErrTransient, "fetch", "get page", "failed to fetch the listing page", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, services.Wrap(services.ErrTransient, "fetch", "get page", "unexpected status "+resp.Status, nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetch", "parse page", "failed to parse the listing page", err)
	}

	var links []catalog.Link
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if !strings.HasSuffix(href, ".zip") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if decoded, err := url.PathUnescape(abs); err == nil {
			abs = decoded
		}
		links = append(links, catalog.Link(abs))
	})
	return links, nil
}

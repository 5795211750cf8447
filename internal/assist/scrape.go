package assist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"finance-hub/internal/config"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
)

// maxPageBytes caps how much of a fetched page is read.
const maxPageBytes = 5 << 20

// ErrDisallowed is returned when robots.txt forbids fetching a URL.
var ErrDisallowed = errors.New("fetch disallowed by robots.txt")

// Link is an anchor found on a scraped page, with an absolute URL.
type Link struct {
	URL  string
	Text string
}

// Metadata is the page's own description of itself.
type Metadata struct {
	Title       string
	Description string
}

// Page is the result of scraping one URL.
type Page struct {
	URL      string
	Markdown string
	Links    []Link
	Metadata Metadata
}

// Scraper fetches a page and extracts its main content.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*Page, error)
}

// HTTPScraper fetches pages over HTTP, honouring robots.txt per host.
type HTTPScraper struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewHTTPScraper creates a scraper from the scraper config section.
func NewHTTPScraper(cfg config.ScraperConfig) *HTTPScraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "finance-hub-importer/1.0"
	}
	return &HTTPScraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: ua,
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// Client exposes the HTTP client so feed reading shares timeouts.
func (s *HTTPScraper) Client() *http.Client { return s.client }

// UserAgent is the agent string sent with every request.
func (s *HTTPScraper) UserAgent() string { return s.userAgent }

// Scrape fetches pageURL and returns its metadata, links and main content
// as "##"-style markdown.
func (s *HTTPScraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", pageURL)
	}

	allowed, err := s.allowed(ctx, u)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
	}

	body, status, err := s.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", pageURL, status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	page := &Page{
		URL:      u.String(),
		Metadata: extractMetadata(doc),
		Links:    extractLinks(doc, u),
	}
	page.Markdown = extractMarkdown(body, u, doc)
	return page, nil
}

func (s *HTTPScraper) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", target, err)
	}
	return body, resp.StatusCode, nil
}

func (s *HTTPScraper) allowed(ctx context.Context, u *url.URL) (bool, error) {
	host := u.Scheme + "://" + u.Host

	s.mu.Lock()
	robots, ok := s.robots[host]
	s.mu.Unlock()

	if !ok {
		body, status, err := s.get(ctx, host+"/robots.txt")
		if err != nil {
			return false, err
		}
		// 4xx means no rules, 5xx means disallow everything.
		robots, err = robotstxt.FromStatusAndBytes(status, body)
		if err != nil {
			return false, fmt.Errorf("parsing robots.txt for %s: %w", u.Host, err)
		}
		s.mu.Lock()
		s.robots[host] = robots
		s.mu.Unlock()
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return robots.TestAgent(path, s.userAgent), nil
}

func extractMetadata(doc *goquery.Document) Metadata {
	meta := func(selector string) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(v)
	}

	title := meta(`meta[property="og:title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	description := meta(`meta[name="description"]`)
	if description == "" {
		description = meta(`meta[property="og:description"]`)
	}
	return Metadata{Title: title, Description: description}
}

func extractLinks(doc *goquery.Document, base *url.URL) []Link {
	seen := make(map[string]bool)
	var links []Link
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, Link{URL: key, Text: strings.Join(strings.Fields(a.Text()), " ")})
	})
	return links
}

// extractMarkdown prefers readability's view of the main content and falls
// back to the whole document body.
func extractMarkdown(body []byte, u *url.URL, doc *goquery.Document) string {
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err == nil {
		var htmlBuf strings.Builder
		if err := article.RenderHTML(&htmlBuf); err == nil {
			if md := htmlToMarkdown(htmlBuf.String()); md != "" {
				return md
			}
		}
	}
	return selectionToMarkdown(doc.Find("body"))
}

func htmlToMarkdown(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return selectionToMarkdown(doc.Selection)
}

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote"

func selectionToMarkdown(sel *goquery.Selection) string {
	var parts []string
	sel.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1", "h2":
			parts = append(parts, "## "+text)
		case "h3", "h4", "h5", "h6":
			parts = append(parts, "### "+text)
		case "li":
			parts = append(parts, "- "+text)
		default:
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

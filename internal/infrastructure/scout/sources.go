package scout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const queryPlaceholder = "{query}"

// maxPageBytes bounds how much of a feed or results page is read
const maxPageBytes = 4 << 20

var errPageTooLarge = errors.New("page exceeds size limit")

// Listing is one raw entry read from a trade directory before scoring
type Listing struct {
	CompanyName string
	Summary     string
	Website     string
	Categories  []string
}

// Source is a single public directory the scout can search
type Source interface {
	Name() string
	Search(ctx context.Context, query string) ([]Listing, error)
}

// expandURL substitutes the escaped query for {query}, or appends it as q= when absent
func expandURL(raw, query string) string {
	if strings.Contains(raw, queryPlaceholder) {
		return strings.ReplaceAll(raw, queryPlaceholder, url.QueryEscape(query))
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "q=" + url.QueryEscape(query)
}

// fetchPage GETs target and returns at most maxPageBytes of a 200 response
func fetchPage(ctx context.Context, client *http.Client, target, userAgent, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxPageBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errPageTooLarge, maxPageBytes)
	}
	return body, nil
}

// FeedSource reads an RSS/Atom/JSON feed published by a directory search
type FeedSource struct {
	feedURL   string
	client    *http.Client
	userAgent string
	parser    *gofeed.Parser
}

// NewFeedSource creates a feed source; the URL may carry a {query} placeholder
func NewFeedSource(feedURL string, client *http.Client, userAgent string) *FeedSource {
	return &FeedSource{
		feedURL:   feedURL,
		client:    client,
		userAgent: userAgent,
		parser:    gofeed.NewParser(),
	}
}

func (s *FeedSource) Name() string {
	if u, err := url.Parse(s.feedURL); err == nil && u.Host != "" {
		return u.Host
	}
	return s.feedURL
}

func (s *FeedSource) Search(ctx context.Context, query string) ([]Listing, error) {
	body, err := fetchPage(ctx, s.client, expandURL(s.feedURL, query), s.userAgent,
		"application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9")
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	listings := make([]Listing, 0, len(feed.Items))
	for _, item := range feed.Items {
		name := companyFromTitle(item.Title)
		if name == "" {
			continue
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		categories := make([]string, len(item.Categories))
		copy(categories, item.Categories)

		listings = append(listings, Listing{
			CompanyName: name,
			Summary:     stripTags(summary),
			Website:     item.Link,
			Categories:  categories,
		})
	}
	return listings, nil
}

// companyFromTitle drops the trailing " - tagline" or " | directory" that feeds append to titles
func companyFromTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range []string{" | ", " - ", " – "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	return strings.TrimSpace(title)
}

func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// DirectorySelectors locate listings on an HTML results page
type DirectorySelectors struct {
	Item    string
	Name    string
	Summary string
	Link    string
}

// DirectorySource scrapes an HTML search-results page
type DirectorySource struct {
	name      string
	pageURL   string
	selectors DirectorySelectors
	client    *http.Client
	userAgent string
}

// NewDirectorySource creates an HTML directory source
func NewDirectorySource(name, pageURL string, selectors DirectorySelectors, client *http.Client, userAgent string) *DirectorySource {
	return &DirectorySource{
		name:      name,
		pageURL:   pageURL,
		selectors: selectors,
		client:    client,
		userAgent: userAgent,
	}
}

func (s *DirectorySource) Name() string {
	if s.name != "" {
		return s.name
	}
	return s.pageURL
}

func (s *DirectorySource) Search(ctx context.Context, query string) ([]Listing, error) {
	target := expandURL(s.pageURL, query)
	body, err := fetchPage(ctx, s.client, target, s.userAgent, "text/html")
	if err != nil {
		return nil, fmt.Errorf("directory request: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse directory page: %w", err)
	}

	base, _ := url.Parse(target)
	var listings []Listing
	doc.Find(s.selectors.Item).Each(func(_ int, item *goquery.Selection) {
		name := strings.TrimSpace(item.Find(s.selectors.Name).First().Text())
		if name == "" {
			return
		}
		listing := Listing{CompanyName: strings.Join(strings.Fields(name), " ")}
		if s.selectors.Summary != "" {
			listing.Summary = strings.Join(strings.Fields(item.Find(s.selectors.Summary).First().Text()), " ")
		}
		if s.selectors.Link != "" {
			if href, ok := item.Find(s.selectors.Link).First().Attr("href"); ok {
				listing.Website = resolveLink(base, href)
			}
		}
		listings = append(listings, listing)
	})
	return listings, nil
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// StaticSource serves a fixed directory snapshot for local development.
// Its entries are placeholders, not real suppliers.
type StaticSource struct {
	listings []Listing
}

// NewStaticSource returns the built-in snapshot
func NewStaticSource() *StaticSource {
	return &StaticSource{listings: []Listing{
		{CompanyName: "Global Textile Mills", Summary: "Cotton and blended knit fabrics, custom dyeing, bulk t-shirt production", Website: "https://example.com/global-textile-mills", Categories: []string{"Textiles", "Apparel"}},
		{CompanyName: "Sunrise Garment Exports", Summary: "OEM apparel: t-shirts, polos, hoodies in cotton and polyester", Website: "https://example.com/sunrise-garments", Categories: []string{"Apparel"}},
		{CompanyName: "Pacific Packaging Solutions", Summary: "Corrugated boxes, mailer bags and retail packaging", Website: "https://example.com/pacific-packaging", Categories: []string{"Packaging"}},
		{CompanyName: "Delta Electronic Components", Summary: "PCB assembly, connectors and cable harnesses", Website: "https://example.com/delta-components", Categories: []string{"Electrical Components", "Electronics"}},
		{CompanyName: "Northern Steel Works", Summary: "Stainless and carbon steel sheet, custom fabrication", Website: "https://example.com/northern-steel", Categories: []string{"Metals & Alloys"}},
	}}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Search(ctx context.Context, query string) ([]Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Listing(nil), s.listings...), nil
}

// Package feed enumerates candidate news links from the configured sources:
// RSS feeds parsed with gofeed, and HTML listing pages scraped with goquery
// for the sites that publish no feed. A dead source never fails the run; the
// collector logs it and moves on.
package feed

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/core/common"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/errors"
)

const (
	// minCandidates is the harvest size below which the listing scraper also
	// runs its next, looser pattern.
	minCandidates = 5

	// Title length gates, in runes. Headline text can be short; bare anchor
	// text must be long enough to be a title rather than a "read more".
	minHeadingRunes = 6
	minAnchorRunes  = 11
	maxTitleRunes   = 200
)

// Getter fetches one URL into memory. *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Source is one place news links come from.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

// Collector merges every configured source into one enumeration.
type Collector struct {
	Sources []Source
	Log     *zap.SugaredLogger
}

// NewCollector builds the source list from config. Sources with a fallback
// URL get a scrape-or-feed alternate of the opposite kind.
func NewCollector(cfg config.CollectConfig, client Getter, log *zap.SugaredLogger) (*Collector, error) {
	sources := make([]Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src, err := buildSource(sc, cfg.MaxPerSource, client, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return &Collector{Sources: sources, Log: log}, nil
}

func buildSource(sc config.SourceConfig, maxPerSource int, client Getter, log *zap.SugaredLogger) (Source, error) {
	limit := sc.Limit
	if limit <= 0 {
		limit = maxPerSource
	}
	if limit <= 0 {
		limit = 20
	}

	build := func(kind, u string) (Source, error) {
		switch kind {
		case "rss":
			return NewRSSSource(sc.Name, u, limit, client), nil
		case "listing":
			return NewListingSource(sc.Name, u, limit, client), nil
		default:
			return nil, errors.Newf("source %s: unknown kind %q", sc.Name, sc.Kind)
		}
	}

	primary, err := build(sc.Kind, sc.URL)
	if err != nil {
		return nil, err
	}
	if sc.FallbackURL == "" {
		return primary, nil
	}
	fallback, err := build(opposite(sc.Kind), sc.FallbackURL)
	if err != nil {
		return nil, err
	}
	return &FallbackSource{Primary: primary, Fallback: fallback, Log: log}, nil
}

func opposite(kind string) string {
	if kind == "rss" {
		return "listing"
	}
	return "rss"
}

// Enumerate pulls from every source in order. Only context cancellation
// aborts; a failing source contributes zero items.
func (c *Collector) Enumerate(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	for _, src := range c.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := src.Fetch(ctx)
		if err != nil {
			c.Log.Warnw("news source failed", "source", src.Name(), "kind", errors.Kind(err), "error", err)
			continue
		}
		c.Log.Infow("news source collected", "source", src.Name(), "items", len(got))
		items = append(items, got...)
	}
	return items, nil
}

// FallbackSource tries Primary and switches to Fallback when the primary
// errors or comes back empty. Some sites keep a feed around long after it
// stopped updating, so empty counts as down.
type FallbackSource struct {
	Primary  Source
	Fallback Source
	Log      *zap.SugaredLogger
}

func (s *FallbackSource) Name() string { return s.Primary.Name() }

func (s *FallbackSource) Fetch(ctx context.Context) ([]model.Item, error) {
	items, err := s.Primary.Fetch(ctx)
	if err == nil && len(items) > 0 {
		return items, nil
	}
	if err != nil {
		s.Log.Warnw("primary source failed, trying fallback", "source", s.Name(), "error", err)
	}
	return s.Fallback.Fetch(ctx)
}

// RSSSource reads a syndication feed. Entries without a link are skipped;
// entries without a title carry their link as the title.
type RSSSource struct {
	name   string
	url    string
	limit  int
	client Getter
	parser *gofeed.Parser
}

func NewRSSSource(name, feedURL string, limit int, client Getter) *RSSSource {
	return &RSSSource{
		name:   name,
		url:    feedURL,
		limit:  limit,
		client: client,
		parser: gofeed.NewParser(),
	}
}

func (s *RSSSource) Name() string { return s.name }

func (s *RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	body, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSource, "%s: fetch feed: %v", s.name, err)
	}
	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSource, "%s: parse feed: %v", s.name, err)
	}

	items := make([]model.Item, 0, s.limit)
	for _, entry := range feed.Items {
		if len(items) == s.limit {
			break
		}
		if entry.Link == "" {
			continue
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = entry.Link
		}
		item := model.Item{
			Identity: entry.Link,
			Title:    title,
			Payload:  model.Payload{URL: entry.Link, Source: s.name},
		}
		if entry.PublishedParsed != nil {
			item.Payload.PublishedAt = *entry.PublishedParsed
		}
		items = append(items, item)
	}
	return items, nil
}

// ListingSource scrapes an index page for article links. Three patterns run
// loosest-last: headline links, article cards, then any anchor whose path
// looks like a news item. Later patterns only run while the harvest is thin,
// which keeps one stable site from drowning in its own nav links.
type ListingSource struct {
	name   string
	url    string
	limit  int
	client Getter
}

func NewListingSource(name, pageURL string, limit int, client Getter) *ListingSource {
	return &ListingSource{name: name, url: pageURL, limit: limit, client: client}
}

func (s *ListingSource) Name() string { return s.name }

func (s *ListingSource) Fetch(ctx context.Context) ([]model.Item, error) {
	body, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSource, "%s: fetch listing: %v", s.name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSource, "%s: parse listing: %v", s.name, err)
	}
	base, err := url.Parse(s.url)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSource, "%s: listing url: %v", s.name, err)
	}

	candidates := headlineLinks(doc)
	if len(candidates) < minCandidates {
		candidates = append(candidates, articleCardLinks(doc)...)
	}
	if len(candidates) < minCandidates {
		candidates = append(candidates, newsPathLinks(doc)...)
	}

	seen := make(map[string]struct{}, len(candidates))
	items := make([]model.Item, 0, s.limit)
	for _, c := range candidates {
		if len(items) == s.limit {
			break
		}
		u := absoluteURL(base, c.href)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		items = append(items, model.Item{
			Identity: u,
			Title:    c.title,
			Payload:  model.Payload{URL: u, Source: s.name},
		})
	}
	return items, nil
}

type candidate struct {
	title string
	href  string
}

// headlineLinks: h2/h3/h4 headings wrapping a link, titled by the heading.
func headlineLinks(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("h2, h3, h4").Each(func(_ int, heading *goquery.Selection) {
		href, ok := heading.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		title := common.NormalizeSpace(heading.Text())
		if titleOK(title, minHeadingRunes) {
			out = append(out, candidate{title: title, href: href})
		}
	})
	return out
}

// articleCardLinks: the first link of each <article>, titled by the link text
// or, when that is a stub, by the card's heading.
func articleCardLinks(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("article").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		title := common.NormalizeSpace(link.Text())
		if utf8.RuneCountInString(title) < minAnchorRunes {
			if h := common.NormalizeSpace(card.Find("h2, h3, h4").First().Text()); h != "" {
				title = h
			}
		}
		if titleOK(title, minHeadingRunes) {
			out = append(out, candidate{title: title, href: href})
		}
	})
	return out
}

var newsPathMarkers = []string{"/news/", "/post/", "/research/", "/news-room/"}

// newsPathLinks: any anchor whose href contains a news-ish path segment.
func newsPathLinks(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !newsPath(href) {
			return
		}
		title := common.NormalizeSpace(link.Text())
		if titleOK(title, minAnchorRunes) {
			out = append(out, candidate{title: title, href: href})
		}
	})
	return out
}

func newsPath(href string) bool {
	for _, marker := range newsPathMarkers {
		if strings.Contains(href, marker) {
			return true
		}
	}
	return false
}

func titleOK(title string, min int) bool {
	n := utf8.RuneCountInString(title)
	return n >= min && n < maxTitleRunes
}

// absoluteURL resolves href against base and drops anything that is not
// http(s), such as mailto and javascript pseudo-links.
func absoluteURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

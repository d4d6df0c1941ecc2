package scrape

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/paperchase/relay/internal/core/common"
	"github.com/paperchase/relay/internal/errors"
)

// Pages that yield less than this are treated as failed extractions rather
// than valid articles; menus and cookie banners easily produce that much.
const minContentChars = 100

// Text shorter than this per node is navigation noise, not prose.
const minLineChars = 10

// Article is the extracted body of one news page.
type Article struct {
	URL     string
	Title   string
	Content string
}

// Fetcher gets one page, already bounded and classified by the caller's
// HTTP client.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Scraper struct {
	fetch Fetcher
}

func New(f Fetcher) *Scraper {
	return &Scraper{fetch: f}
}

// Article fetches the page and extracts readable prose. Script, style and
// navigation chrome are stripped first; the first selector that matches a
// content container wins.
func (s *Scraper) Article(ctx context.Context, pageURL string) (Article, error) {
	raw, err := s.fetch.Get(ctx, pageURL)
	if err != nil {
		return Article{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Article{}, errors.Wrapf(errors.ErrTransform, "parse %s: %v", pageURL, err)
	}
	doc.Find("script, style, nav, footer, header, aside").Remove()

	title := firstText(doc, "title", "h1", "h2")
	if title == "" {
		title = pageURL
	}

	container := firstNonEmpty(doc,
		"article",
		"div.article, div.content, div.post, div.entry",
		"main",
		"body",
	)

	var parts []string
	container.Find("p, h1, h2, h3, h4, h5, h6, li").Each(func(_ int, sel *goquery.Selection) {
		t := common.NormalizeSpace(sel.Text())
		if utf8.RuneCountInString(t) > minLineChars {
			parts = append(parts, t)
		}
	})

	content := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(content) < minContentChars {
		return Article{}, errors.Wrapf(errors.ErrTransform,
			"extract %s: body too short (%d chars), page likely not an article", pageURL, utf8.RuneCountInString(content))
	}

	return Article{URL: pageURL, Title: title, Content: content}, nil
}

// PDFLinks fetches the page and returns the absolute URLs of every linked
// PDF, in document order, deduplicated.
func (s *Scraper) PDFLinks(ctx context.Context, pageURL string) ([]string, error) {
	raw, err := s.fetch.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransform, "parse %s: %v", pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransform, "parse page url %s: %v", pageURL, err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(strings.ToLower(href), ".pdf") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links, nil
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := common.NormalizeSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func firstNonEmpty(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if s := doc.Find(sel); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

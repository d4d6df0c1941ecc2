package jobs

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/compose"
	"github.com/paperchase/relay/internal/core"
	"github.com/paperchase/relay/internal/core/commit"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/core/report"
	"github.com/paperchase/relay/internal/driver"
	"github.com/paperchase/relay/internal/errors"
	"github.com/paperchase/relay/internal/scrape"
)

// DraftStore is the slice of the record store the generate job needs.
type DraftStore interface {
	QueryDraftQueue(ctx context.Context) ([]model.Item, error)
	ListContentIdentities(ctx context.Context, field model.StatusField, statuses ...model.Status) (map[string]struct{}, error)
	CreateChildPage(ctx context.Context, parentID, title string, doc driver.ChildDoc) (driver.ChildPage, error)
	SetLink(ctx context.Context, pageID, property, url string) error
	UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error
}

// ArticleScraper extracts article text and finds linked documents.
type ArticleScraper interface {
	Article(ctx context.Context, url string) (scrape.Article, error)
	PDFLinks(ctx context.Context, url string) ([]string, error)
}

// Downloader streams a document to a temp file. *fetch.Client satisfies it.
type Downloader interface {
	Download(ctx context.Context, url, dir, pattern string) (string, error)
}

// DraftComposer produces the blog/script pair. *compose.Composer satisfies it.
type DraftComposer interface {
	FromText(ctx context.Context, src compose.Source) (compose.Draft, error)
	FromDocument(ctx context.Context, path string) (compose.Draft, error)
}

// Generate is the draft-generation processor: one queued page in, a blog
// draft plus narration script out. Queued-url pages are scraped for article
// text; queued-pdf pages point at a page whose first linked PDF is
// downloaded and fed to the model's file API.
type Generate struct {
	Store    DraftStore
	Scraper  ArticleScraper
	Download Downloader
	Composer DraftComposer

	// Now is swapped out in tests for stable artifact names.
	Now func() time.Time
}

// NewGenerate wires the draft-generation job. The dedup index lists pages
// already carried past the queue, so a page whose status was reset by hand
// after generation is not drafted twice.
func NewGenerate(store DraftStore, scraper ArticleScraper, dl Downloader, composer DraftComposer, files commit.ArtifactWriter, rep *report.Reporter, log *zap.SugaredLogger) *core.Pipeline {
	g := &Generate{
		Store:    store,
		Scraper:  scraper,
		Download: dl,
		Composer: composer,
		Now:      time.Now,
	}
	return &core.Pipeline{
		Job:    "generate",
		Source: core.EnumeratorFunc(store.QueryDraftQueue),
		Index: func(ctx context.Context) (map[string]struct{}, error) {
			return store.ListContentIdentities(ctx, model.FieldDraft, model.StatusFactCheck, model.StatusDone)
		},
		Processor: g,
		Committer: &commit.Committer{Files: files, Store: store},
		Reporter:  rep,
		Log:       log.Named("generate"),
	}
}

// Process drafts one queued page and returns the product: two artifacts,
// two child pages with link properties, and the advance to fact-check.
func (g *Generate) Process(ctx context.Context, item model.Item) (model.Product, error) {
	if item.Payload.URL == "" {
		return model.Product{}, errors.Wrapf(errors.ErrFetch, "page %s carries no source URL", item.Identity)
	}

	var (
		draft  compose.Draft
		srcURL string
		err    error
	)
	switch item.State {
	case model.StatusQueuedURL:
		draft, srcURL, err = g.fromURL(ctx, item)
	case model.StatusQueuedPDF:
		draft, srcURL, err = g.fromPDF(ctx, item)
	default:
		err = errors.Newf("unexpected draft status %q on page %s", item.State, item.Identity)
	}
	if err != nil {
		return model.Product{}, err
	}

	title := draft.Title
	if title == "" {
		title = item.Title
	}
	now := g.now()
	pageID := item.Payload.PageID

	return model.Product{
		Artifacts: []model.Artifact{
			{Kind: model.ArtifactBlog, Title: title, Body: draft.Blog, SourceRef: srcURL, Date: now},
			{Kind: model.ArtifactScript, Title: title, Body: draft.Script, SourceRef: srcURL, Date: now},
		},
		Remote: []model.RemoteOp{
			g.childPageOp(pageID, title, driver.PropArticle, draft.Blog, driver.FormatMarkdown, srcURL),
			g.childPageOp(pageID, title+" (script)", driver.PropScript, draft.Script, driver.FormatPlain, srcURL),
		},
		Advance: &model.Advance{Field: model.FieldDraft, From: item.State, To: model.StatusFactCheck},
		Note:    "drafted from " + srcURL,
	}, nil
}

func (g *Generate) fromURL(ctx context.Context, item model.Item) (compose.Draft, string, error) {
	art, err := g.Scraper.Article(ctx, item.Payload.URL)
	if err != nil {
		return compose.Draft{}, "", err
	}
	draft, err := g.Composer.FromText(ctx, compose.Source{
		URL:   art.URL,
		Title: art.Title,
		Text:  art.Content,
	})
	return draft, item.Payload.URL, err
}

// fromPDF crawls the referenced page for its first PDF, downloads it and
// drafts from the document. The download is removed whatever happens, so a
// failed item leaves nothing behind.
func (g *Generate) fromPDF(ctx context.Context, item model.Item) (compose.Draft, string, error) {
	links, err := g.Scraper.PDFLinks(ctx, item.Payload.URL)
	if err != nil {
		return compose.Draft{}, "", err
	}
	if len(links) == 0 {
		return compose.Draft{}, "", errors.Wrapf(errors.ErrFetch, "no PDF linked from %s", item.Payload.URL)
	}
	docURL := links[0]

	path, err := g.Download.Download(ctx, docURL, "", "relay-doc-*.pdf")
	if err != nil {
		return compose.Draft{}, "", err
	}
	defer os.Remove(path)

	draft, err := g.Composer.FromDocument(ctx, path)
	return draft, docURL, err
}

// childPageOp creates one child page under the item and points the link
// property at it. Both writes ride the committer's remote phase, after the
// artifacts are durable.
func (g *Generate) childPageOp(pageID, title, property, body string, format driver.ContentFormat, srcURL string) model.RemoteOp {
	return func(ctx context.Context) error {
		page, err := g.Store.CreateChildPage(ctx, pageID, title, driver.ChildDoc{
			Body:      body,
			Format:    format,
			SourceURL: srcURL,
		})
		if err != nil {
			return err
		}
		return g.Store.SetLink(ctx, pageID, property, page.URL)
	}
}

func (g *Generate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

package driver

import (
	"context"
	"time"

	"github.com/paperchase/relay/internal/core/model"
)

// RecordStore is the narrow contract the jobs need from the remote record
// store: status-predicate queries, identity listings for the dedup index,
// and update-by-key mutations. No multi-row transaction is assumed. The
// store owns every status; nothing is cached between runs.
type RecordStore interface {
	// Inbox database (collected news links).
	ListInboxIdentities(ctx context.Context) (map[string]struct{}, error)
	CreateInboxEntry(ctx context.Context, e InboxEntry) error

	// Content database queries. Items come back with a lane snapshot in
	// their payload.
	QueryDraftQueue(ctx context.Context) ([]model.Item, error)
	QueryPublishQueue(ctx context.Context) ([]model.Item, error)
	QueryAllContent(ctx context.Context) ([]model.Item, error)
	ListContentIdentities(ctx context.Context, field model.StatusField, statuses ...model.Status) (map[string]struct{}, error)

	// Content database mutations. UpdateStatus validates the move against
	// the allowed-transition table before touching the store.
	UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error
	SetDate(ctx context.Context, pageID, property string, day time.Time) error
	SetLink(ctx context.Context, pageID, property, url string) error

	// Child-page content. Callers pass text plus a format; the block
	// encoding is a driver detail. Reads always come back as markdown.
	CreateChildPage(ctx context.Context, parentID, title string, doc ChildDoc) (ChildPage, error)
	ChildPageMarkdown(ctx context.Context, pageID string) (string, error)

	// PageTitle resolves a page's title property, whatever it is named.
	PageTitle(ctx context.Context, pageID string) (string, error)
}

// ContentFormat selects how child-page text is encoded into blocks.
type ContentFormat string

const (
	// FormatMarkdown parses headings, lists, quotes and bold spans.
	FormatMarkdown ContentFormat = "markdown"
	// FormatPlain keeps every line verbatim, one paragraph per line.
	FormatPlain ContentFormat = "plain"
)

// ChildDoc is the content for a new child page. SourceURL, when set, puts a
// quoted link back to the original above the body.
type ChildDoc struct {
	Body      string
	Format    ContentFormat
	SourceURL string
}

// InboxEntry is one collected news link headed for the inbox database.
type InboxEntry struct {
	Title     string
	URL       string
	Published time.Time
}

// ChildPage identifies a created child page.
type ChildPage struct {
	ID  string
	URL string
}

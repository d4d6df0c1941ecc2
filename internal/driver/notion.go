package driver

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/errors"
)

const queryPageSize = 100

// NotionStore implements RecordStore against the Notion API. All calls pass
// through a shared rate limiter; the public API throttles around 3 req/s.
type NotionStore struct {
	client    *notionapi.Client
	inboxDB   notionapi.DatabaseID
	contentDB notionapi.DatabaseID
	limiter   *rate.Limiter
}

func NewNotionStore(cfg config.NotionConfig) (*NotionStore, error) {
	if cfg.Token == "" {
		return nil, errors.New("notion token not configured")
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	return &NotionStore{
		client:    notionapi.NewClient(notionapi.Token(cfg.Token)),
		inboxDB:   notionapi.DatabaseID(cfg.InboxDB),
		contentDB: notionapi.DatabaseID(cfg.ContentDB),
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (s *NotionStore) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}
	return nil
}

// queryPages drains a database query across pagination.
func (s *NotionStore) queryPages(ctx context.Context, db notionapi.DatabaseID, filter notionapi.Filter) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		resp, err := s.client.Database.Query(ctx, db, &notionapi.DatabaseQueryRequest{
			Filter:      filter,
			PageSize:    queryPageSize,
			StartCursor: cursor,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "query database %s", db)
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore {
			return pages, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

func (s *NotionStore) ListInboxIdentities(ctx context.Context) (map[string]struct{}, error) {
	pages, err := s.queryPages(ctx, s.inboxDB, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list inbox identities")
	}
	ids := make(map[string]struct{}, len(pages))
	for i := range pages {
		if u := pageURL(&pages[i], PropSourceURL); u != "" {
			ids[u] = struct{}{}
		}
	}
	return ids, nil
}

func (s *NotionStore) CreateInboxEntry(ctx context.Context, e InboxEntry) error {
	props := map[string]notionapi.Property{
		PropTitle:     titleProperty(e.Title),
		PropSourceURL: urlProperty(e.URL),
	}
	if !e.Published.IsZero() {
		props[PropFound] = dateProperty(e.Published)
	}

	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       "database_id",
			DatabaseID: s.inboxDB,
		},
		Properties: props,
	})
	if err != nil {
		return errors.Wrapf(err, "create inbox entry for %s", e.URL)
	}
	return nil
}

func (s *NotionStore) QueryDraftQueue(ctx context.Context) ([]model.Item, error) {
	filter := notionapi.OrCompoundFilter{
		notionapi.PropertyFilter{
			Property: PropDraftStatus,
			Select:   &notionapi.SelectFilterCondition{Equals: model.StatusQueuedURL.String()},
		},
		notionapi.PropertyFilter{
			Property: PropDraftStatus,
			Select:   &notionapi.SelectFilterCondition{Equals: model.StatusQueuedPDF.String()},
		},
	}
	pages, err := s.queryPages(ctx, s.contentDB, filter)
	if err != nil {
		return nil, errors.Wrap(err, "query draft queue")
	}
	items := make([]model.Item, 0, len(pages))
	for i := range pages {
		item := s.pageToItem(&pages[i])
		item.State = item.Payload.Lanes.Draft
		items = append(items, item)
	}
	return items, nil
}

func (s *NotionStore) QueryPublishQueue(ctx context.Context) ([]model.Item, error) {
	filter := notionapi.PropertyFilter{
		Property: PropWebStatus,
		Select:   &notionapi.SelectFilterCondition{Equals: model.StatusPublishQueue.String()},
	}
	pages, err := s.queryPages(ctx, s.contentDB, filter)
	if err != nil {
		return nil, errors.Wrap(err, "query publish queue")
	}
	items := make([]model.Item, 0, len(pages))
	for i := range pages {
		item := s.pageToItem(&pages[i])
		item.State = item.Payload.Lanes.Web
		item.Payload.ArticleID = linkedPageID(&pages[i], PropArticle)
		items = append(items, item)
	}
	return items, nil
}

func (s *NotionStore) QueryAllContent(ctx context.Context) ([]model.Item, error) {
	pages, err := s.queryPages(ctx, s.contentDB, nil)
	if err != nil {
		return nil, errors.Wrap(err, "query content database")
	}
	items := make([]model.Item, 0, len(pages))
	for i := range pages {
		item := s.pageToItem(&pages[i])
		item.State = item.Payload.Lanes.Draft
		items = append(items, item)
	}
	return items, nil
}

func (s *NotionStore) ListContentIdentities(ctx context.Context, field model.StatusField, statuses ...model.Status) (map[string]struct{}, error) {
	prop, ok := statusProps[field]
	if !ok {
		return nil, errors.Newf("unknown status field %q", field)
	}
	var filter notionapi.Filter
	if len(statuses) == 1 {
		filter = notionapi.PropertyFilter{
			Property: prop,
			Select:   &notionapi.SelectFilterCondition{Equals: statuses[0].String()},
		}
	} else {
		or := make(notionapi.OrCompoundFilter, 0, len(statuses))
		for _, st := range statuses {
			or = append(or, notionapi.PropertyFilter{
				Property: prop,
				Select:   &notionapi.SelectFilterCondition{Equals: st.String()},
			})
		}
		filter = or
	}

	pages, err := s.queryPages(ctx, s.contentDB, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s identities", field)
	}
	ids := make(map[string]struct{}, len(pages))
	for i := range pages {
		ids[string(pages[i].ID)] = struct{}{}
	}
	return ids, nil
}

func (s *NotionStore) UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error {
	if err := model.EnsureTransition(field, from, to); err != nil {
		return err
	}
	prop, ok := statusProps[field]
	if !ok {
		return errors.Newf("unknown status field %q", field)
	}

	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			prop: selectProperty(to.String()),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "advance %s of %s to %s", field, pageID, to)
	}
	return nil
}

func (s *NotionStore) SetDate(ctx context.Context, pageID, property string, day time.Time) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			property: dateProperty(day),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "set %s on %s", property, pageID)
	}
	return nil
}

func (s *NotionStore) SetLink(ctx context.Context, pageID, property, url string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			property: urlProperty(url),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "set %s on %s", property, pageID)
	}
	return nil
}

func (s *NotionStore) CreateChildPage(ctx context.Context, parentID, title string, doc ChildDoc) (ChildPage, error) {
	var blocks []notionapi.Block
	if doc.SourceURL != "" {
		blocks = SourceHeaderBlocks(doc.SourceURL)
	}
	if doc.Format == FormatPlain {
		blocks = append(blocks, PlainTextToBlocks(doc.Body)...)
	} else {
		blocks = append(blocks, MarkdownToBlocks(doc.Body)...)
	}

	first := blocks
	if len(first) > blockAppendLimit {
		first = blocks[:blockAppendLimit]
	}

	if err := s.wait(ctx); err != nil {
		return ChildPage{}, err
	}
	page, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:   "page_id",
			PageID: notionapi.PageID(parentID),
		},
		Properties: map[string]notionapi.Property{
			"title": titleProperty(title),
		},
		Children: first,
	})
	if err != nil {
		return ChildPage{}, errors.Wrapf(err, "create child page under %s", parentID)
	}

	for start := blockAppendLimit; start < len(blocks); start += blockAppendLimit {
		end := start + blockAppendLimit
		if end > len(blocks) {
			end = len(blocks)
		}
		if err := s.wait(ctx); err != nil {
			return ChildPage{}, err
		}
		_, err := s.client.Block.AppendChildren(ctx, notionapi.BlockID(page.ID), &notionapi.AppendBlockChildrenRequest{
			Children: blocks[start:end],
		})
		if err != nil {
			return ChildPage{}, errors.Wrapf(err, "append blocks to child page %s", page.ID)
		}
	}

	return ChildPage{ID: string(page.ID), URL: page.URL}, nil
}

func (s *NotionStore) ChildPageMarkdown(ctx context.Context, pageID string) (string, error) {
	var blocks []notionapi.Block
	var cursor notionapi.Cursor

	for {
		if err := s.wait(ctx); err != nil {
			return "", err
		}
		resp, err := s.client.Block.GetChildren(ctx, notionapi.BlockID(pageID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return "", errors.Wrapf(err, "fetch blocks of %s", pageID)
		}
		blocks = append(blocks, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	return BlocksToMarkdown(blocks), nil
}

func (s *NotionStore) PageTitle(ctx context.Context, pageID string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	page, err := s.client.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return "", errors.Wrapf(err, "fetch page %s", pageID)
	}
	return pageTitle(page), nil
}

func (s *NotionStore) pageToItem(p *notionapi.Page) model.Item {
	snap := laneSnapshot(p)
	return model.Item{
		Identity: string(p.ID),
		Title:    pageTitle(p),
		Payload: model.Payload{
			PageID: string(p.ID),
			URL:    pageURL(p, PropSourceURL),
			Lanes:  &snap,
		},
	}
}

package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/core"
	"github.com/paperchase/relay/internal/core/commit"
	"github.com/paperchase/relay/internal/core/common"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/core/report"
	"github.com/paperchase/relay/internal/errors"
	"github.com/paperchase/relay/internal/wordpress"
)

// PublishStore is the slice of the record store the publish job needs.
type PublishStore interface {
	QueryPublishQueue(ctx context.Context) ([]model.Item, error)
	ChildPageMarkdown(ctx context.Context, pageID string) (string, error)
	PageTitle(ctx context.Context, pageID string) (string, error)
	UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error
}

// PostTarget is the publishing side. *wordpress.Client satisfies it.
type PostTarget interface {
	FindPostByTitle(ctx context.Context, title string) (int, error)
	CreateDraft(ctx context.Context, title, html string) (int, error)
}

// Publish uploads queued drafts to the publishing target. The article body
// lives on a linked child page; its markdown is fetched, rendered to HTML
// and posted as a draft. An existing post with the same title means a
// previous run already uploaded but never advanced, so the item reconciles
// by advancing alone.
type Publish struct {
	Store  PublishStore
	Target PostTarget
	Log    *zap.SugaredLogger
}

// NewPublish wires the WordPress upload job.
func NewPublish(store PublishStore, target PostTarget, rep *report.Reporter, log *zap.SugaredLogger) *core.Pipeline {
	p := &Publish{Store: store, Target: target, Log: log.Named("publish")}
	return &core.Pipeline{
		Job:       "publish",
		Source:    core.EnumeratorFunc(store.QueryPublishQueue),
		Processor: p,
		Committer: &commit.Committer{Store: store},
		Reporter:  rep,
		Log:       log.Named("publish"),
	}
}

// Process resolves the linked article, renders it and returns the post
// creation plus the advance to scheduled.
func (p *Publish) Process(ctx context.Context, item model.Item) (model.Product, error) {
	articleID := item.Payload.ArticleID
	if articleID == "" {
		return model.Product{}, errors.Wrapf(errors.ErrTransform, "page %s has no linked article page", item.Identity)
	}

	md, err := p.Store.ChildPageMarkdown(ctx, articleID)
	if err != nil {
		return model.Product{}, errors.Wrapf(errors.ErrFetch, "article page %s: %v", articleID, err)
	}

	title, body := common.SplitTitle(md)
	if title == "" {
		title, err = p.Store.PageTitle(ctx, articleID)
		if err != nil || title == "" {
			title = item.Title
		}
		body = md
	}
	if title == "" {
		return model.Product{}, errors.Wrapf(errors.ErrTransform, "article page %s has no usable title", articleID)
	}

	html, err := wordpress.RenderHTML(body)
	if err != nil {
		return model.Product{}, err
	}

	advance := &model.Advance{Field: model.FieldWeb, From: model.StatusPublishQueue, To: model.StatusScheduled}

	existing, err := p.Target.FindPostByTitle(ctx, title)
	if err != nil {
		return model.Product{}, err
	}
	if existing != 0 {
		// Leftover of a partial commit: the post exists, only the status
		// lagged. Advancing without a second post reconciles it.
		p.Log.Infow("post already exists, advancing status only",
			"identity", item.Identity, "post_id", existing, "title", title)
		return model.Product{
			Advance: advance,
			Note:    fmt.Sprintf("post %d already exists", existing),
		}, nil
	}

	return model.Product{
		Remote: []model.RemoteOp{func(ctx context.Context) error {
			_, err := p.Target.CreateDraft(ctx, title, html)
			return err
		}},
		Advance: advance,
		Note:    "draft posted: " + title,
	}, nil
}

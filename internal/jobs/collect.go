// Package jobs assembles the production batch jobs from the pipeline engine
// and the service drivers. Each constructor returns a ready-to-run Pipeline;
// the jobs own no state of their own beyond the collaborators handed in.
package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/core"
	"github.com/paperchase/relay/internal/core/commit"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/core/report"
	"github.com/paperchase/relay/internal/driver"
	"github.com/paperchase/relay/internal/feed"
)

// InboxStore is the slice of the record store the collect job needs.
type InboxStore interface {
	ListInboxIdentities(ctx context.Context) (map[string]struct{}, error)
	CreateInboxEntry(ctx context.Context, e driver.InboxEntry) error
}

// NewCollect wires the news-collection job: every configured source is
// enumerated, links already present in the inbox are skipped, and each new
// link becomes one inbox row. Rows are born in the inbox state, so the job
// produces no artifacts and advances no status.
func NewCollect(store InboxStore, collector *feed.Collector, rep *report.Reporter, log *zap.SugaredLogger) *core.Pipeline {
	return &core.Pipeline{
		Job:    "collect",
		Source: collector,
		Index:  store.ListInboxIdentities,
		Processor: core.ProcessorFunc(func(ctx context.Context, item model.Item) (model.Product, error) {
			entry := driver.InboxEntry{
				Title:     item.Title,
				URL:       item.Payload.URL,
				Published: item.Payload.PublishedAt,
			}
			return model.Product{
				Remote: []model.RemoteOp{func(ctx context.Context) error {
					return store.CreateInboxEntry(ctx, entry)
				}},
				Note: "collected from " + item.Payload.Source,
			}, nil
		}),
		Committer: &commit.Committer{},
		Reporter:  rep,
		Log:       log.Named("collect"),
	}
}

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/core/common"
	"github.com/paperchase/relay/internal/core/dedupe"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/core/report"
	"github.com/paperchase/relay/internal/errors"
	"github.com/paperchase/relay/internal/logging"
)

// Enumerator lists this run's candidate items. Multi-source enumerators
// tolerate a single source failing (it contributes zero items and is
// logged); an error from Enumerate means no candidates could be listed at
// all and aborts the run.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]model.Item, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func(ctx context.Context) ([]model.Item, error)

func (f EnumeratorFunc) Enumerate(ctx context.Context) ([]model.Item, error) { return f(ctx) }

// Processor performs the one unit of external work for an item. Errors are
// per-item: the run records the failure and moves on. Outbound calls are
// bounded by the processor's own timeouts; a blown deadline surfaces as a
// timeout error.
type Processor interface {
	Process(ctx context.Context, item model.Item) (model.Product, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, item model.Item) (model.Product, error)

func (f ProcessorFunc) Process(ctx context.Context, item model.Item) (model.Product, error) {
	return f(ctx, item)
}

// Committer applies a product: artifacts first, remote mutations, status
// advance last.
type Committer interface {
	Commit(ctx context.Context, item model.Item, p model.Product) ([]string, error)
}

// Pipeline runs one status-driven batch job: rebuild the identity index,
// enumerate candidates, then sequentially dedup, process and commit each
// item. Items are independent; per-item failures never abort the batch.
// Only an unavailable identity index or a failed enumeration is fatal.
type Pipeline struct {
	Job       string
	Source    Enumerator
	Index     dedupe.Builder // nil when the job has no identity listing
	Processor Processor
	Committer Committer
	Reporter  *report.Reporter
	Log       *zap.SugaredLogger
}

// Run executes the batch once and reports the result. The returned error
// is non-nil only for fatal run-level failures; a run that completed with
// item failures returns a nil error and the counts tell the story.
func (p *Pipeline) Run(ctx context.Context) (model.BatchResult, error) {
	res := model.BatchResult{
		RunID:     uuid.New().String(),
		Job:       p.Job,
		StartedAt: time.Now().UTC(),
	}

	log := p.Log
	if log == nil {
		log = logging.NewNop()
	}
	log = log.With("run_id", res.RunID, "job", p.Job)

	finish := func(err error) (model.BatchResult, error) {
		res.FinishedAt = time.Now().UTC()
		if p.Reporter != nil {
			p.Reporter.Report(res)
		}
		return res, err
	}

	// The index is rebuilt from the store every run; it is the only thing
	// standing between a re-run and duplicate records, so a failure aborts.
	idx := dedupe.Empty()
	if p.Index != nil {
		built, err := dedupe.Build(ctx, p.Index)
		if err != nil {
			log.Errorw("identity index unavailable, aborting run", "error", err)
			return finish(err)
		}
		idx = built
	}

	items, err := p.Source.Enumerate(ctx)
	if err != nil {
		log.Errorw("enumeration failed", "error", err)
		return finish(errors.Wrap(err, "enumerate"))
	}
	log.Infow("run started", "candidates", len(items), "known_identities", idx.Size())

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return finish(errors.Wrap(err, "run interrupted"))
		}

		if idx.Seen(item.Identity) {
			log.Debugw("item skipped", "identity", item.Identity, "detail", "already recorded")
			res.Record(model.Outcome{
				Identity: item.Identity,
				Status:   model.OutcomeSkipped,
				Detail:   "already recorded",
			})
			continue
		}

		res.Record(p.runItem(ctx, log, item, idx))
	}

	return finish(nil)
}

// maxDetailRunes bounds outcome details; wrapped error chains can run long
// and the run log is line-oriented.
const maxDetailRunes = 300

// runItem takes one item through process and commit and classifies the
// result. It never returns an error; every path is an Outcome.
func (p *Pipeline) runItem(ctx context.Context, log *zap.SugaredLogger, item model.Item, idx *dedupe.Index) model.Outcome {
	product, err := p.Processor.Process(ctx, item)
	if err != nil {
		log.Warnw("item failed",
			"identity", item.Identity, "kind", errors.Kind(err), "error", err)
		return model.Outcome{
			Identity: item.Identity,
			Status:   model.OutcomeFailed,
			Detail:   failDetail(err),
		}
	}

	if product.Empty() {
		detail := product.Note
		if detail == "" {
			detail = "nothing to do"
		}
		log.Debugw("item skipped", "identity", item.Identity, "detail", detail)
		return model.Outcome{Identity: item.Identity, Status: model.OutcomeSkipped, Detail: detail}
	}

	paths, err := p.Committer.Commit(ctx, item, product)
	if err != nil {
		if errors.IsPartialCommit(err) {
			// Artifacts are on disk but the status never advanced; the next
			// run picks the item up again. Logged loudly for the operator.
			log.Errorw("partial commit",
				"identity", item.Identity, "artifacts", paths, "error", err)
		} else {
			log.Warnw("commit failed", "identity", item.Identity, "error", err)
		}
		return model.Outcome{
			Identity: item.Identity,
			Status:   model.OutcomeFailed,
			Detail:   failDetail(err),
		}
	}

	idx.Add(item.Identity)
	log.Infow("item succeeded", "identity", item.Identity, "artifacts", len(paths))
	return model.Outcome{Identity: item.Identity, Status: model.OutcomeSucceeded, Detail: product.Note}
}

func failDetail(err error) string {
	return common.Excerpt(fmt.Sprintf("%s: %v", errors.Kind(err), err), maxDetailRunes)
}

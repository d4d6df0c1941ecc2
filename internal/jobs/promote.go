package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/core"
	"github.com/paperchase/relay/internal/core/commit"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/core/report"
	"github.com/paperchase/relay/internal/driver"
	"github.com/paperchase/relay/internal/errors"
)

// SweepStore is the slice of the record store the promote job needs.
type SweepStore interface {
	QueryAllContent(ctx context.Context) ([]model.Item, error)
	UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error
	SetDate(ctx context.Context, pageID, property string, day time.Time) error
}

// Promote is the fan-out sweep: finished drafts are queued for publishing
// and voicing, and empty date markers are stamped. Every move only fills a
// field that is currently unset, so the sweep converges; a page needing
// nothing yields an empty product and reports as skipped.
type Promote struct {
	Store SweepStore
	Now   func() time.Time
}

// NewPromote wires the fan-out job. It runs with no dedup index on purpose:
// a page fanned out in an earlier run may still need a late date stamp, and
// an identity filter would suppress it.
func NewPromote(store SweepStore, rep *report.Reporter, log *zap.SugaredLogger) *core.Pipeline {
	p := &Promote{Store: store, Now: time.Now}
	return &core.Pipeline{
		Job:       "promote",
		Source:    core.EnumeratorFunc(store.QueryAllContent),
		Processor: p,
		Committer: &commit.Committer{Store: store},
		Reporter:  rep,
		Log:       log.Named("promote"),
	}
}

// Process inspects the page's status lanes and emits one remote op per
// field that needs filling. A raw status outside the transition tables
// fails the item so the operator sees it instead of the sweep guessing.
func (p *Promote) Process(ctx context.Context, item model.Item) (model.Product, error) {
	lanes := item.Payload.Lanes
	if lanes == nil {
		return model.Product{}, errors.Newf("page %s carries no status lanes", item.Identity)
	}
	if err := knownLanes(item.Identity, lanes); err != nil {
		return model.Product{}, err
	}

	pageID := item.Payload.PageID
	day := p.now()
	var ops []model.RemoteOp

	if lanes.Draft == model.StatusDone {
		if lanes.Web == model.StatusUnset {
			ops = append(ops, p.statusOp(pageID, model.FieldWeb, model.StatusUnset, model.StatusPublishQueue))
		}
		if lanes.Podcast == model.StatusUnset {
			ops = append(ops, p.statusOp(pageID, model.FieldPodcast, model.StatusUnset, model.StatusVoiceQueue))
		}
	}

	if !lanes.HasDrafted && (lanes.Draft == model.StatusFactCheck || lanes.Draft == model.StatusDone) {
		ops = append(ops, p.dateOp(pageID, driver.PropDrafted, day))
	}
	if !lanes.HasPublished && lanes.Web == model.StatusScheduled {
		ops = append(ops, p.dateOp(pageID, driver.PropPublished, day))
	}
	if !lanes.HasVoiced && lanes.Podcast == model.StatusVoiced {
		ops = append(ops, p.dateOp(pageID, driver.PropVoiced, day))
	}

	if len(ops) == 0 {
		return model.Product{Note: "up to date"}, nil
	}
	return model.Product{Remote: ops}, nil
}

func (p *Promote) statusOp(pageID string, field model.StatusField, from, to model.Status) model.RemoteOp {
	return func(ctx context.Context) error {
		return p.Store.UpdateStatus(ctx, pageID, field, from, to)
	}
}

func (p *Promote) dateOp(pageID, property string, day time.Time) model.RemoteOp {
	return func(ctx context.Context) error {
		return p.Store.SetDate(ctx, pageID, property, day)
	}
}

func (p *Promote) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// knownLanes rejects any raw status value outside the transition tables.
// An empty draft status also counts: a content page without one is not
// something the sweep should touch.
func knownLanes(identity string, lanes *model.LaneSnapshot) error {
	if lanes.RawDraft == "" || !model.ValidStatus(model.FieldDraft, lanes.Draft) {
		return errors.Newf("page %s: unknown draft status %q", identity, lanes.RawDraft)
	}
	if !model.ValidStatus(model.FieldWeb, lanes.Web) {
		return errors.Newf("page %s: unknown web status %q", identity, lanes.RawWeb)
	}
	if !model.ValidStatus(model.FieldPodcast, lanes.Podcast) {
		return errors.Newf("page %s: unknown podcast status %q", identity, lanes.RawPodcast)
	}
	return nil
}

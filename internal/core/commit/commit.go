package commit

import (
	"context"

	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/errors"
)

// ArtifactWriter durably stores one artifact and returns its final path.
type ArtifactWriter interface {
	Write(a model.Artifact) (string, error)
}

// Advancer moves one status field of a record, validating the transition.
type Advancer interface {
	UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error
}

// Committer applies an item's product in a fixed order: local artifacts
// first, then remote side effects, then the status advance. The advance
// runs last so that a crash at any point leaves the item in a state the
// next run will pick up again rather than marking unfinished work done.
type Committer struct {
	Files ArtifactWriter // nil when the job produces no files
	Store Advancer       // nil when the job never advances status
}

// Commit applies the product for one item and returns the artifact paths
// written. Once at least one step has been applied durably, any later
// failure surfaces as ErrPartialCommit so the caller can tell a
// well-defined partial state from a clean failure.
func (c *Committer) Commit(ctx context.Context, item model.Item, p model.Product) ([]string, error) {
	var paths []string
	applied := 0

	for _, a := range p.Artifacts {
		if c.Files == nil {
			return paths, c.seal(applied, errors.Newf("artifact %s produced but no writer configured", a.Kind))
		}
		path, err := c.Files.Write(a)
		if err != nil {
			return paths, c.seal(applied, errors.Wrapf(err, "write %s artifact", a.Kind))
		}
		paths = append(paths, path)
		applied++
	}

	for i, op := range p.Remote {
		if err := op(ctx); err != nil {
			return paths, c.seal(applied, errors.Wrapf(err, "remote step %d", i+1))
		}
		applied++
	}

	if p.Advance != nil {
		if c.Store == nil {
			return paths, c.seal(applied, errors.Newf("advance produced but no store configured"))
		}
		pageID := item.Payload.PageID
		if pageID == "" {
			pageID = item.Identity
		}
		if err := c.Store.UpdateStatus(ctx, pageID, p.Advance.Field, p.Advance.From, p.Advance.To); err != nil {
			return paths, c.seal(applied, errors.Wrapf(err, "advance %s %s -> %s", p.Advance.Field, p.Advance.From, p.Advance.To))
		}
	}

	return paths, nil
}

// seal classifies a commit failure. Failures before anything durable
// happened pass through unchanged; failures after that are partial commits.
func (c *Committer) seal(applied int, err error) error {
	if applied == 0 {
		return err
	}
	return errors.Wrapf(errors.ErrPartialCommit, "%d of the steps applied: %v", applied, err)
}

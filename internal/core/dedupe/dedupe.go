package dedupe

import (
	"context"

	"github.com/paperchase/relay/internal/errors"
)

// Builder lists the identities of already-processed items from the record
// store. Each job supplies its own listing.
type Builder func(ctx context.Context) (map[string]struct{}, error)

// Index is the per-run duplicate filter. It is rebuilt from the record
// store at the start of every run and discarded afterwards; no identity
// state is kept locally between runs.
type Index struct {
	seen map[string]struct{}
}

// Build rebuilds the index via the supplied builder. A failed rebuild is
// fatal for the whole run: without the index every already-processed item
// would look new and be handled again.
func Build(ctx context.Context, build Builder) (*Index, error) {
	seen, err := build(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDedupIndex, "rebuild: %v", err)
	}
	if seen == nil {
		seen = make(map[string]struct{})
	}
	return &Index{seen: seen}, nil
}

// Empty returns an index with no known identities, for jobs whose work is
// a convergent sweep rather than identity-tracked processing.
func Empty() *Index {
	return &Index{seen: make(map[string]struct{})}
}

// Seen reports whether the identity was already processed.
func (x *Index) Seen(identity string) bool {
	_, ok := x.seen[identity]
	return ok
}

// Add records an identity handled during this run, so a duplicate later in
// the same batch is skipped as well.
func (x *Index) Add(identity string) {
	x.seen[identity] = struct{}{}
}

// Size returns the number of known identities.
func (x *Index) Size() int {
	return len(x.seen)
}

package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperchase/relay/internal/core/commit"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/errors"
	"github.com/paperchase/relay/internal/logging"
)

// stubStore plays the remote record store: a fixed enumeration, an identity
// listing that grows as statuses advance, and per-item advance failures.
type stubStore struct {
	queue      []model.Item
	identities map[string]struct{}
	indexErr   error
	advanceErr map[string]error
	advanced   []string
}

func newStubStore(known ...string) *stubStore {
	m := make(map[string]struct{}, len(known))
	for _, id := range known {
		m[id] = struct{}{}
	}
	return &stubStore{identities: m, advanceErr: map[string]error{}}
}

func (s *stubStore) list(ctx context.Context) (map[string]struct{}, error) {
	if s.indexErr != nil {
		return nil, s.indexErr
	}
	out := make(map[string]struct{}, len(s.identities))
	for k := range s.identities {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *stubStore) UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error {
	if err := s.advanceErr[pageID]; err != nil {
		return err
	}
	s.advanced = append(s.advanced, pageID)
	s.identities[pageID] = struct{}{}
	return nil
}

func (s *stubStore) enumerate(ctx context.Context) ([]model.Item, error) {
	return s.queue, nil
}

type stubProcessor struct {
	calls []string
	fail  map[string]error
	make  func(item model.Item) model.Product
}

func (p *stubProcessor) Process(ctx context.Context, item model.Item) (model.Product, error) {
	p.calls = append(p.calls, item.Identity)
	if err := p.fail[item.Identity]; err != nil {
		return model.Product{}, err
	}
	if p.make != nil {
		return p.make(item), nil
	}
	return model.Product{
		Artifacts: []model.Artifact{{Kind: model.ArtifactBlog, Title: item.Title, Body: "body", Date: time.Now()}},
		Advance:   &model.Advance{Field: model.FieldDraft, From: model.StatusQueuedURL, To: model.StatusFactCheck},
	}, nil
}

type memWriter struct {
	paths []string
}

func (w *memWriter) Write(a model.Artifact) (string, error) {
	p := "/artifacts/" + string(a.Kind) + "/" + a.Title + ".md"
	w.paths = append(w.paths, p)
	return p, nil
}

func queuedItems(ids ...string) []model.Item {
	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.Item{
			Identity: id,
			State:    model.StatusQueuedURL,
			Title:    "Item " + id,
			Payload:  model.Payload{PageID: id, URL: "https://example.org/" + id},
		})
	}
	return items
}

func testPipeline(store *stubStore, proc *stubProcessor, w *memWriter) *Pipeline {
	return &Pipeline{
		Job:       "generate",
		Source:    EnumeratorFunc(store.enumerate),
		Index:     store.list,
		Processor: proc,
		Committer: &commit.Committer{Files: w, Store: store},
		Log:       logging.NewNop(),
	}
}

func TestRunSkipsKnownProcessesRest(t *testing.T) {
	store := newStubStore("B")
	store.queue = queuedItems("A", "B", "C")
	proc := &stubProcessor{}
	w := &memWriter{}

	res, err := testPipeline(store, proc, w).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []string{"A", "C"}, proc.calls, "known item is never processed")
	assert.Equal(t, []string{"A", "C"}, store.advanced)
	assert.Len(t, w.paths, 2)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	store := newStubStore()
	store.queue = queuedItems("A", "B")
	proc := &stubProcessor{}
	w := &memWriter{}
	p := testPipeline(store, proc, w)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Succeeded)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, w.paths, 2, "no new artifacts on the second run")
	assert.Len(t, store.advanced, 2)
}

func TestRunIsolatesItemFailure(t *testing.T) {
	store := newStubStore()
	store.queue = queuedItems("A", "B", "C")
	proc := &stubProcessor{fail: map[string]error{
		"B": errors.Wrapf(errors.ErrTransform, "model returned nothing"),
	}}
	w := &memWriter{}

	res, err := testPipeline(store, proc, w).Run(context.Background())
	require.NoError(t, err, "item failures never abort the batch")

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "B", res.Failures[0].Identity)
	assert.Contains(t, res.Failures[0].Detail, "transform")
	assert.Equal(t, []string{"A", "C"}, store.advanced)
}

func TestRunAbortsWhenIndexUnavailable(t *testing.T) {
	store := newStubStore()
	store.queue = queuedItems("A", "B")
	store.indexErr = errors.New("store unreachable")
	proc := &stubProcessor{}

	res, err := testPipeline(store, proc, &memWriter{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDedupIndex(err))
	assert.Empty(t, proc.calls, "no item may be treated as new")
	assert.Equal(t, 0, res.Total())
}

func TestRunAbortsWhenEnumerationFails(t *testing.T) {
	store := newStubStore()
	proc := &stubProcessor{}
	p := testPipeline(store, proc, &memWriter{})
	p.Source = EnumeratorFunc(func(ctx context.Context) ([]model.Item, error) {
		return nil, errors.New("query rejected")
	})

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, res.Total())
	assert.Empty(t, proc.calls)
}

func TestRunReprocessesAfterPartialCommit(t *testing.T) {
	store := newStubStore()
	store.queue = queuedItems("A")
	store.advanceErr["A"] = errors.New("store write rejected")
	proc := &stubProcessor{}
	w := &memWriter{}
	p := testPipeline(store, proc, w)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)
	require.Len(t, first.Failures, 1)
	assert.Contains(t, first.Failures[0].Detail, "partial-commit")
	assert.Empty(t, store.advanced, "status must not have advanced")

	// The store recovers; the item is still enumerated and not suppressed.
	delete(store.advanceErr, "A")
	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Succeeded)
	assert.Equal(t, []string{"A"}, store.advanced)
	assert.Len(t, w.paths, 2, "one duplicate artifact, never a lost item")
}

func TestRunSkipsEmptyProduct(t *testing.T) {
	store := newStubStore()
	store.queue = queuedItems("A")
	proc := &stubProcessor{make: func(item model.Item) model.Product {
		return model.Product{Note: "already up to date"}
	}}

	res, err := testPipeline(store, proc, &memWriter{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Succeeded)
}

func TestRunWithoutIndexListing(t *testing.T) {
	store := newStubStore()
	store.queue = queuedItems("A")
	proc := &stubProcessor{}
	p := testPipeline(store, proc, &memWriter{})
	p.Index = nil

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	store := newStubStore()
	store.queue = queuedItems("A", "B")
	proc := &stubProcessor{}
	p := testPipeline(store, proc, &memWriter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.Error(t, err)
	assert.Empty(t, proc.calls)
}

func TestRunDuplicateWithinBatch(t *testing.T) {
	store := newStubStore()
	items := queuedItems("A")
	store.queue = append(items, items...)
	proc := &stubProcessor{}
	w := &memWriter{}

	res, err := testPipeline(store, proc, w).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, w.paths, 1, "same identity is committed once per run")
}

package commit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/errors"
)

type fakeWriter struct {
	paths  []string
	failAt int // 1-based write that fails; 0 = never
	calls  int
}

func (f *fakeWriter) Write(a model.Artifact) (string, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return "", errors.New("disk full")
	}
	p := "/tmp/" + string(a.Kind) + ".md"
	f.paths = append(f.paths, p)
	return p, nil
}

type fakeAdvancer struct {
	err     error
	applied []model.Advance
	pageIDs []string
}

func (f *fakeAdvancer) UpdateStatus(ctx context.Context, pageID string, field model.StatusField, from, to model.Status) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, model.Advance{Field: field, From: from, To: to})
	f.pageIDs = append(f.pageIDs, pageID)
	return nil
}

func productWithEverything() model.Product {
	return model.Product{
		Artifacts: []model.Artifact{
			{Kind: model.ArtifactBlog, Title: "t", Body: "b", Date: time.Now()},
			{Kind: model.ArtifactScript, Title: "t", Body: "s", Date: time.Now()},
		},
		Advance: &model.Advance{
			Field: model.FieldDraft,
			From:  model.StatusQueuedURL,
			To:    model.StatusFactCheck,
		},
	}
}

func TestCommitOrderArtifactsBeforeAdvance(t *testing.T) {
	w := &fakeWriter{}
	var order []string
	adv := &fakeAdvancer{}

	p := productWithEverything()
	p.Remote = []model.RemoteOp{func(ctx context.Context) error {
		order = append(order, "remote")
		return nil
	}}

	c := &Committer{Files: w, Store: adv}
	paths, err := c.Commit(context.Background(), model.Item{Identity: "page-1"}, p)
	require.NoError(t, err)

	assert.Len(t, paths, 2)
	assert.Equal(t, 2, w.calls, "artifacts written first")
	assert.Equal(t, []string{"remote"}, order)
	require.Len(t, adv.applied, 1)
	assert.Equal(t, model.StatusFactCheck, adv.applied[0].To)
	assert.Equal(t, []string{"page-1"}, adv.pageIDs)
}

func TestCommitUsesPayloadPageID(t *testing.T) {
	adv := &fakeAdvancer{}
	c := &Committer{Store: adv}
	item := model.Item{Identity: "url-identity", Payload: model.Payload{PageID: "page-9"}}
	_, err := c.Commit(context.Background(), item, model.Product{
		Advance: &model.Advance{Field: model.FieldWeb, From: model.StatusUnset, To: model.StatusPublishQueue},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"page-9"}, adv.pageIDs)
}

func TestCommitFailureOnFirstStepIsPlain(t *testing.T) {
	w := &fakeWriter{failAt: 1}
	c := &Committer{Files: w, Store: &fakeAdvancer{}}

	_, err := c.Commit(context.Background(), model.Item{Identity: "p"}, productWithEverything())
	require.Error(t, err)
	assert.False(t, errors.IsPartialCommit(err), "nothing durable happened yet")
}

func TestCommitFailureAfterDurableStepIsPartial(t *testing.T) {
	w := &fakeWriter{failAt: 2}
	c := &Committer{Files: w, Store: &fakeAdvancer{}}

	_, err := c.Commit(context.Background(), model.Item{Identity: "p"}, productWithEverything())
	require.Error(t, err)
	assert.True(t, errors.IsPartialCommit(err))
}

func TestCommitAdvanceFailureAfterArtifactsIsPartial(t *testing.T) {
	w := &fakeWriter{}
	adv := &fakeAdvancer{err: errors.New("store down")}
	c := &Committer{Files: w, Store: adv}

	paths, err := c.Commit(context.Background(), model.Item{Identity: "p"}, productWithEverything())
	require.Error(t, err)
	assert.True(t, errors.IsPartialCommit(err))
	assert.Len(t, paths, 2, "written artifacts are reported even on failure")
}

func TestCommitRemoteFailureAfterRemoteSuccessIsPartial(t *testing.T) {
	calls := 0
	p := model.Product{
		Remote: []model.RemoteOp{
			func(ctx context.Context) error { calls++; return nil },
			func(ctx context.Context) error { calls++; return errors.New("api 500") },
		},
	}
	c := &Committer{}
	_, err := c.Commit(context.Background(), model.Item{Identity: "p"}, p)
	require.Error(t, err)
	assert.True(t, errors.IsPartialCommit(err))
	assert.Equal(t, 2, calls)
}

func TestCommitEmptyProductIsNoop(t *testing.T) {
	c := &Committer{}
	paths, err := c.Commit(context.Background(), model.Item{Identity: "p"}, model.Product{})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestCommitAdvanceOnlyFailureIsPlain(t *testing.T) {
	adv := &fakeAdvancer{err: errors.New("store down")}
	c := &Committer{Store: adv}
	_, err := c.Commit(context.Background(), model.Item{Identity: "p"}, model.Product{
		Advance: &model.Advance{Field: model.FieldDraft, From: model.StatusQueuedURL, To: model.StatusFactCheck},
	})
	require.Error(t, err)
	assert.False(t, errors.IsPartialCommit(err))
}

package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperchase/relay/internal/errors"
)

func TestBuildSeenAndAdd(t *testing.T) {
	idx, err := Build(context.Background(), func(ctx context.Context) (map[string]struct{}, error) {
		return map[string]struct{}{
			"https://example.org/a": {},
			"https://example.org/b": {},
		}, nil
	})
	require.NoError(t, err)

	assert.True(t, idx.Seen("https://example.org/a"))
	assert.False(t, idx.Seen("https://example.org/c"))
	assert.Equal(t, 2, idx.Size())

	idx.Add("https://example.org/c")
	assert.True(t, idx.Seen("https://example.org/c"))
	assert.Equal(t, 3, idx.Size())
}

func TestBuildFailureIsFatal(t *testing.T) {
	idx, err := Build(context.Background(), func(ctx context.Context) (map[string]struct{}, error) {
		return nil, errors.New("store unreachable")
	})
	require.Error(t, err)
	assert.Nil(t, idx)
	assert.True(t, errors.IsDedupIndex(err))
	assert.True(t, errors.IsFatal(err))
}

func TestBuildNilListing(t *testing.T) {
	idx, err := Build(context.Background(), func(ctx context.Context) (map[string]struct{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, idx.Seen("anything"))
	assert.Equal(t, 0, idx.Size())
}

func TestEmpty(t *testing.T) {
	idx := Empty()
	assert.Equal(t, 0, idx.Size())
	idx.Add("page-1")
	assert.True(t, idx.Seen("page-1"))
}

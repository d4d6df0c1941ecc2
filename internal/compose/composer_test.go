package compose

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/errors"
)

type mockLLM struct {
	Queue   []string
	Err     error
	Prompts []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Queue) == 0 {
		return "", nil
	}
	out := m.Queue[0]
	m.Queue = m.Queue[1:]
	return out, nil
}

type mockDocLLM struct {
	mockLLM
	FilePaths   []string
	FilePrompts []string
	FileOut     string
	FileErr     error
}

func (m *mockDocLLM) GenerateFromFile(ctx context.Context, prompt, path string) (string, error) {
	m.FilePrompts = append(m.FilePrompts, prompt)
	m.FilePaths = append(m.FilePaths, path)
	if m.FileErr != nil {
		return "", m.FileErr
	}
	return m.FileOut, nil
}

const sampleBlog = "Sure, here is the article.\n\n# Reform Of Clinical Trials\n\n## Background\n\nBody text."

func TestFromTextTwoStages(t *testing.T) {
	mock := &mockLLM{Queue: []string{sampleBlog, "# Reform Of Clinical Trials\nSpoken line one.\nSpoken line two."}}
	c := NewComposer(mock, config.PromptsConfig{}, 0)

	draft, err := c.FromText(context.Background(), Source{
		URL:   "https://example.org/news/5",
		Title: "Trial Reform",
		Text:  "Official announcement text.",
	})
	require.NoError(t, err)

	require.Len(t, mock.Prompts, 2)
	assert.Contains(t, mock.Prompts[0], "URL: https://example.org/news/5")
	assert.Contains(t, mock.Prompts[0], "Official announcement text.")
	assert.Contains(t, mock.Prompts[0], "blog article")
	assert.Contains(t, mock.Prompts[1], "# Reform Of Clinical Trials", "script stage sees the blog, not the source")
	assert.NotContains(t, mock.Prompts[1], "Official announcement text.")

	assert.Equal(t, "Reform Of Clinical Trials", draft.Title)
	assert.True(t, strings.HasPrefix(draft.Blog, "# Reform Of Clinical Trials"), "preamble dropped")
	assert.Contains(t, draft.Script, "Spoken line one.")
}

func TestFromTextCapsSourceLength(t *testing.T) {
	mock := &mockLLM{Queue: []string{"# T\n\nbody", "script"}}
	c := NewComposer(mock, config.PromptsConfig{}, 0)

	long := strings.Repeat("a", maxSourceChars) + "TAIL-MARKER"
	_, err := c.FromText(context.Background(), Source{URL: "u", Title: "t", Text: long})
	require.NoError(t, err)
	assert.NotContains(t, mock.Prompts[0], "TAIL-MARKER")
}

func TestFromTextPromptOverrides(t *testing.T) {
	mock := &mockLLM{Queue: []string{"# T\n\nbody", "script"}}
	c := NewComposer(mock, config.PromptsConfig{Blog: "CUSTOM BLOG RULES", Script: "CUSTOM SCRIPT RULES"}, 0)

	_, err := c.FromText(context.Background(), Source{URL: "u", Title: "t", Text: "x"})
	require.NoError(t, err)
	assert.Contains(t, mock.Prompts[0], "CUSTOM BLOG RULES")
	assert.Contains(t, mock.Prompts[1], "CUSTOM SCRIPT RULES")
}

func TestFromTextEmptyResponseIsTransformError(t *testing.T) {
	mock := &mockLLM{Queue: []string{"   \n  "}}
	c := NewComposer(mock, config.PromptsConfig{}, 0)

	_, err := c.FromText(context.Background(), Source{URL: "u", Title: "t", Text: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsTransform(err))
}

func TestFromTextProviderErrorIsTransformError(t *testing.T) {
	mock := &mockLLM{Err: errors.New("quota exhausted")}
	c := NewComposer(mock, config.PromptsConfig{}, 0)

	_, err := c.FromText(context.Background(), Source{URL: "u", Title: "t", Text: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsTransform(err))
	assert.False(t, errors.IsTimeout(err))
}

type stallingLLM struct{}

func (stallingLLM) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerateDeadlineIsTimeoutError(t *testing.T) {
	c := NewComposer(stallingLLM{}, config.PromptsConfig{}, 10*time.Millisecond)

	_, err := c.FromText(context.Background(), Source{URL: "u", Title: "t", Text: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
}

func TestFromDocumentNeedsCapableProvider(t *testing.T) {
	c := NewComposer(&mockLLM{}, config.PromptsConfig{}, 0)

	_, err := c.FromDocument(context.Background(), "/tmp/report.pdf")
	require.Error(t, err)
	assert.True(t, errors.IsTransform(err))
}

func TestFromDocumentTwoStages(t *testing.T) {
	mock := &mockDocLLM{FileOut: "# PDF Findings\n\nSummary."}
	mock.Queue = []string{"narration"}
	c := NewComposer(mock, config.PromptsConfig{}, 0)

	draft, err := c.FromDocument(context.Background(), "/tmp/annual-report.pdf")
	require.NoError(t, err)

	require.Len(t, mock.FilePaths, 1)
	assert.Equal(t, "/tmp/annual-report.pdf", mock.FilePaths[0])
	assert.Contains(t, mock.FilePrompts[0], "annual-report.pdf")
	require.Len(t, mock.Prompts, 1, "script stage is text-only")
	assert.Contains(t, mock.Prompts[0], "# PDF Findings")

	assert.Equal(t, "PDF Findings", draft.Title)
	assert.Equal(t, "narration", draft.Script)
}

func TestFromTextNoHeadlineKeepsRawBlog(t *testing.T) {
	mock := &mockLLM{Queue: []string{"plain article without headline", "script"}}
	c := NewComposer(mock, config.PromptsConfig{}, 0)

	draft, err := c.FromText(context.Background(), Source{URL: "u", Title: "t", Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, draft.Title)
	assert.Equal(t, "plain article without headline", draft.Blog)
}

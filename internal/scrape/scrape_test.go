package scrape

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperchase/relay/internal/errors"
)

type stubFetcher struct {
	pages map[string]string
	err   error
}

func (f *stubFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, errors.Wrapf(errors.ErrFetch, "get %s: status 404", url)
	}
	return []byte(page), nil
}

const articleHTML = `<!doctype html>
<html><head><title>Publication Of Trial Guidance | Ministry News</title>
<script>tracking();</script></head>
<body>
<nav><ul><li>A navigation entry that is long enough to match</li></ul></nav>
<article>
<h1>Publication Of Trial Guidance</h1>
<p>The ministry published new guidance on decentralised clinical trials today.</p>
<p>The guidance clarifies monitoring duties and electronic consent handling.</p>
<p>short</p>
</article>
<footer><p>Copyright notice that would otherwise pollute the content body.</p></footer>
</body></html>`

func TestArticleExtractsTitleAndBody(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://example.org/news/1": articleHTML}}
	s := New(f)

	a, err := s.Article(context.Background(), "https://example.org/news/1")
	require.NoError(t, err)

	assert.Equal(t, "Publication Of Trial Guidance | Ministry News", a.Title)
	assert.Contains(t, a.Content, "decentralised clinical trials")
	assert.Contains(t, a.Content, "electronic consent")
	assert.NotContains(t, a.Content, "navigation entry", "nav is stripped")
	assert.NotContains(t, a.Content, "Copyright", "footer is stripped")
	assert.NotContains(t, a.Content, "short", "short fragments are dropped")
	assert.NotContains(t, a.Content, "tracking", "scripts are stripped")
}

func TestArticleFallsBackToBody(t *testing.T) {
	html := `<html><body>
<p>First paragraph of a page without an article container, long enough to count.</p>
<p>Second paragraph that also carries enough prose to pass the length filters.</p>
</body></html>`
	f := &stubFetcher{pages: map[string]string{"u": html}}

	a, err := New(f).Article(context.Background(), "u")
	require.NoError(t, err)
	assert.Contains(t, a.Content, "First paragraph")
	assert.Contains(t, a.Content, "Second paragraph")
}

func TestArticleTooShortIsTransformError(t *testing.T) {
	html := `<html><body><article><p>Barely anything here at all.</p></article></body></html>`
	f := &stubFetcher{pages: map[string]string{"u": html}}

	_, err := New(f).Article(context.Background(), "u")
	require.Error(t, err)
	assert.True(t, errors.IsTransform(err))
}

func TestArticleFetchErrorPassesThrough(t *testing.T) {
	f := &stubFetcher{err: errors.Wrapf(errors.ErrFetch, "get u: connection refused")}

	_, err := New(f).Article(context.Background(), "u")
	require.Error(t, err)
	assert.True(t, errors.IsFetch(err))
}

func TestPDFLinksAbsoluteRelativeAndDedup(t *testing.T) {
	html := `<html><body>
<a href="https://cdn.example.org/docs/report.PDF">Report</a>
<a href="/content/12345.pdf">Summary [PDF 1.2MB]</a>
<a href="annex.pdf">Annex</a>
<a href="/content/12345.pdf">Summary again</a>
<a href="/news/other.html">Not a document</a>
</body></html>`
	f := &stubFetcher{pages: map[string]string{"https://www.example.go.jp/stf/page_00001.html": html}}

	links, err := New(f).PDFLinks(context.Background(), "https://www.example.go.jp/stf/page_00001.html")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://cdn.example.org/docs/report.PDF",
		"https://www.example.go.jp/content/12345.pdf",
		"https://www.example.go.jp/stf/annex.pdf",
	}, links)
}

func TestPDFLinksNoneFound(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"u": `<html><body><a href="/page.html">x</a></body></html>`}}

	links, err := New(f).PDFLinks(context.Background(), "u")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestArticleEncodedJapaneseContent(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><article>")
	for i := 0; i < 6; i++ {
		b.WriteString("<p>厚生労働省は本日、臨床試験の実施体制に関する新しい通知を公表しました。</p>")
	}
	b.WriteString("</article></body></html>")
	f := &stubFetcher{pages: map[string]string{"u": b.String()}}

	a, err := New(f).Article(context.Background(), "u")
	require.NoError(t, err)
	assert.Contains(t, a.Content, "厚生労働省")
}

package wordpress

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/paperchase/relay/internal/errors"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

// RenderHTML converts post markdown to the HTML WordPress stores. Hard wraps
// become <br> so single newlines inside a paragraph survive the way the
// drafts are written.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return "", errors.Wrapf(errors.ErrTransform, "render markdown: %v", err)
	}
	return buf.String(), nil
}

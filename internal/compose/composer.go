package compose

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/core/common"
	"github.com/paperchase/relay/internal/errors"
	"github.com/paperchase/relay/internal/llm"
)

// maxSourceChars caps how much scraped source text goes into a prompt.
const maxSourceChars = 50000

const defaultBlogPrompt = `You are an editor covering health policy. Write a blog article in Markdown from the source material above.

Rules:
- Start with a single "# " headline.
- Use only facts from the source; never invent numbers, names or dates.
- Structure the body with "## " sections and short paragraphs.
- Quote key passages with "> " blocks and name the document they come from.
- No greetings, no preamble, no emoji.`

const defaultScriptPrompt = `Convert the blog article above into a podcast narration script.

Rules:
- Keep the article's facts exactly as written; add nothing.
- Begin with the same "# " headline, then plain sentences with no other markdown.
- One sentence per line, short enough to read in one breath.
- Drop quote blocks and document references; keep the substance.
- No greetings and no sign-off.`

// Source is the material a draft is generated from.
type Source struct {
	URL   string
	Title string
	Text  string
}

// Draft is the pair of generated pieces for one item. Blog is the cleaned
// article including its "# " headline; Script is the narration as
// generated. Title is empty when the model produced no headline.
type Draft struct {
	Title  string
	Blog   string
	Script string
}

// Composer turns source material into a draft in two stages: the blog
// article is generated from the source, then the script is generated from
// the blog alone, so the narration cannot carry facts the article lacks.
type Composer struct {
	LLM     llm.LLMClient
	Prompts config.PromptsConfig
	Timeout time.Duration
}

func NewComposer(client llm.LLMClient, prompts config.PromptsConfig, timeout time.Duration) *Composer {
	return &Composer{
		LLM:     client,
		Prompts: prompts,
		Timeout: timeout,
	}
}

// FromText drafts from scraped article text.
func (c *Composer) FromText(ctx context.Context, src Source) (Draft, error) {
	framed := "URL: " + src.URL + "\nTitle: " + src.Title + "\n\n" + clip(src.Text, maxSourceChars)

	blog, err := c.generate(ctx, framed+"\n\n"+c.blogPrompt())
	if err != nil {
		return Draft{}, errors.Wrap(err, "blog stage")
	}
	return c.finish(ctx, blog)
}

// FromDocument drafts from a downloaded document (a PDF on disk). The
// provider must be able to read uploaded files.
func (c *Composer) FromDocument(ctx context.Context, path string) (Draft, error) {
	doc, ok := c.LLM.(llm.DocumentClient)
	if !ok {
		return Draft{}, errors.Wrap(errors.ErrTransform, "provider cannot generate from documents")
	}

	prompt := c.blogPrompt() + "\n\nThe source is the attached document " +
		filepath.Base(path) + "; cite it by that name."

	gctx, cancel := c.bound(ctx)
	blog, err := doc.GenerateFromFile(gctx, prompt, path)
	cancel()
	if err != nil {
		return Draft{}, errors.Wrap(classify(err), "blog stage")
	}
	blog, err = usable(blog)
	if err != nil {
		return Draft{}, errors.Wrap(err, "blog stage")
	}
	return c.finish(ctx, blog)
}

// finish runs the script stage and assembles the draft.
func (c *Composer) finish(ctx context.Context, blog string) (Draft, error) {
	script, err := c.generate(ctx, blog+"\n\n"+c.scriptPrompt())
	if err != nil {
		return Draft{}, errors.Wrap(err, "script stage")
	}

	title, body := common.SplitTitle(blog)
	if title != "" {
		blog = "# " + title + "\n\n" + body
	}
	return Draft{Title: title, Blog: blog, Script: script}, nil
}

func (c *Composer) generate(ctx context.Context, prompt string) (string, error) {
	gctx, cancel := c.bound(ctx)
	defer cancel()

	out, err := c.LLM.Generate(gctx, prompt)
	if err != nil {
		return "", classify(err)
	}
	return usable(out)
}

func (c *Composer) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func (c *Composer) blogPrompt() string {
	if c.Prompts.Blog != "" {
		return c.Prompts.Blog
	}
	return defaultBlogPrompt
}

func (c *Composer) scriptPrompt() string {
	if c.Prompts.Script != "" {
		return c.Prompts.Script
	}
	return defaultScriptPrompt
}

// classify maps a provider failure onto the pipeline taxonomy: blown
// deadlines are timeouts, everything else is a transform failure.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.IsTimeout(err) {
		return errors.Wrapf(errors.ErrTimeout, "generate: %v", err)
	}
	return errors.Wrapf(errors.ErrTransform, "generate: %v", err)
}

func usable(out string) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.Wrap(errors.ErrTransform, "model returned no usable output")
	}
	return out, nil
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package driver

import (
	"regexp"
	"strings"

	"github.com/jomei/notionapi"
)

// Notion API limits: children per append call, characters per rich text run.
const (
	blockAppendLimit = 100
	richTextLimit    = 2000
)

var (
	bulletRe  = regexp.MustCompile(`^[-*] `)
	orderedRe = regexp.MustCompile(`^\d+\. `)
	dividerRe = regexp.MustCompile(`^[-*_]{3,}$`)
	boldRe    = regexp.MustCompile(`\*\*[^*]+\*\*`)
)

// MarkdownToBlocks converts generated markdown into store blocks. Supported:
// #/##/### headings, > quotes, bulleted and numbered list items, ---
// dividers, **bold** runs, paragraphs. Consecutive blank lines collapse into
// one empty paragraph and trailing empties are dropped.
func MarkdownToBlocks(md string) []notionapi.Block {
	var blocks []notionapi.Block

	for _, line := range strings.Split(md, "\n") {
		stripped := strings.TrimRight(line, " \t")

		switch {
		case stripped == "":
			if len(blocks) > 0 && !isEmptyParagraph(blocks[len(blocks)-1]) {
				blocks = append(blocks, paragraphBlock(emptyRun()))
			}
		case strings.HasPrefix(stripped, "### "):
			blocks = append(blocks, &notionapi.Heading3Block{
				BasicBlock: basicBlock("heading_3"),
				Heading3:   notionapi.Heading{RichText: inlineRichText(stripped[4:])},
			})
		case strings.HasPrefix(stripped, "## "):
			blocks = append(blocks, &notionapi.Heading2Block{
				BasicBlock: basicBlock("heading_2"),
				Heading2:   notionapi.Heading{RichText: inlineRichText(stripped[3:])},
			})
		case strings.HasPrefix(stripped, "# "):
			blocks = append(blocks, &notionapi.Heading1Block{
				BasicBlock: basicBlock("heading_1"),
				Heading1:   notionapi.Heading{RichText: inlineRichText(stripped[2:])},
			})
		case strings.HasPrefix(stripped, "> "):
			blocks = append(blocks, &notionapi.QuoteBlock{
				BasicBlock: basicBlock("quote"),
				Quote:      notionapi.Quote{RichText: inlineRichText(stripped[2:])},
			})
		case stripped == ">":
			blocks = append(blocks, &notionapi.QuoteBlock{
				BasicBlock: basicBlock("quote"),
				Quote:      notionapi.Quote{RichText: emptyRun()},
			})
		case dividerRe.MatchString(stripped):
			blocks = append(blocks, &notionapi.DividerBlock{
				BasicBlock: basicBlock("divider"),
			})
		case bulletRe.MatchString(stripped):
			blocks = append(blocks, &notionapi.BulletedListItemBlock{
				BasicBlock:       basicBlock("bulleted_list_item"),
				BulletedListItem: notionapi.ListItem{RichText: inlineRichText(stripped[2:])},
			})
		case orderedRe.MatchString(stripped):
			text := stripped[strings.Index(stripped, ". ")+2:]
			blocks = append(blocks, &notionapi.NumberedListItemBlock{
				BasicBlock:       basicBlock("numbered_list_item"),
				NumberedListItem: notionapi.ListItem{RichText: inlineRichText(text)},
			})
		default:
			blocks = append(blocks, paragraphBlock(inlineRichText(stripped)))
		}
	}

	for len(blocks) > 0 && isEmptyParagraph(blocks[len(blocks)-1]) {
		blocks = blocks[:len(blocks)-1]
	}
	return blocks
}

// SourceHeaderBlocks renders the attribution header of an article child
// page: a quote linking back to the original, then a divider.
func SourceHeaderBlocks(url string) []notionapi.Block {
	return []notionapi.Block{
		&notionapi.QuoteBlock{
			BasicBlock: basicBlock("quote"),
			Quote: notionapi.Quote{RichText: []notionapi.RichText{
				textRun("Source: ", false),
				linkRun(url),
			}},
		},
		&notionapi.DividerBlock{BasicBlock: basicBlock("divider")},
	}
}

// PlainTextToBlocks turns free text into one paragraph per non-empty line.
// Podcast scripts are one sentence per line, so markdown interpretation
// would mangle them.
func PlainTextToBlocks(text string) []notionapi.Block {
	var blocks []notionapi.Block
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimRight(line, " \t")
		if stripped == "" {
			continue
		}
		for _, run := range chunkRuns(stripped, false) {
			blocks = append(blocks, paragraphBlock([]notionapi.RichText{run}))
		}
	}
	return blocks
}

// BlocksToMarkdown renders fetched store blocks as markdown. Empty
// paragraphs survive to preserve spacing; empty headings, quotes and list
// items are dropped. Container and unsupported block kinds are skipped.
func BlocksToMarkdown(blocks []notionapi.Block) string {
	var segments []string
	keep := func(prefix, text string) {
		if strings.TrimSpace(text) != "" {
			segments = append(segments, prefix+text)
		}
	}

	for _, block := range blocks {
		switch b := block.(type) {
		case *notionapi.ParagraphBlock:
			segments = append(segments, richTextToMarkdown(b.Paragraph.RichText))
		case *notionapi.Heading1Block:
			keep("# ", richTextToMarkdown(b.Heading1.RichText))
		case *notionapi.Heading2Block:
			keep("## ", richTextToMarkdown(b.Heading2.RichText))
		case *notionapi.Heading3Block:
			keep("### ", richTextToMarkdown(b.Heading3.RichText))
		case *notionapi.BulletedListItemBlock:
			keep("- ", richTextToMarkdown(b.BulletedListItem.RichText))
		case *notionapi.NumberedListItemBlock:
			keep("1. ", richTextToMarkdown(b.NumberedListItem.RichText))
		case *notionapi.ToDoBlock:
			mark := "- [ ] "
			if b.ToDo.Checked {
				mark = "- [x] "
			}
			keep(mark, richTextToMarkdown(b.ToDo.RichText))
		case *notionapi.CodeBlock:
			code := plainText(b.Code.RichText)
			segments = append(segments, "```"+string(b.Code.Language)+"\n"+code+"\n```")
		case *notionapi.QuoteBlock:
			keep("> ", richTextToMarkdown(b.Quote.RichText))
		case *notionapi.CalloutBlock:
			keep("> ", richTextToMarkdown(b.Callout.RichText))
		case *notionapi.DividerBlock:
			segments = append(segments, "---")
		case *notionapi.ImageBlock:
			url := ""
			if b.Image.External != nil {
				url = b.Image.External.URL
			} else if b.Image.File != nil {
				url = b.Image.File.URL
			}
			if url != "" {
				segments = append(segments, "!["+plainText(b.Image.Caption)+"]("+url+")")
			}
		}
	}

	return strings.Join(segments, "\n\n")
}

func basicBlock(kind string) notionapi.BasicBlock {
	return notionapi.BasicBlock{
		Object: "block",
		Type:   notionapi.BlockType(kind),
	}
}

func paragraphBlock(rts []notionapi.RichText) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: basicBlock("paragraph"),
		Paragraph:  notionapi.Paragraph{RichText: rts},
	}
}

func isEmptyParagraph(b notionapi.Block) bool {
	p, ok := b.(*notionapi.ParagraphBlock)
	if !ok {
		return false
	}
	for _, rt := range p.Paragraph.RichText {
		if rt.Text != nil && rt.Text.Content != "" {
			return false
		}
	}
	return true
}

func emptyRun() []notionapi.RichText {
	return []notionapi.RichText{textRun("", false)}
}

func linkRun(url string) notionapi.RichText {
	return notionapi.RichText{
		Type: "text",
		Text: &notionapi.Text{Content: url, Link: &notionapi.Link{Url: url}},
	}
}

func textRun(content string, bold bool) notionapi.RichText {
	rt := notionapi.RichText{
		Type: "text",
		Text: &notionapi.Text{Content: content},
	}
	if bold {
		rt.Annotations = &notionapi.Annotations{Bold: true}
	}
	return rt
}

// chunkRuns splits content at the rich-text size limit.
func chunkRuns(content string, bold bool) []notionapi.RichText {
	runes := []rune(content)
	var runs []notionapi.RichText
	for len(runes) > richTextLimit {
		runs = append(runs, textRun(string(runes[:richTextLimit]), bold))
		runes = runes[richTextLimit:]
	}
	runs = append(runs, textRun(string(runes), bold))
	return runs
}

// inlineRichText parses **bold** spans; everything else stays plain.
func inlineRichText(text string) []notionapi.RichText {
	var runs []notionapi.RichText
	rest := text
	for rest != "" {
		loc := boldRe.FindStringIndex(rest)
		if loc == nil {
			runs = append(runs, chunkRuns(rest, false)...)
			break
		}
		if loc[0] > 0 {
			runs = append(runs, chunkRuns(rest[:loc[0]], false)...)
		}
		runs = append(runs, chunkRuns(rest[loc[0]+2:loc[1]-2], true)...)
		rest = rest[loc[1]:]
	}
	if len(runs) == 0 {
		return emptyRun()
	}
	return runs
}

// richTextToMarkdown renders one rich-text array with its annotations.
// Mentions fall back to plain text.
func richTextToMarkdown(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		plain := rt.PlainText
		if plain == "" && rt.Text != nil {
			plain = rt.Text.Content
		}
		if plain == "" {
			continue
		}
		if rt.Type == "mention" {
			b.WriteString(plain)
			continue
		}

		text := plain
		code := false
		if a := rt.Annotations; a != nil {
			code = a.Code
			if a.Code {
				text = "`" + text + "`"
			} else {
				switch {
				case a.Bold && a.Italic:
					text = "***" + text + "***"
				case a.Bold:
					text = "**" + text + "**"
				case a.Italic:
					text = "*" + text + "*"
				}
				if a.Strikethrough {
					text = "~~" + text + "~~"
				}
			}
		}
		if rt.Href != "" && !code {
			text = "[" + text + "](" + rt.Href + ")"
		}
		b.WriteString(text)
	}
	return b.String()
}

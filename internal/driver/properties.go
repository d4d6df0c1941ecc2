package driver

import (
	"regexp"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/paperchase/relay/internal/core/model"
)

// Property names in the two databases. The store is also edited by hand, so
// readers below tolerate missing or retyped properties instead of panicking.
const (
	PropTitle     = "Title"
	PropSourceURL = "Source URL"
	PropFound     = "Found"

	PropDraftStatus   = "Draft Status"
	PropWebStatus     = "Web Status"
	PropPodcastStatus = "Podcast Status"

	PropArticle = "Article"
	PropScript  = "Script"

	PropDrafted   = "Drafted"
	PropPublished = "Published"
	PropVoiced    = "Voiced"
)

var statusProps = map[model.StatusField]string{
	model.FieldDraft:   PropDraftStatus,
	model.FieldWeb:     PropWebStatus,
	model.FieldPodcast: PropPodcastStatus,
}

func titleProperty(title string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type: "title",
		Title: []notionapi.RichText{{
			Type: "text",
			Text: &notionapi.Text{Content: title},
		}},
	}
}

func selectProperty(value string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: value}}
}

// dateProperty stores a date-only value; the time component is dropped so
// the store renders a calendar date.
func dateProperty(day time.Time) notionapi.DateProperty {
	d := notionapi.Date(time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

func urlProperty(url string) notionapi.URLProperty {
	return notionapi.URLProperty{Type: "url", URL: url}
}

// plainText flattens rich text, preferring the API-provided plain form.
func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

func pageTitle(p *notionapi.Page) string {
	for _, prop := range p.Properties {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			if t := plainText(tp.Title); t != "" {
				return t
			}
		}
	}
	return ""
}

func pageSelect(p *notionapi.Page, name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	sp, ok := prop.(*notionapi.SelectProperty)
	if !ok {
		return ""
	}
	return sp.Select.Name
}

func pageURL(p *notionapi.Page, name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	up, ok := prop.(*notionapi.URLProperty)
	if !ok {
		return ""
	}
	return up.URL
}

func pageHasDate(p *notionapi.Page, name string) bool {
	prop, ok := p.Properties[name]
	if !ok {
		return false
	}
	dp, ok := prop.(*notionapi.DateProperty)
	if !ok || dp.Date == nil {
		return false
	}
	return dp.Date.Start != nil
}

// laneSnapshot reads the three status lanes and date markers off a page.
// Unknown select values surface as-is in Raw so the caller can report them.
func laneSnapshot(p *notionapi.Page) model.LaneSnapshot {
	snap := model.LaneSnapshot{
		RawDraft:     pageSelect(p, PropDraftStatus),
		RawWeb:       pageSelect(p, PropWebStatus),
		RawPodcast:   pageSelect(p, PropPodcastStatus),
		HasDrafted:   pageHasDate(p, PropDrafted),
		HasPublished: pageHasDate(p, PropPublished),
		HasVoiced:    pageHasDate(p, PropVoiced),
	}
	if s, err := model.ParseStatus(model.FieldDraft, snap.RawDraft); err == nil {
		snap.Draft = s
	}
	if s, err := model.ParseStatus(model.FieldWeb, snap.RawWeb); err == nil {
		snap.Web = s
	}
	if s, err := model.ParseStatus(model.FieldPodcast, snap.RawPodcast); err == nil {
		snap.Podcast = s
	}
	return snap
}

var (
	dashedIDRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	bareIDRe   = regexp.MustCompile(`[0-9a-fA-F]{32}`)
)

// ExtractPageID pulls a page ID out of free-form text: a dashed UUID wins,
// otherwise a bare 32-hex run is normalized to dashed form. Empty when
// nothing matches.
func ExtractPageID(s string) string {
	if m := dashedIDRe.FindString(s); m != "" {
		return strings.ToLower(m)
	}
	if m := bareIDRe.FindString(s); m != "" {
		m = strings.ToLower(m)
		return m[0:8] + "-" + m[8:12] + "-" + m[12:16] + "-" + m[16:20] + "-" + m[20:32]
	}
	return ""
}

// linkedPageID resolves the child page referenced by a link property. URL
// properties are the written form; rich-text fallbacks cover hand-edited
// pages (href, inline link, or pasted ID).
func linkedPageID(p *notionapi.Page, name string) string {
	if u := pageURL(p, name); u != "" {
		return ExtractPageID(u)
	}
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	rp, ok := prop.(*notionapi.RichTextProperty)
	if !ok {
		return ""
	}
	for _, rt := range rp.RichText {
		if rt.Href != "" {
			if id := ExtractPageID(rt.Href); id != "" {
				return id
			}
		}
		if rt.Text != nil && rt.Text.Link != nil {
			if id := ExtractPageID(rt.Text.Link.Url); id != "" {
				return id
			}
		}
		if id := ExtractPageID(rt.PlainText); id != "" {
			return id
		}
	}
	return ""
}

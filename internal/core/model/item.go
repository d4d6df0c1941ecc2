package model

import (
	"context"
	"time"
)

// Item is one candidate record pulled from a source and tracked through a
// run. Identity is the dedup key; State is owned by the record store and
// re-read fresh every run.
type Item struct {
	Identity string  `json:"identity"`
	State    Status  `json:"state"`
	Title    string  `json:"title"`
	Payload  Payload `json:"payload"`
}

// Payload carries the source-specific content a processor needs. Only the
// fields relevant to the item's source are set.
type Payload struct {
	URL         string        `json:"url,omitempty"`
	PageID      string        `json:"page_id,omitempty"`
	Source      string        `json:"source,omitempty"`
	PublishedAt time.Time     `json:"published_at,omitempty"`
	Text        string        `json:"text,omitempty"`
	ArticleID   string        `json:"article_id,omitempty"`
	Lanes       *LaneSnapshot `json:"lanes,omitempty"`
}

// LaneSnapshot is the page's three status lanes plus date markers as read in
// this run. Raw values are kept so unknown states can be reported verbatim;
// the parsed fields are zero when the raw value is not in the table.
type LaneSnapshot struct {
	Draft   Status `json:"draft,omitempty"`
	Web     Status `json:"web,omitempty"`
	Podcast Status `json:"podcast,omitempty"`

	RawDraft   string `json:"raw_draft,omitempty"`
	RawWeb     string `json:"raw_web,omitempty"`
	RawPodcast string `json:"raw_podcast,omitempty"`

	HasDrafted   bool `json:"has_drafted,omitempty"`
	HasPublished bool `json:"has_published,omitempty"`
	HasVoiced    bool `json:"has_voiced,omitempty"`
}

type ArtifactKind string

const (
	ArtifactBlog   ArtifactKind = "blog"
	ArtifactScript ArtifactKind = "script"
)

// Artifact is one generated output file, pre-persistence. The writer derives
// the filename and header block from these fields.
type Artifact struct {
	Kind      ArtifactKind `json:"kind"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	SourceRef string       `json:"source_ref"`
	Date      time.Time    `json:"date"`
}

// RemoteOp is an output-side mutation of an external service (child page
// creation, link property update). The committer applies these after
// artifacts are durable and before the status advance.
type RemoteOp func(ctx context.Context) error

// Product is a processor's result for one item: the artifacts to persist,
// remote output mutations to apply, and the status to advance to. A job with
// no status field leaves Advance nil. An empty product means the item needed
// nothing this run; Note explains why (or annotates a success).
type Product struct {
	Artifacts []Artifact
	Remote    []RemoteOp
	Advance   *Advance
	Note      string
}

// Empty reports whether the product carries no work at all.
func (p Product) Empty() bool {
	return len(p.Artifacts) == 0 && len(p.Remote) == 0 && p.Advance == nil
}

// Advance names the status transition the committer performs last.
type Advance struct {
	Field StatusField
	From  Status
	To    Status
}

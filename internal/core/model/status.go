package model

import "github.com/paperchase/relay/internal/errors"

// Status is a workflow state owned by the record store. Each page carries
// three independent status fields (draft, web, podcast); the tables below are
// the only transitions this system will perform or accept. Anything outside
// them is reported, never processed.
type Status string

const (
	// Draft lane.
	StatusQueuedURL Status = "queued-url"
	StatusQueuedPDF Status = "queued-pdf"
	StatusFactCheck Status = "fact-check"
	StatusDone      Status = "done"

	// Web lane.
	StatusPublishQueue Status = "publish-queue"
	StatusScheduled    Status = "scheduled"

	// Podcast lane.
	StatusVoiceQueue Status = "voice-queue"
	StatusVoiced     Status = "voiced"

	// StatusUnset is an empty or default-valued field in the store.
	StatusUnset Status = "unset"
)

func (s Status) String() string { return string(s) }

// StatusField identifies which lane a status lives in.
type StatusField string

const (
	FieldDraft   StatusField = "draft"
	FieldWeb     StatusField = "web"
	FieldPodcast StatusField = "podcast"
)

var transitions = map[StatusField]map[Status][]Status{
	FieldDraft: {
		StatusQueuedURL: {StatusFactCheck},
		StatusQueuedPDF: {StatusFactCheck},
		StatusFactCheck: {StatusDone}, // human approval, present for completeness
		StatusDone:      {},
	},
	FieldWeb: {
		StatusUnset:        {StatusPublishQueue},
		StatusPublishQueue: {StatusScheduled},
		StatusScheduled:    {},
	},
	FieldPodcast: {
		StatusUnset:      {StatusVoiceQueue},
		StatusVoiceQueue: {StatusVoiced},
		StatusVoiced:     {},
	},
}

// ParseStatus maps a raw store value onto the field's enum. Empty values are
// StatusUnset for the web and podcast lanes; anything unknown is an error so
// the caller reports it instead of guessing.
func ParseStatus(field StatusField, raw string) (Status, error) {
	if raw == "" {
		if field == FieldDraft {
			return "", errors.Newf("empty %s status", field)
		}
		return StatusUnset, nil
	}
	s := Status(raw)
	if _, ok := transitions[field][s]; !ok {
		return "", errors.Newf("unknown %s status %q", field, raw)
	}
	return s, nil
}

// ValidStatus reports whether s is a known state of the field's lane.
func ValidStatus(field StatusField, s Status) bool {
	_, ok := transitions[field][s]
	return ok
}

// EnsureTransition rejects any move not present in the allowed-transition
// table for the field.
func EnsureTransition(field StatusField, from, to Status) error {
	allowed, ok := transitions[field][from]
	if !ok {
		return errors.Newf("unknown %s status %q", field, from)
	}
	for _, next := range allowed {
		if next == to {
			return nil
		}
	}
	return errors.Newf("invalid %s status transition %s -> %s", field, from, to)
}

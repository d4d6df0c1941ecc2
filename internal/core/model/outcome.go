package model

import (
	"fmt"
	"time"
)

type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is the result of processing one item in one run. Never persisted
// beyond the run's report and log.
type Outcome struct {
	Identity string        `json:"identity"`
	Status   OutcomeStatus `json:"status"`
	Detail   string        `json:"detail,omitempty"`
}

type Failure struct {
	Identity string `json:"identity"`
	Detail   string `json:"detail"`
}

// BatchResult aggregates every Outcome of a run.
type BatchResult struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Record folds one outcome into the counts.
func (r *BatchResult) Record(o Outcome) {
	switch o.Status {
	case OutcomeSucceeded:
		r.Succeeded++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
		r.Failures = append(r.Failures, Failure{Identity: o.Identity, Detail: o.Detail})
	}
}

func (r *BatchResult) Total() int {
	return r.Succeeded + r.Skipped + r.Failed
}

// Summary is the run-end one-liner.
func (r *BatchResult) Summary() string {
	return fmt.Sprintf("succeeded=%d skipped=%d failed=%d", r.Succeeded, r.Skipped, r.Failed)
}

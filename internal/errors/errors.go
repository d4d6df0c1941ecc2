// Package errors re-exports github.com/cockroachdb/errors and defines the
// pipeline's error taxonomy.
//
// Every error falls into one of two scopes:
//
//   - item-scoped: ErrFetch, ErrTransform, ErrTimeout, ErrPartialCommit.
//     These mark one item failed and never abort the batch.
//   - run-scoped: ErrSource (one enumeration source down, run continues
//     without it) and ErrDedupIndex (fatal, the run aborts before
//     processing anything).
//
// Wrap the sentinels with Wrap/Wrapf so errors.Is still matches:
//
//	return errors.Wrapf(errors.ErrFetch, "get %s: %v", url, err)
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

var (
	New   = crdb.New
	Newf  = crdb.Newf
	Wrap  = crdb.Wrap
	Wrapf = crdb.Wrapf

	WithHint   = crdb.WithHint
	WithDetail = crdb.WithDetail

	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
	Join   = crdb.Join
)

// Sentinels for the pipeline taxonomy. Check with Is, classify with Kind.
var (
	// ErrSource marks one enumeration source as unreachable or unusable.
	// The source contributes zero items; the run continues.
	ErrSource = New("source unavailable")

	// ErrFetch marks an item whose source content could not be retrieved.
	ErrFetch = New("fetch failed")

	// ErrTransform marks an item whose transformation failed or produced
	// unusable output.
	ErrTransform = New("transform failed")

	// ErrTimeout marks an item whose outbound call exceeded its deadline.
	ErrTimeout = New("operation timed out")

	// ErrDedupIndex means the identity index could not be rebuilt from the
	// record store. Fatal: proceeding would treat every item as new.
	ErrDedupIndex = New("dedup index unavailable")

	// ErrPartialCommit means artifacts were written but the status advance
	// failed. The item stays reprocessable; duplicate artifacts are the
	// accepted cost.
	ErrPartialCommit = New("partial commit: artifacts written, status not advanced")
)

func IsSource(err error) bool        { return err != nil && Is(err, ErrSource) }
func IsFetch(err error) bool         { return err != nil && Is(err, ErrFetch) }
func IsTransform(err error) bool     { return err != nil && Is(err, ErrTransform) }
func IsTimeout(err error) bool       { return err != nil && Is(err, ErrTimeout) }
func IsDedupIndex(err error) bool    { return err != nil && Is(err, ErrDedupIndex) }
func IsPartialCommit(err error) bool { return err != nil && Is(err, ErrPartialCommit) }

// IsFatal reports whether err must abort the whole run instead of failing a
// single item.
func IsFatal(err error) bool {
	return IsDedupIndex(err)
}

// Kind names the taxonomy bucket of err for log lines and outcome details.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsDedupIndex(err):
		return "dedup-index"
	case IsPartialCommit(err):
		return "partial-commit"
	case IsTimeout(err):
		return "timeout"
	case IsFetch(err):
		return "fetch"
	case IsTransform(err):
		return "transform"
	case IsSource(err):
		return "source"
	default:
		return "internal"
	}
}

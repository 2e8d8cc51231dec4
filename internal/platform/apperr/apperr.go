// Package apperr defines the typed error vocabulary of the workflow engine.
// The store repositories and the dispatcher return these as plain error
// values (never panics) so callers can branch on kind via
// errors.Is/errors.As. The catalog reports validation outcomes as Result
// values instead, and the selector returns driver errors unwrapped, which
// the dispatcher passes through as they are.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way spec's error table does: origin,
// whether the driver may retry it locally, and whether it must be surfaced.
type Kind string

const (
	KindStoreTransient    Kind = "store_transient"
	KindStoreFatal        Kind = "store_fatal"
	KindInvalidScore      Kind = "invalid_score"
	KindVersionConflict   Kind = "version_conflict"
	KindAlreadyReviewed   Kind = "already_reviewed"
	KindIllegalTransition Kind = "illegal_transition"
	KindUnknownStage      Kind = "unknown_stage"
	KindMissingInput      Kind = "missing_input"
	KindAlreadyDone       Kind = "already_done"
	KindProcessorFailed   Kind = "processor_failed"
	KindNoWork            Kind = "no_work"
)

// Plain sentinel errors. An *Error neither wraps nor matches them, so
// errors.Is(err, ErrUnknownStage) is false for an *Error of
// KindUnknownStage; Is(err, kind) is the check for those.
var (
	ErrNotFound    = errors.New("apperr: not found")
	ErrNoWork      = errors.New("apperr: no work")
	ErrStoreFatal  = errors.New("apperr: store fatal")
	ErrUnknownStage = errors.New("apperr: unknown stage")
)

// Error is the structured error value carried out of the core. It always
// names the stage and story involved where applicable, per spec's
// "user-facing failures include the stage name, story id, and the error
// kind" requirement.
type Error struct {
	Kind    Kind
	Stage   string
	StoryID int64
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s", e.Kind)
	if e.Stage != "" {
		msg += fmt.Sprintf(" stage=%s", e.Stage)
	}
	if e.StoryID != 0 {
		msg += fmt.Sprintf(" story_id=%d", e.StoryID)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &Error{Kind: K}) match any *Error of the same
// Kind, regardless of Stage/StoryID/Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, stage string, storyID int64, reason string, wrapped error) *Error {
	return &Error{Kind: kind, Stage: stage, StoryID: storyID, Reason: reason, Err: wrapped}
}

// Retryable reports whether the driver loop should retry this error with
// backoff rather than surface it as a terminal logic failure.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindStoreTransient:
		return true
	case KindProcessorFailed:
		return e.Reason == "recoverable"
	default:
		return false
	}
}

func StoreTransient(stage string, storyID int64, err error) *Error {
	return newErr(KindStoreTransient, stage, storyID, "", err)
}

func StoreFatal(stage string, storyID int64, err error) *Error {
	return newErr(KindStoreFatal, stage, storyID, "", err)
}

func InvalidScore(score int) *Error {
	return newErr(KindInvalidScore, "", 0, fmt.Sprintf("score %d out of range 0..100", score), nil)
}

func VersionConflict(storyID int64, version int) *Error {
	return newErr(KindVersionConflict, "", storyID, fmt.Sprintf("version %d already exists for story", version), nil)
}

func AlreadyReviewed(artifactID int64, existing, attempted int64) *Error {
	return newErr(KindAlreadyReviewed, "", 0, fmt.Sprintf("artifact %d already has review_id=%d, attempted %d", artifactID, existing, attempted), nil)
}

// IllegalTransition reports a rejected (from, to) move. Reason lists the
// valid successors of from, as spec's Validator requires.
func IllegalTransition(from, to string, storyID int64, validSuccessors []string) *Error {
	return newErr(KindIllegalTransition, from, storyID, fmt.Sprintf("%q is not a valid successor of %q; valid: %v", to, from, validSuccessors), nil)
}

func UnknownStage(stage string) *Error {
	return newErr(KindUnknownStage, stage, 0, "stage is not a member of the catalog", nil)
}

func MissingInput(stage string, storyID int64, input string) *Error {
	return newErr(KindMissingInput, stage, storyID, fmt.Sprintf("required input %q unavailable", input), nil)
}

func AlreadyDone(stage string, storyID int64) *Error {
	return newErr(KindAlreadyDone, stage, storyID, "stage already completed for this state", nil)
}

// ProcessorFailed wraps a Processor-reported failure. recoverable selects
// retry-per-policy vs. leaving the story flagged in place for an operator.
func ProcessorFailed(stage string, storyID int64, recoverable bool, message string) *Error {
	reason := "fatal"
	if recoverable {
		reason = "recoverable"
	}
	return newErr(KindProcessorFailed, stage, storyID, reason, errors.New(message))
}

func NoWork(stage string) *Error {
	return newErr(KindNoWork, stage, 0, "", nil)
}

// Is reports whether err carries the given Kind, unwrapping through
// standard error wrapping.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

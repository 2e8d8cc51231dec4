// Package processor defines the contract between the Stage Dispatcher and
// the external, stage-specific code that actually produces or reviews
// content. Processors are black boxes to the rest of the engine: they
// receive a read-only snapshot of inputs and return one outcome variant.
package processor

import (
	"strings"

	"github.com/contentloom/storyforge/internal/domain"
)

// InputSpec enumerates which inputs a Processor needs assembled before it
// runs. The Dispatcher reads exactly these and nothing else.
type InputSpec struct {
	IdeaRef       bool
	IdeaBody      bool
	LatestTitle   bool
	LatestContent bool
}

// ArtifactKind names which table an artifact outcome belongs to.
type ArtifactKind string

const (
	ArtifactTitle   ArtifactKind = "title"
	ArtifactContent ArtifactKind = "content"
)

// ReviewTarget identifies which artifact a ProducedReview attaches to.
type ReviewTarget string

const (
	TargetLatestTitle   ReviewTarget = "latest_title"
	TargetLatestContent ReviewTarget = "latest_content"
)

// Severity classifies a single review finding. CRITICAL findings can force
// a stage to fail regardless of score, per the grammar-like stages' rule.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Finding is one observation a review Processor attaches to its outcome.
type Finding struct {
	Severity Severity
	Message  string
}

// Inputs is the read-only snapshot assembled by the Dispatcher and handed
// to a Processor's Run. Fields not requested via InputSpec are left zero.
type Inputs struct {
	StoryID       int64
	Stage         string
	IdeaRef       string
	IdeaBody      string
	LatestTitle   *domain.Title
	LatestContent *domain.Content
}

// Outcome is the sum type a Processor returns. Exactly one of the four
// payload fields is meaningful, selected by Kind -- Go has no tagged union,
// so this mirrors the shape the Dispatcher switches on, one field per case.
type OutcomeKind string

const (
	OutcomeProducedArtifact OutcomeKind = "produced_artifact"
	OutcomeProducedReview   OutcomeKind = "produced_review"
	OutcomeDecision         OutcomeKind = "decision"
	OutcomeFailed           OutcomeKind = "failed"
)

type Outcome struct {
	Kind OutcomeKind

	// OutcomeProducedArtifact
	ArtifactKind ArtifactKind
	Text         string

	// OutcomeProducedReview
	Score    int
	Findings []Finding
	Target   ReviewTarget

	// OutcomeDecision
	NextStage string

	// OutcomeFailed
	FailureMessage   string
	FailureRecoverable bool

	// AlreadyDone lets a Processor assert the idempotency guard itself,
	// in addition to the Dispatcher's own check against stored state.
	AlreadyDone bool
}

// HasCritical reports whether any finding carries CRITICAL severity.
func (o Outcome) HasCritical() bool {
	for _, f := range o.Findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Processor is the external, stage-specific collaborator the Dispatcher
// invokes. Implementations MUST NOT call repositories directly -- they
// only see the Inputs snapshot and return an Outcome.
type Processor interface {
	RequiredInputs() InputSpec
	Run(inputs Inputs) (Outcome, error)
}

// ThresholdProcessor is an optional capability: a Processor may declare its
// own pass threshold, overriding the stage manifest's default.
type ThresholdProcessor interface {
	Processor
	PassThreshold() int
}

// PassThresholdOf resolves the effective pass threshold for p, falling
// back to def when p does not implement ThresholdProcessor.
func PassThresholdOf(p Processor, def int) int {
	if tp, ok := p.(ThresholdProcessor); ok {
		return tp.PassThreshold()
	}
	return def
}

// Kind classifies a stage by the module it belongs to, which in turn
// decides which artifact table a work-version or idempotency check looks
// at. Shared between the Work Selector and the Stage Dispatcher so both
// apply the same stage-name convention.
type Kind int

const (
	KindStory Kind = iota
	KindScript
	KindTitle
)

// StageKind classifies stage by prefix: exact or dot-prefixed "Script"/
// "Review.Script." maps to KindScript, "Title"/"Review.Title." to
// KindTitle, everything else (including "Story.*" and unrecognised
// stages) falls back to KindStory.
func StageKind(stage string) Kind {
	switch {
	case stage == "Script" || strings.HasPrefix(stage, "Script.") || strings.HasPrefix(stage, "Review.Script."):
		return KindScript
	case stage == "Title" || strings.HasPrefix(stage, "Title.") || strings.HasPrefix(stage, "Review.Title."):
		return KindTitle
	default:
		return KindStory
	}
}

// Package dispatcher is the Stage Dispatcher (C5): the only component that
// mutates Story state. It picks a Story via the Work Selector, assembles
// inputs, invokes the stage's external Processor, persists the outcome,
// computes the next stage, validates the transition, and commits -- all
// inside one unit of work.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/catalog"
	"github.com/contentloom/storyforge/internal/domain"
	"github.com/contentloom/storyforge/internal/ideasource"
	"github.com/contentloom/storyforge/internal/platform/apperr"
	"github.com/contentloom/storyforge/internal/platform/dbctx"
	"github.com/contentloom/storyforge/internal/platform/logger"
	"github.com/contentloom/storyforge/internal/processor"
	"github.com/contentloom/storyforge/internal/selector"
	"github.com/contentloom/storyforge/internal/store"
)

// StepKind classifies what a Step call did.
type StepKind string

const (
	StepAdvanced StepKind = "advanced"
	StepNoWork   StepKind = "no_work"
)

// StepResult is what a successful Step call reports. ArtifactID and
// ReviewID are 0 when the step produced no such row (e.g. a Decision
// outcome, or StepNoWork).
type StepResult struct {
	Kind       StepKind
	StoryID    int64
	From       string
	To         string
	ArtifactID int64
	ReviewID   int64
}

// Dispatcher wires the Work Selector, the Artifact Store repositories, the
// Transition Validator, the Idea source, and the Processor registry into
// the ten-step algorithm of a single stage-processing step.
type Dispatcher struct {
	db  *gorm.DB
	log *logger.Logger

	cat       *catalog.Catalog
	validator *catalog.Validator

	storyRepo   store.StoryRepo
	titleRepo   store.TitleRepo
	contentRepo store.ContentRepo
	reviewRepo  store.ReviewRepo

	sel      *selector.Selector
	ideas    ideasource.IdeaSource
	registry *processor.Registry

	defaultThreshold int
	thresholds       map[string]int
}

// Config bundles Dispatcher's dependencies. Thresholds may be nil or
// partial; any stage not present falls back to DefaultThreshold.
type Config struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Catalog     *catalog.Catalog
	Validator   *catalog.Validator
	StoryRepo   store.StoryRepo
	TitleRepo   store.TitleRepo
	ContentRepo store.ContentRepo
	ReviewRepo  store.ReviewRepo
	Selector    *selector.Selector
	Ideas       ideasource.IdeaSource
	Registry    *processor.Registry

	DefaultThreshold int
	Thresholds       map[string]int
}

// New constructs a Dispatcher. DefaultThreshold falls back to 75 (spec's
// documented default) when zero.
func New(cfg Config) *Dispatcher {
	threshold := cfg.DefaultThreshold
	if threshold == 0 {
		threshold = 75
	}
	thresholds := cfg.Thresholds
	if thresholds == nil {
		thresholds = map[string]int{}
	}
	return &Dispatcher{
		db:               cfg.DB,
		log:              cfg.Log.With("component", "Dispatcher"),
		cat:              cfg.Catalog,
		validator:        cfg.Validator,
		storyRepo:        cfg.StoryRepo,
		titleRepo:        cfg.TitleRepo,
		contentRepo:      cfg.ContentRepo,
		reviewRepo:       cfg.ReviewRepo,
		sel:              cfg.Selector,
		ideas:            cfg.Ideas,
		registry:         cfg.Registry,
		defaultThreshold: threshold,
		thresholds:       thresholds,
	}
}

// Step runs the ten-step algorithm once for stage. A nil error with
// StepNoWork means no Story is currently in stage. Logic errors
// (IllegalTransition, AlreadyDone, AlreadyReviewed, VersionConflict,
// MissingInput) abort the unit of work and are returned as *apperr.Error;
// the caller decides whether to retry per apperr.Error.Retryable().
func (d *Dispatcher) Step(ctx context.Context, stage string) (*StepResult, error) {
	p, ok := d.registry.Get(stage)
	if !ok {
		return nil, apperr.UnknownStage(stage)
	}

	var result *StepResult
	err := store.UnitOfWork(ctx, d.db, func(dbc dbctx.Context) error {
		picked, serr := d.sel.SelectNext(dbc, stage)
		if serr != nil {
			return serr
		}
		if picked == nil {
			result = &StepResult{Kind: StepNoWork, From: stage}
			return nil
		}

		story, ferr := d.storyRepo.FindByIDForUpdate(dbc, picked.Story.ID)
		if ferr != nil {
			return ferr
		}
		if story == nil || story.State != stage {
			// Lost the race: another worker already moved this Story on,
			// or it vanished between the unlocked select and the lock.
			result = &StepResult{Kind: StepNoWork, From: stage}
			return nil
		}

		done, derr := d.alreadyDone(dbc, story, stage)
		if derr != nil {
			return derr
		}
		if done {
			return apperr.AlreadyDone(stage, story.ID)
		}

		inputs, ierr := d.assembleInputs(dbc, story, stage, p.RequiredInputs())
		if ierr != nil {
			return ierr
		}

		outcome, rerr := p.Run(inputs)
		if rerr != nil {
			return apperr.ProcessorFailed(stage, story.ID, false, rerr.Error())
		}
		if outcome.AlreadyDone {
			return apperr.AlreadyDone(stage, story.ID)
		}
		if outcome.Kind == processor.OutcomeFailed {
			return apperr.ProcessorFailed(stage, story.ID, outcome.FailureRecoverable, outcome.FailureMessage)
		}

		threshold := processor.PassThresholdOf(p, d.thresholdFor(stage))
		artifactID, reviewID, nextStage, perr := d.persistOutcome(dbc, story, stage, outcome, threshold)
		if perr != nil {
			return perr
		}

		story.State = nextStage
		if uerr := d.storyRepo.Update(dbc, story); uerr != nil {
			return uerr
		}

		result = &StepResult{
			Kind:       StepAdvanced,
			StoryID:    story.ID,
			From:       stage,
			To:         nextStage,
			ArtifactID: artifactID,
			ReviewID:   reviewID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// alreadyDone implements the idempotency guard: a review stage whose
// target artifact's latest version already carries a review_id has
// already completed its work for this state, so re-invoking after a
// crash must not score it twice.
func (d *Dispatcher) alreadyDone(dbc dbctx.Context, story *domain.Story, stage string) (bool, error) {
	if !isReviewStage(stage) {
		return false, nil
	}
	switch processor.StageKind(stage) {
	case processor.KindScript:
		latest, err := d.contentRepo.FindLatestVersion(dbc, story.ID)
		if err != nil {
			return false, err
		}
		return latest != nil && latest.ReviewID != nil, nil
	case processor.KindTitle:
		latest, err := d.titleRepo.FindLatestVersion(dbc, story.ID)
		if err != nil {
			return false, err
		}
		return latest != nil && latest.ReviewID != nil, nil
	default:
		return false, nil
	}
}

func isReviewStage(stage string) bool {
	return len(stage) >= len("Review.") && stage[:len("Review.")] == "Review."
}

func (d *Dispatcher) assembleInputs(dbc dbctx.Context, story *domain.Story, stage string, spec processor.InputSpec) (processor.Inputs, error) {
	in := processor.Inputs{StoryID: story.ID, Stage: stage}

	if spec.IdeaRef {
		in.IdeaRef = story.IdeaRef
	}
	if spec.IdeaBody {
		if story.IdeaRef == "" {
			return in, apperr.MissingInput(stage, story.ID, "idea_ref")
		}
		body, err := d.ideas.GetIdea(dbc.Ctx, story.IdeaRef)
		if err != nil {
			if errors.Is(err, ideasource.ErrIdeaNotFound) {
				return in, apperr.MissingInput(stage, story.ID, "idea_body")
			}
			return in, apperr.ProcessorFailed(stage, story.ID, true, fmt.Sprintf("idea source: %v", err))
		}
		in.IdeaBody = body.Text
	}
	if spec.LatestTitle {
		t, err := d.titleRepo.FindLatestVersion(dbc, story.ID)
		if err != nil {
			return in, err
		}
		if t == nil {
			return in, apperr.MissingInput(stage, story.ID, "latest_title")
		}
		in.LatestTitle = t
	}
	if spec.LatestContent {
		c, err := d.contentRepo.FindLatestVersion(dbc, story.ID)
		if err != nil {
			return in, err
		}
		if c == nil {
			return in, apperr.MissingInput(stage, story.ID, "latest_content")
		}
		in.LatestContent = c
	}
	return in, nil
}

// persistOutcome writes the Processor's outcome and computes the next
// stage per spec's rules: static manifest target for generation stages,
// threshold rule for review stages, and the Decision's own next_stage.
func (d *Dispatcher) persistOutcome(dbc dbctx.Context, story *domain.Story, stage string, outcome processor.Outcome, threshold int) (artifactID, reviewID int64, nextStage string, err error) {
	switch outcome.Kind {
	case processor.OutcomeProducedArtifact:
		artifactID, err = d.insertArtifact(dbc, story.ID, outcome)
		if err != nil {
			return 0, 0, "", err
		}
		nextStage = d.staticNext(stage)

	case processor.OutcomeProducedReview:
		reviewID, artifactID, err = d.insertReviewAndLink(dbc, story.ID, stage, outcome)
		if err != nil {
			return 0, 0, "", err
		}
		nextStage = d.reviewNext(stage, outcome, threshold)

	case processor.OutcomeDecision:
		nextStage = outcome.NextStage

	default:
		return 0, 0, "", apperr.StoreFatal(stage, story.ID, fmt.Errorf("unhandled outcome kind %q", outcome.Kind))
	}
	return artifactID, reviewID, nextStage, nil
}

func (d *Dispatcher) insertArtifact(dbc dbctx.Context, storyID int64, outcome processor.Outcome) (int64, error) {
	switch outcome.ArtifactKind {
	case processor.ArtifactTitle:
		latest, err := d.titleRepo.FindLatestVersion(dbc, storyID)
		if err != nil {
			return 0, err
		}
		version := 0
		if latest != nil {
			version = latest.Version + 1
		}
		created, err := d.titleRepo.Insert(dbc, &domain.Title{StoryID: storyID, Version: version, Text: outcome.Text})
		if err != nil {
			return 0, err
		}
		return created.ID, nil
	case processor.ArtifactContent:
		latest, err := d.contentRepo.FindLatestVersion(dbc, storyID)
		if err != nil {
			return 0, err
		}
		version := 0
		if latest != nil {
			version = latest.Version + 1
		}
		created, err := d.contentRepo.Insert(dbc, &domain.Content{StoryID: storyID, Version: version, Text: outcome.Text})
		if err != nil {
			return 0, err
		}
		return created.ID, nil
	default:
		return 0, apperr.StoreFatal("", storyID, fmt.Errorf("unknown artifact kind %q", outcome.ArtifactKind))
	}
}

func (d *Dispatcher) insertReviewAndLink(dbc dbctx.Context, storyID int64, stage string, outcome processor.Outcome) (reviewID, artifactID int64, err error) {
	rev, err := d.reviewRepo.Insert(dbc, &domain.Review{Text: outcome.Text, Score: outcome.Score})
	if err != nil {
		return 0, 0, err
	}
	switch outcome.Target {
	case processor.TargetLatestTitle:
		t, err := d.titleRepo.FindLatestVersion(dbc, storyID)
		if err != nil {
			return 0, 0, err
		}
		if t == nil {
			return 0, 0, apperr.MissingInput(stage, storyID, "latest_title")
		}
		if err := d.titleRepo.SetReviewID(dbc, t.ID, rev.ID); err != nil {
			return 0, 0, err
		}
		return rev.ID, t.ID, nil
	case processor.TargetLatestContent:
		c, err := d.contentRepo.FindLatestVersion(dbc, storyID)
		if err != nil {
			return 0, 0, err
		}
		if c == nil {
			return 0, 0, apperr.MissingInput(stage, storyID, "latest_content")
		}
		if err := d.contentRepo.SetReviewID(dbc, c.ID, rev.ID); err != nil {
			return 0, 0, err
		}
		return rev.ID, c.ID, nil
	default:
		return 0, 0, apperr.StoreFatal(stage, storyID, fmt.Errorf("unknown review target %q", outcome.Target))
	}
}

// staticNext returns the single declared successor of a generation stage.
func (d *Dispatcher) staticNext(stage string) string {
	next := d.cat.NextStates(stage)
	if len(next) == 0 {
		return ""
	}
	return next[0]
}

// reviewNext applies the threshold rule: the catalog's first successor is
// the pass target, the second (if any) is the fail/refinement target. A
// score at or above threshold with no CRITICAL finding passes.
func (d *Dispatcher) reviewNext(stage string, outcome processor.Outcome, threshold int) string {
	next := d.cat.NextStates(stage)
	if len(next) == 0 {
		return ""
	}
	pass := next[0]
	fail := pass
	if len(next) > 1 {
		fail = next[1]
	}
	if outcome.Score >= threshold && !outcome.HasCritical() {
		return pass
	}
	return fail
}

func (d *Dispatcher) thresholdFor(stage string) int {
	if t, ok := d.thresholds[stage]; ok && t > 0 {
		return t
	}
	return d.defaultThreshold
}

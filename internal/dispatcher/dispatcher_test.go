package dispatcher

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/catalog"
	"github.com/contentloom/storyforge/internal/data/repos/testutil"
	"github.com/contentloom/storyforge/internal/domain"
	"github.com/contentloom/storyforge/internal/ideasource"
	"github.com/contentloom/storyforge/internal/platform/apperr"
	"github.com/contentloom/storyforge/internal/platform/dbctx"
	"github.com/contentloom/storyforge/internal/processor"
	"github.com/contentloom/storyforge/internal/selector"
	"github.com/contentloom/storyforge/internal/store"
)

type stubProcessor struct {
	inputs  processor.InputSpec
	outcome processor.Outcome
	err     error
}

func (s *stubProcessor) RequiredInputs() processor.InputSpec { return s.inputs }
func (s *stubProcessor) Run(processor.Inputs) (processor.Outcome, error) {
	return s.outcome, s.err
}

type harness struct {
	db          *gorm.DB
	dispatcher  *Dispatcher
	registry    *processor.Registry
	ideas       *ideasource.MemorySource
	titleRepo   store.TitleRepo
	contentRepo store.ContentRepo
}

func newHarness(t *testing.T, db *gorm.DB) *harness {
	t.Helper()
	cat := catalog.Default()
	validator := catalog.NewValidator(cat)
	log := testutil.Logger(t)

	storyRepo := store.NewStoryRepo(db, log, validator)
	titleRepo := store.NewTitleRepo(db, log)
	contentRepo := store.NewContentRepo(db, log)
	reviewRepo := store.NewReviewRepo(db, log)
	sel := selector.New(db, log)
	ideas := ideasource.NewMemorySource()
	registry := processor.NewRegistry()

	d := New(Config{
		DB:          db,
		Log:         log,
		Catalog:     cat,
		Validator:   validator,
		StoryRepo:   storyRepo,
		TitleRepo:   titleRepo,
		ContentRepo: contentRepo,
		ReviewRepo:  reviewRepo,
		Selector:    sel,
		Ideas:       ideas,
		Registry:    registry,
	})

	return &harness{db: db, dispatcher: d, registry: registry, ideas: ideas, titleRepo: titleRepo, contentRepo: contentRepo}
}

// Scenario 1: fresh story advancement.
func TestDispatcherFreshStoryAdvancement(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	h := newHarness(t, tx)
	h.ideas.Put("i1", "A lonely lighthouse keeper")

	h.registry.Register("Title.From.Idea", &stubProcessor{
		inputs: processor.InputSpec{IdeaRef: true, IdeaBody: true},
		outcome: processor.Outcome{
			Kind:         processor.OutcomeProducedArtifact,
			ArtifactKind: processor.ArtifactTitle,
			Text:         "The Keeper",
		},
	})

	testutil.SeedStory(t, ctx, tx, "i1", "Title.From.Idea")

	res, err := h.dispatcher.Step(ctx, "Title.From.Idea")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StepAdvanced, res.Kind)
	assert.Equal(t, "Script.From.Idea.Title", res.To)

	title, err := h.titleRepo.FindVersion(dbctx.Context{Ctx: ctx, Tx: tx}, res.StoryID, 0)
	require.NoError(t, err)
	require.NotNil(t, title)
	assert.Equal(t, "The Keeper", title.Text)
	assert.Nil(t, title.ReviewID)
}

// Scenario 2: review pass above threshold; second dispatch sees NoWork.
func TestDispatcherReviewPassAboveThreshold(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	h := newHarness(t, tx)

	h.registry.Register("Review.Script.Grammar", &stubProcessor{
		inputs: processor.InputSpec{LatestContent: true},
		outcome: processor.Outcome{
			Kind:   processor.OutcomeProducedReview,
			Score:  90,
			Text:   "clean",
			Target: processor.TargetLatestContent,
		},
	})

	s := testutil.SeedStory(t, ctx, tx, "i1", "Review.Script.Grammar")
	testutil.SeedContent(t, ctx, tx, s.ID, 0, "body v0", nil)

	res, err := h.dispatcher.Step(ctx, "Review.Script.Grammar")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StepAdvanced, res.Kind)
	assert.Equal(t, "Review.Script.Tone", res.To) // catalog's pass target

	content, err := h.contentRepo.FindVersion(dbctx.Context{Ctx: ctx, Tx: tx}, s.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, content.ReviewID)

	res2, err := h.dispatcher.Step(ctx, "Review.Script.Grammar")
	require.NoError(t, err)
	require.NotNil(t, res2)
	assert.Equal(t, StepNoWork, res2.Kind)
}

// Scenario 3: review fail below threshold routes to the refinement target.
func TestDispatcherReviewFailBelowThreshold(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	h := newHarness(t, tx)

	h.registry.Register("Review.Script.Grammar", &stubProcessor{
		inputs: processor.InputSpec{LatestContent: true},
		outcome: processor.Outcome{
			Kind:   processor.OutcomeProducedReview,
			Score:  40,
			Text:   "needs work",
			Target: processor.TargetLatestContent,
		},
	})

	s := testutil.SeedStory(t, ctx, tx, "i1", "Review.Script.Grammar")
	testutil.SeedContent(t, ctx, tx, s.ID, 0, "body v0", nil)

	res, err := h.dispatcher.Step(ctx, "Review.Script.Grammar")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Script.From.Idea.Title", res.To) // catalog's refinement target
}

// Scenario 4: a CRITICAL finding forces fail despite a high score.
func TestDispatcherCriticalSeverityForcesFail(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	h := newHarness(t, tx)

	h.registry.Register("Review.Script.Grammar", &stubProcessor{
		inputs: processor.InputSpec{LatestContent: true},
		outcome: processor.Outcome{
			Kind:     processor.OutcomeProducedReview,
			Score:    95,
			Text:     "mostly clean",
			Target:   processor.TargetLatestContent,
			Findings: []processor.Finding{{Severity: processor.SeverityCritical, Message: "libel risk"}},
		},
	})

	s := testutil.SeedStory(t, ctx, tx, "i1", "Review.Script.Grammar")
	testutil.SeedContent(t, ctx, tx, s.ID, 0, "body v0", nil)

	res, err := h.dispatcher.Step(ctx, "Review.Script.Grammar")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Script.From.Idea.Title", res.To)
}

// Scenario 5: an illegal transition aborts the step with no side effects.
func TestDispatcherIllegalTransitionRejected(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	h := newHarness(t, tx)

	h.registry.Register("Title.From.Idea", &stubProcessor{
		outcome: processor.Outcome{Kind: processor.OutcomeDecision, NextStage: "Publishing"},
	})

	s := testutil.SeedStory(t, ctx, tx, "i1", "Title.From.Idea")

	_, err := h.dispatcher.Step(ctx, "Title.From.Idea")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindIllegalTransition))

	storyRepo := store.NewStoryRepo(tx, testutil.Logger(t), catalog.NewValidator(catalog.Default()))
	got, ferr := storyRepo.FindByID(dbctx.Context{Ctx: ctx, Tx: tx}, s.ID)
	require.NoError(t, ferr)
	assert.Equal(t, "Title.From.Idea", got.State)

	versions, verr := h.titleRepo.FindVersions(dbctx.Context{Ctx: ctx, Tx: tx}, s.ID)
	require.NoError(t, verr)
	assert.Empty(t, versions)
}

func TestDispatcherNoWork(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	h := newHarness(t, tx)

	h.registry.Register("Publishing", &stubProcessor{
		outcome: processor.Outcome{Kind: processor.OutcomeDecision, NextStage: "Publishing"},
	})

	res, err := h.dispatcher.Step(ctx, "Publishing")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StepNoWork, res.Kind)
}

// Scenario 7 / P6: two workers contending for the same Story in the same
// stage; exactly one observes Advanced. This test writes to the real
// database (not a rolled-back per-test transaction) since it needs two
// independent connections racing for the same row lock, and cleans up
// after itself.
func TestDispatcherConcurrentSingleAdvance(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	cat := catalog.Default()
	validator := catalog.NewValidator(cat)
	log := testutil.Logger(t)

	storyRepo := store.NewStoryRepo(db, log, validator)
	s, err := storyRepo.Insert(dbctx.Context{Ctx: ctx}, &domain.Story{IdeaRef: "i1", State: "Title.From.Idea"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec("DELETE FROM content WHERE story_id = ?", s.ID)
		db.Exec("DELETE FROM title WHERE story_id = ?", s.ID)
		db.Exec("DELETE FROM story WHERE id = ?", s.ID)
	})

	titleRepo := store.NewTitleRepo(db, log)
	contentRepo := store.NewContentRepo(db, log)
	reviewRepo := store.NewReviewRepo(db, log)
	sel := selector.New(db, log)
	ideas := ideasource.NewMemorySource(ideasource.IdeaBody{IdeaRef: "i1", Text: "idea"})

	newDispatcher := func() *Dispatcher {
		registry := processor.NewRegistry()
		_ = registry.Register("Title.From.Idea", &stubProcessor{
			inputs: processor.InputSpec{IdeaRef: true},
			outcome: processor.Outcome{
				Kind:         processor.OutcomeProducedArtifact,
				ArtifactKind: processor.ArtifactTitle,
				Text:         "v0",
			},
		})
		return New(Config{
			DB: db, Log: log, Catalog: cat, Validator: validator,
			StoryRepo: storyRepo, TitleRepo: titleRepo, ContentRepo: contentRepo,
			ReviewRepo: reviewRepo, Selector: sel, Ideas: ideas, Registry: registry,
		})
	}

	var wg sync.WaitGroup
	results := make([]*StepResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			d := newDispatcher()
			results[idx], errs[idx] = d.Step(ctx, "Title.From.Idea")
		}(i)
	}
	wg.Wait()

	advanced := 0
	for i := 0; i < 2; i++ {
		if results[i] != nil && results[i].Kind == StepAdvanced {
			advanced++
		}
	}
	assert.Equal(t, 1, advanced)

	final, ferr := storyRepo.FindByID(dbctx.Context{Ctx: ctx}, s.ID)
	require.NoError(t, ferr)
	assert.Equal(t, "Script.From.Idea.Title", final.State)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentloom/storyforge/internal/data/repos/testutil"
	"github.com/contentloom/storyforge/internal/domain"
	"github.com/contentloom/storyforge/internal/platform/apperr"
	"github.com/contentloom/storyforge/internal/platform/dbctx"
)

// P2/I3: version numbers form a contiguous 0..k sequence, and start at 0.
func TestTitleRepoVersioningStartsAtZero(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewTitleRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	s := testutil.SeedStory(t, ctx, tx, "idea-1", "Title.From.Idea")

	_, err := repo.Insert(dbc, &domain.Title{StoryID: s.ID, Version: 0, Text: "v0"})
	require.NoError(t, err)
	_, err = repo.Insert(dbc, &domain.Title{StoryID: s.ID, Version: 1, Text: "v1"})
	require.NoError(t, err)

	versions, err := repo.FindVersions(dbc, s.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 0, versions[0].Version)
	assert.Equal(t, 1, versions[1].Version)

	latest, err := repo.FindLatestVersion(dbc, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)
}

// A conflicting (story_id, version) insert fails with VersionConflict.
func TestTitleRepoVersionConflict(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewTitleRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	s := testutil.SeedStory(t, ctx, tx, "idea-1", "Title.From.Idea")
	_, err := repo.Insert(dbc, &domain.Title{StoryID: s.ID, Version: 0, Text: "v0"})
	require.NoError(t, err)

	_, err = repo.Insert(dbc, &domain.Title{StoryID: s.ID, Version: 0, Text: "dup"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindVersionConflict))
}

// L3: set_review_id is idempotent with the same (artifact, review) pair and
// fails with AlreadyReviewed for a different one.
func TestTitleRepoSetReviewIDIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	titleRepo := NewTitleRepo(db, testutil.Logger(t))
	reviewRepo := NewReviewRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	s := testutil.SeedStory(t, ctx, tx, "idea-1", "Review.Title.Grammar")
	title, err := titleRepo.Insert(dbc, &domain.Title{StoryID: s.ID, Version: 0, Text: "v0"})
	require.NoError(t, err)

	r1, err := reviewRepo.Insert(dbc, &domain.Review{Text: "ok", Score: 90})
	require.NoError(t, err)

	require.NoError(t, titleRepo.SetReviewID(dbc, title.ID, r1.ID))
	require.NoError(t, titleRepo.SetReviewID(dbc, title.ID, r1.ID))

	r2, err := reviewRepo.Insert(dbc, &domain.Review{Text: "again", Score: 50})
	require.NoError(t, err)

	err = titleRepo.SetReviewID(dbc, title.ID, r2.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyReviewed))
}

// Boundary: score 0 and 100 accepted, -1 and 101 rejected.
func TestReviewRepoScoreBoundary(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewReviewRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	_, err := repo.Insert(dbc, &domain.Review{Text: "zero", Score: 0})
	require.NoError(t, err)
	_, err = repo.Insert(dbc, &domain.Review{Text: "hundred", Score: 100})
	require.NoError(t, err)

	_, err = repo.Insert(dbc, &domain.Review{Text: "neg", Score: -1})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidScore))

	_, err = repo.Insert(dbc, &domain.Review{Text: "over", Score: 101})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidScore))
}

// P3: every artifact with a non-null review_id points to an existing review.
func TestContentRepoReviewLinkPointsToExistingReview(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	contentRepo := NewContentRepo(db, testutil.Logger(t))
	reviewRepo := NewReviewRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	s := testutil.SeedStory(t, ctx, tx, "idea-1", "Review.Script.Grammar")
	content, err := contentRepo.Insert(dbc, &domain.Content{StoryID: s.ID, Version: 0, Text: "body"})
	require.NoError(t, err)

	rev, err := reviewRepo.Insert(dbc, &domain.Review{Text: "good", Score: 80})
	require.NoError(t, err)
	require.NoError(t, contentRepo.SetReviewID(dbc, content.ID, rev.ID))

	got, err := contentRepo.FindByID(dbc, content.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReviewID)
	assert.Equal(t, rev.ID, *got.ReviewID)

	fetched, err := reviewRepo.FindByID(dbc, *got.ReviewID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
}

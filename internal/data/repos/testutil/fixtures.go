package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/domain"
)

func SeedStory(tb testing.TB, ctx context.Context, tx *gorm.DB, ideaRef, state string) *domain.Story {
	tb.Helper()
	now := time.Now().UTC()
	s := &domain.Story{
		IdeaRef:   ideaRef,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed story: %v", err)
	}
	return s
}

func SeedStoryAt(tb testing.TB, ctx context.Context, tx *gorm.DB, ideaRef, state string, createdAt time.Time) *domain.Story {
	tb.Helper()
	s := &domain.Story{
		IdeaRef:   ideaRef,
		State:     state,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed story: %v", err)
	}
	return s
}

func SeedTitle(tb testing.TB, ctx context.Context, tx *gorm.DB, storyID int64, version int, text string, reviewID *int64) *domain.Title {
	tb.Helper()
	t := &domain.Title{
		StoryID:   storyID,
		Version:   version,
		Text:      text,
		ReviewID:  reviewID,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed title: %v", err)
	}
	return t
}

func SeedContent(tb testing.TB, ctx context.Context, tx *gorm.DB, storyID int64, version int, text string, reviewID *int64) *domain.Content {
	tb.Helper()
	c := &domain.Content{
		StoryID:   storyID,
		Version:   version,
		Text:      text,
		ReviewID:  reviewID,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed content: %v", err)
	}
	return c
}

func SeedReview(tb testing.TB, ctx context.Context, tx *gorm.DB, score int, text string) *domain.Review {
	tb.Helper()
	r := &domain.Review{
		Text:      text,
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed review: %v", err)
	}
	return r
}

func PtrInt64(v int64) *int64 { return &v }

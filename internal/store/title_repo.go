package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/domain"
	"github.com/contentloom/storyforge/internal/platform/apperr"
	"github.com/contentloom/storyforge/internal/platform/dbctx"
	"github.com/contentloom/storyforge/internal/platform/logger"
)

// TitleRepo is the repository surface over the Title table. Titles are
// append-only: Insert is the only way rows come into existence, and
// SetReviewID is the only subsequent mutation, idempotent only when the
// stored review_id already equals the given id.
type TitleRepo interface {
	Insert(dbc dbctx.Context, t *domain.Title) (*domain.Title, error)
	FindByID(dbc dbctx.Context, id int64) (*domain.Title, error)
	FindLatestVersion(dbc dbctx.Context, storyID int64) (*domain.Title, error)
	FindVersions(dbc dbctx.Context, storyID int64) ([]*domain.Title, error)
	FindVersion(dbc dbctx.Context, storyID int64, version int) (*domain.Title, error)
	SetReviewID(dbc dbctx.Context, artifactID int64, reviewID int64) error
}

type titleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTitleRepo(db *gorm.DB, baseLog *logger.Logger) TitleRepo {
	return &titleRepo{db: db, log: baseLog.With("repo", "TitleRepo")}
}

func (r *titleRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *titleRepo) Insert(dbc dbctx.Context, t *domain.Title) (*domain.Title, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err := r.tx(dbc).Create(t).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.VersionConflict(t.StoryID, t.Version)
		}
		return nil, wrapStoreErr("", t.StoryID, err)
	}
	return t, nil
}

func (r *titleRepo) FindByID(dbc dbctx.Context, id int64) (*domain.Title, error) {
	var t domain.Title
	err := r.tx(dbc).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", 0, err)
	}
	return &t, nil
}

func (r *titleRepo) FindLatestVersion(dbc dbctx.Context, storyID int64) (*domain.Title, error) {
	var t domain.Title
	err := r.tx(dbc).Where("story_id = ?", storyID).Order("version DESC").Limit(1).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", storyID, err)
	}
	return &t, nil
}

func (r *titleRepo) FindVersions(dbc dbctx.Context, storyID int64) ([]*domain.Title, error) {
	var out []*domain.Title
	err := r.tx(dbc).Where("story_id = ?", storyID).Order("version ASC").Find(&out).Error
	if err != nil {
		return nil, wrapStoreErr("", storyID, err)
	}
	return out, nil
}

func (r *titleRepo) FindVersion(dbc dbctx.Context, storyID int64, version int) (*domain.Title, error) {
	var t domain.Title
	err := r.tx(dbc).Where("story_id = ? AND version = ?", storyID, version).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", storyID, err)
	}
	return &t, nil
}

// SetReviewID assigns review_id to the artifact if it is currently unset.
// If it is already set to the same reviewID the call is a no-op success
// (idempotent retry after a crash between steps 6 and 10). If it is set to
// a different id, it fails with AlreadyReviewed.
func (r *titleRepo) SetReviewID(dbc dbctx.Context, artifactID int64, reviewID int64) error {
	var t domain.Title
	err := r.tx(dbc).Where("id = ?", artifactID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.StoreFatal("", 0, errors.New("title not found"))
	}
	if err != nil {
		return wrapStoreErr("", 0, err)
	}
	if t.ReviewID != nil {
		if *t.ReviewID == reviewID {
			return nil
		}
		return apperr.AlreadyReviewed(artifactID, *t.ReviewID, reviewID)
	}
	res := r.tx(dbc).Model(&domain.Title{}).
		Where("id = ? AND review_id IS NULL", artifactID).
		Update("review_id", reviewID)
	if res.Error != nil {
		return wrapStoreErr("", 0, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race to a concurrent assignment; re-check what won.
		var after domain.Title
		if err := r.tx(dbc).Where("id = ?", artifactID).First(&after).Error; err != nil {
			return wrapStoreErr("", 0, err)
		}
		if after.ReviewID != nil && *after.ReviewID == reviewID {
			return nil
		}
		existing := int64(0)
		if after.ReviewID != nil {
			existing = *after.ReviewID
		}
		return apperr.AlreadyReviewed(artifactID, existing, reviewID)
	}
	return nil
}

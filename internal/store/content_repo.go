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

// ContentRepo is the repository surface over the Content table. Same shape
// and invariants as TitleRepo, in its own namespace.
type ContentRepo interface {
	Insert(dbc dbctx.Context, c *domain.Content) (*domain.Content, error)
	FindByID(dbc dbctx.Context, id int64) (*domain.Content, error)
	FindLatestVersion(dbc dbctx.Context, storyID int64) (*domain.Content, error)
	FindVersions(dbc dbctx.Context, storyID int64) ([]*domain.Content, error)
	FindVersion(dbc dbctx.Context, storyID int64, version int) (*domain.Content, error)
	SetReviewID(dbc dbctx.Context, artifactID int64, reviewID int64) error
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{db: db, log: baseLog.With("repo", "ContentRepo")}
}

func (r *contentRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *contentRepo) Insert(dbc dbctx.Context, c *domain.Content) (*domain.Content, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	err := r.tx(dbc).Create(c).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.VersionConflict(c.StoryID, c.Version)
		}
		return nil, wrapStoreErr("", c.StoryID, err)
	}
	return c, nil
}

func (r *contentRepo) FindByID(dbc dbctx.Context, id int64) (*domain.Content, error) {
	var c domain.Content
	err := r.tx(dbc).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", 0, err)
	}
	return &c, nil
}

func (r *contentRepo) FindLatestVersion(dbc dbctx.Context, storyID int64) (*domain.Content, error) {
	var c domain.Content
	err := r.tx(dbc).Where("story_id = ?", storyID).Order("version DESC").Limit(1).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", storyID, err)
	}
	return &c, nil
}

func (r *contentRepo) FindVersions(dbc dbctx.Context, storyID int64) ([]*domain.Content, error) {
	var out []*domain.Content
	err := r.tx(dbc).Where("story_id = ?", storyID).Order("version ASC").Find(&out).Error
	if err != nil {
		return nil, wrapStoreErr("", storyID, err)
	}
	return out, nil
}

func (r *contentRepo) FindVersion(dbc dbctx.Context, storyID int64, version int) (*domain.Content, error) {
	var c domain.Content
	err := r.tx(dbc).Where("story_id = ? AND version = ?", storyID, version).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", storyID, err)
	}
	return &c, nil
}

func (r *contentRepo) SetReviewID(dbc dbctx.Context, artifactID int64, reviewID int64) error {
	var c domain.Content
	err := r.tx(dbc).Where("id = ?", artifactID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.StoreFatal("", 0, errors.New("content not found"))
	}
	if err != nil {
		return wrapStoreErr("", 0, err)
	}
	if c.ReviewID != nil {
		if *c.ReviewID == reviewID {
			return nil
		}
		return apperr.AlreadyReviewed(artifactID, *c.ReviewID, reviewID)
	}
	res := r.tx(dbc).Model(&domain.Content{}).
		Where("id = ? AND review_id IS NULL", artifactID).
		Update("review_id", reviewID)
	if res.Error != nil {
		return wrapStoreErr("", 0, res.Error)
	}
	if res.RowsAffected == 0 {
		var after domain.Content
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

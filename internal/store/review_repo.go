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

// ReviewRepo is the repository surface over the Review table. Reviews are
// immutable once inserted and carry no back-reference to the artifact that
// references them.
type ReviewRepo interface {
	Insert(dbc dbctx.Context, r *domain.Review) (*domain.Review, error)
	FindByID(dbc dbctx.Context, id int64) (*domain.Review, error)
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	return &reviewRepo{db: db, log: baseLog.With("repo", "ReviewRepo")}
}

func (r *reviewRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

// Insert validates score is within 0..100 before writing, failing with
// apperr.KindInvalidScore otherwise -- a belt-and-braces check alongside
// the database CHECK constraint, since the latter may be absent on sqlite.
func (r *reviewRepo) Insert(dbc dbctx.Context, rev *domain.Review) (*domain.Review, error) {
	if rev.Score < 0 || rev.Score > 100 {
		return nil, apperr.InvalidScore(rev.Score)
	}
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now().UTC()
	}
	if err := r.tx(dbc).Create(rev).Error; err != nil {
		return nil, wrapStoreErr("", 0, err)
	}
	return rev, nil
}

func (r *reviewRepo) FindByID(dbc dbctx.Context, id int64) (*domain.Review, error) {
	var rev domain.Review
	err := r.tx(dbc).Where("id = ?", id).First(&rev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", 0, err)
	}
	return &rev, nil
}

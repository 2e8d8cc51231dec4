package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/catalog"
	"github.com/contentloom/storyforge/internal/domain"
	"github.com/contentloom/storyforge/internal/platform/apperr"
	"github.com/contentloom/storyforge/internal/platform/dbctx"
	"github.com/contentloom/storyforge/internal/platform/logger"
)

// StoryRepo is the repository surface over the Story table. Update is the
// only mutation path for state: it always runs the Transition Validator
// against the previously persisted state before committing a change.
type StoryRepo interface {
	Insert(dbc dbctx.Context, s *domain.Story) (*domain.Story, error)
	FindByID(dbc dbctx.Context, id int64) (*domain.Story, error)
	// FindByIDForUpdate locks the Story row for the duration of the
	// enclosing transaction, the first lock acquired in the fixed
	// Story->Title->Content->Review ordering.
	FindByIDForUpdate(dbc dbctx.Context, id int64) (*domain.Story, error)
	FindByState(dbc dbctx.Context, state string) ([]*domain.Story, error)
	FindOldestByState(dbc dbctx.Context, state string) (*domain.Story, error)
	CountByState(dbc dbctx.Context, state string) (int64, error)
	// Update persists State and UpdatedAt only. If story.State differs from
	// the row's currently persisted state, the transition is checked
	// against the Validator and rejected with apperr.KindIllegalTransition
	// on failure.
	Update(dbc dbctx.Context, story *domain.Story) error
}

type storyRepo struct {
	db        *gorm.DB
	log       *logger.Logger
	validator *catalog.Validator
}

// NewStoryRepo constructs a StoryRepo. validator is consulted on every
// Update call whose State differs from the persisted row.
func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger, validator *catalog.Validator) StoryRepo {
	return &storyRepo{db: db, log: baseLog.With("repo", "StoryRepo"), validator: validator}
}

func (r *storyRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *storyRepo) Insert(dbc dbctx.Context, s *domain.Story) (*domain.Story, error) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if err := r.tx(dbc).Create(s).Error; err != nil {
		return nil, wrapStoreErr("", 0, err)
	}
	return s, nil
}

func (r *storyRepo) FindByID(dbc dbctx.Context, id int64) (*domain.Story, error) {
	var s domain.Story
	err := r.tx(dbc).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", id, err)
	}
	return &s, nil
}

func (r *storyRepo) FindByIDForUpdate(dbc dbctx.Context, id int64) (*domain.Story, error) {
	var s domain.Story
	err := forUpdate(r.tx(dbc)).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("", id, err)
	}
	return &s, nil
}

func (r *storyRepo) FindByState(dbc dbctx.Context, state string) ([]*domain.Story, error) {
	var out []*domain.Story
	err := r.tx(dbc).Where("state = ?", state).Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, wrapStoreErr(state, 0, err)
	}
	return out, nil
}

func (r *storyRepo) FindOldestByState(dbc dbctx.Context, state string) (*domain.Story, error) {
	var s domain.Story
	err := r.tx(dbc).Where("state = ?", state).Order("created_at ASC").Limit(1).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr(state, 0, err)
	}
	return &s, nil
}

func (r *storyRepo) CountByState(dbc dbctx.Context, state string) (int64, error) {
	var count int64
	err := r.tx(dbc).Model(&domain.Story{}).Where("state = ?", state).Count(&count).Error
	if err != nil {
		return 0, wrapStoreErr(state, 0, err)
	}
	return count, nil
}

func (r *storyRepo) Update(dbc dbctx.Context, story *domain.Story) error {
	var current domain.Story
	err := r.tx(dbc).Where("id = ?", story.ID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.StoreFatal(story.State, story.ID, errors.New("story not found"))
	}
	if err != nil {
		return wrapStoreErr(story.State, story.ID, err)
	}

	if current.State != story.State {
		if res := r.validator.Validate(current.State, story.State); !res.OK {
			return apperr.IllegalTransition(current.State, story.State, story.ID, r.validator.NextStates(current.State))
		}
	}

	now := time.Now().UTC()
	res := r.tx(dbc).Model(&domain.Story{}).Where("id = ?", story.ID).Updates(map[string]interface{}{
		"state":      story.State,
		"updated_at": now,
	})
	if res.Error != nil {
		return wrapStoreErr(story.State, story.ID, res.Error)
	}
	story.UpdatedAt = now
	return nil
}

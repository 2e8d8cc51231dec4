// Package selector is the Work Selector (C4): for a given stage, picks the
// single Story to process next under a deterministic priority policy. It
// never mutates state and holds no locks beyond the read it issues.
package selector

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/domain"
	"github.com/contentloom/storyforge/internal/platform/dbctx"
	"github.com/contentloom/storyforge/internal/platform/logger"
	"github.com/contentloom/storyforge/internal/processor"
)

// Selector reads candidate Stories for a stage and applies the
// stage-filter -> version-bucket -> quality-tiebreak -> age-tiebreak ->
// id-tiebreak policy.
type Selector struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) *Selector {
	return &Selector{db: db, log: baseLog.With("component", "Selector")}
}

// Picked is the selected Story together with the diagnostic context Preview
// exposes without mutating anything.
type Picked struct {
	Story      *domain.Story
	WorkVersion int
	StoryScore  float64
	Stage       string
}

type candidateRow struct {
	ID             int64
	IdeaRef        string
	State          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	TitleVersion   int
	ContentVersion int
	TitleScore     int
	ContentScore   int
}

// candidateQuery is the single bounded query per call: it reads every
// Story in the given stage along with its latest Title/Content version and
// the score of the Review that latest row references, relying on the
// required indices on Story(state), Title(story_id, version),
// Content(story_id, version). The score subqueries must resolve the latest
// row by version FIRST and only then look up its review_id -- joining
// review before picking the max version would silently fall back to an
// earlier, already-reviewed version's score whenever the true latest row is
// itself unreviewed, instead of the spec's required 0. Written with scalar
// subqueries (not LATERAL joins) so it runs unmodified against both the
// Postgres and SQLite drivers.
const candidateQuery = `
SELECT
  s.id AS id,
  s.idea_ref AS idea_ref,
  s.state AS state,
  s.created_at AS created_at,
  s.updated_at AS updated_at,
  COALESCE((SELECT version FROM title WHERE story_id = s.id ORDER BY version DESC LIMIT 1), 0) AS title_version,
  COALESCE((SELECT version FROM content WHERE story_id = s.id ORDER BY version DESC LIMIT 1), 0) AS content_version,
  COALESCE((SELECT r.score FROM review r
            WHERE r.id = (SELECT t.review_id FROM title t WHERE t.story_id = s.id ORDER BY t.version DESC LIMIT 1)), 0) AS title_score,
  COALESCE((SELECT r.score FROM review r
            WHERE r.id = (SELECT c.review_id FROM content c WHERE c.story_id = s.id ORDER BY c.version DESC LIMIT 1)), 0) AS content_score
FROM story s
WHERE s.state = ?
`

func (s *Selector) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return s.db.WithContext(dbc.Ctx)
}

func (s *Selector) candidates(dbc dbctx.Context, stage string) ([]candidateRow, error) {
	var rows []candidateRow
	if err := s.tx(dbc).Raw(candidateQuery, stage).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// workVersion derives the integer work-version bucket for a row given the
// module kind implied by the stage name: Script/Review.Script.* stages key
// off the latest Content version, Title/Review.Title.* stages key off the
// latest Title version, Story.* (and any unrecognised kind) use the max of
// both.
func workVersion(stage string, row candidateRow) int {
	switch processor.StageKind(stage) {
	case processor.KindScript:
		return row.ContentVersion
	case processor.KindTitle:
		return row.TitleVersion
	default:
		if row.TitleVersion > row.ContentVersion {
			return row.TitleVersion
		}
		return row.ContentVersion
	}
}

// storyScore is the arithmetic mean of the latest Content's review score
// and the latest Title's review score, 0 for either side with no review.
func storyScore(row candidateRow) float64 {
	return float64(row.TitleScore+row.ContentScore) / 2.0
}

func (s *Selector) pick(rows []candidateRow, stage string) *Picked {
	if len(rows) == 0 {
		return nil
	}
	sort.SliceStable(rows, func(i, j int) bool {
		wi, wj := workVersion(stage, rows[i]), workVersion(stage, rows[j])
		if wi != wj {
			return wi < wj
		}
		si, sj := storyScore(rows[i]), storyScore(rows[j])
		if si != sj {
			return si > sj
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	top := rows[0]
	return &Picked{
		Story: &domain.Story{
			ID:        top.ID,
			IdeaRef:   top.IdeaRef,
			State:     top.State,
			CreatedAt: top.CreatedAt,
			UpdatedAt: top.UpdatedAt,
		},
		WorkVersion: workVersion(stage, top),
		StoryScore:  storyScore(top),
		Stage:       stage,
	}
}

// SelectNext returns the Story that Dispatcher.Step should process next for
// stage, or nil if none are in that state.
func (s *Selector) SelectNext(dbc dbctx.Context, stage string) (*Picked, error) {
	rows, err := s.candidates(dbc, stage)
	if err != nil {
		return nil, err
	}
	return s.pick(rows, stage), nil
}

// Preview is identical to SelectNext but documents that callers must treat
// the result as diagnostic only: it holds no locks and the Dispatcher must
// re-select (and lock) under its own unit of work before acting on it.
func (s *Selector) Preview(dbc dbctx.Context, stage string) (*Picked, error) {
	return s.SelectNext(dbc, stage)
}

package domain

import "time"

// Review is an immutable record of a scoring pass. A Review is referenced by
// at most one artifact via the artifact's review_id; Review carries no
// back-reference and is never modified once inserted.
type Review struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"column:text;not null" json:"text"`
	Score     int       `gorm:"column:score;not null;check:score BETWEEN 0 AND 100" json:"score"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Review) TableName() string { return "review" }

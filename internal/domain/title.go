package domain

import "time"

// Title is a versioned title string for a Story. Titles are append-only:
// once inserted, Version and Text never change. ReviewID may be assigned
// exactly once, null to some Review id.
type Title struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StoryID   int64     `gorm:"column:story_id;not null;uniqueIndex:idx_title_story_version,priority:1;index:idx_title_story_version_lookup,priority:1" json:"story_id"`
	Version   int       `gorm:"column:version;not null;uniqueIndex:idx_title_story_version,priority:2;index:idx_title_story_version_lookup,priority:2" json:"version"`
	Text      string    `gorm:"column:text;not null" json:"text"`
	ReviewID  *int64    `gorm:"column:review_id" json:"review_id,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Title) TableName() string { return "title" }

package domain

import "time"

// Content is a versioned script/body text for a Story. Same shape and
// invariants as Title, in its own namespace.
type Content struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StoryID   int64     `gorm:"column:story_id;not null;uniqueIndex:idx_content_story_version,priority:1;index:idx_content_story_version_lookup,priority:1" json:"story_id"`
	Version   int       `gorm:"column:version;not null;uniqueIndex:idx_content_story_version,priority:2;index:idx_content_story_version_lookup,priority:2" json:"version"`
	Text      string    `gorm:"column:text;not null" json:"text"`
	ReviewID  *int64    `gorm:"column:review_id" json:"review_id,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Content) TableName() string { return "content" }

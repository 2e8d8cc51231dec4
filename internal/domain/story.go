package domain

import "time"

// Story is the unit of work advancing through the stage graph. Its state is
// the only mutable field outside of timestamps; a Story is never deleted.
type Story struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	IdeaRef   string    `gorm:"column:idea_ref;not null" json:"idea_ref"`
	State     string    `gorm:"column:state;not null;index:idx_story_state;index:idx_story_state_created,priority:1" json:"state"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_story_state_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Story) TableName() string { return "story" }

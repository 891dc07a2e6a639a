package models

import "time"

// Tag labels questions. Names are stored uppercase and deduplicated on
// name, so "react" and "REACT" resolve to the same row. Tags are created
// lazily the first time a question uses them.
type Tag struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string     `gorm:"size:255" json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `gorm:"many2many:question_tags;" json:"-"`
}

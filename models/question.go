package models

import "time"

// Question is a post asked by a user, optionally inside a loop.
// Only the author may edit or delete it.
type Question struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	LoopID    *uint     `gorm:"index" json:"loop_id"`
	Views     int64     `gorm:"default:0" json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Answers   []Answer  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"answers,omitempty"`
	Tags      []Tag     `gorm:"many2many:question_tags;" json:"tags,omitempty"`
}

package models

import "time"

// Interaction action kinds.
const (
	ActionAskQuestion = "ask-question"
	ActionCreateLoop  = "create-loop"
	ActionJoinLoop    = "join-loop"
)

// Interaction is an append-only audit record of a user action. It is
// written alongside the action and never read back by domain logic.
type Interaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	Action     string    `gorm:"size:32;not null" json:"action"`
	QuestionID *uint     `json:"question_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

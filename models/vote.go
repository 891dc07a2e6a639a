package models

import "time"

// Vote type values.
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// Vote records one user's directional endorsement of a question or an
// answer. Exactly one of QuestionID/AnswerID is set. The composite
// unique indexes hold the one-row-per-voter-per-target invariant at the
// storage layer, closing the concurrent double-submission race.
type Vote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:uniq_votes_user_question;uniqueIndex:uniq_votes_user_answer" json:"user_id"`
	QuestionID *uint     `gorm:"uniqueIndex:uniq_votes_user_question" json:"question_id,omitempty"`
	AnswerID   *uint     `gorm:"uniqueIndex:uniq_votes_user_answer" json:"answer_id,omitempty"`
	Type       string    `gorm:"size:16;not null" json:"type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

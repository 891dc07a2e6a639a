package services

import (
	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
)

// Fixed reputation deltas per action kind.
const (
	repAskQuestion = 5
	repCreateLoop  = 20
	repJoinLoop    = 2
)

// applyReputation adds delta to the user's reputation counter in place.
// It must run on the same transaction as the write that triggered it so
// the counter and the triggering row commit or roll back together.
// The counter carries no floor or ceiling.
func applyReputation(tx *gorm.DB, userID uint, delta int) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("reputation", gorm.Expr("reputation + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// logInteraction appends an audit record for the action. The log is
// write-only: nothing in the domain reads it back.
func logInteraction(tx *gorm.DB, userID uint, action string, questionID *uint) error {
	return tx.Create(&models.Interaction{
		UserID:     userID,
		Action:     action,
		QuestionID: questionID,
	}).Error
}

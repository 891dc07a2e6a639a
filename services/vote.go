package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
)

// Vote directions accepted from callers.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Observable vote states per (voter, target).
const (
	StateNone      = "none"
	StateUpvoted   = "upvoted"
	StateDownvoted = "downvoted"
)

// VoteTarget identifies a question or an answer; exactly one field is set.
type VoteTarget struct {
	QuestionID uint
	AnswerID   uint
}

// VoteTotals carries the aggregates recomputed from the vote rows.
// The recomputation is the authoritative value; any incremental delta a
// client applies is only a display optimization.
type VoteTotals struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
	Total     int64 `json:"total"`
}

// VoteResult reports the state after a cast plus fresh totals.
type VoteResult struct {
	State  string     `json:"state"`
	Totals VoteTotals `json:"totals"`
}

// VoteService is the vote ledger: one row per (voter, target), toggled
// by repeated casts.
type VoteService interface {
	Cast(ctx context.Context, voterID uint, target VoteTarget, direction string) (VoteResult, error)
	Status(ctx context.Context, voterID uint, target VoteTarget) (string, error)
	Totals(ctx context.Context, target VoteTarget) (VoteTotals, error)
	Lookup(ctx context.Context, voterID uint, target VoteTarget) (*models.Vote, error)
}

type voteService struct {
	db *gorm.DB
}

// NewVoteService creates a vote ledger over the shared store.
func NewVoteService(db *gorm.DB) VoteService {
	return &voteService{db: db}
}

// Cast applies the toggle state machine for one voter on one target:
// no row inserts one, a same-direction row deletes it, an
// opposite-direction row flips in place. It never accumulates a second
// row for the same (voter, target).
func (s *voteService) Cast(ctx context.Context, voterID uint, target VoteTarget, direction string) (VoteResult, error) {
	voteType, err := directionToType(direction)
	if err != nil {
		return VoteResult{}, err
	}
	if err := s.checkVoter(ctx, voterID); err != nil {
		return VoteResult{}, err
	}
	if err := s.checkTarget(ctx, target); err != nil {
		return VoteResult{}, err
	}

	var state string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Vote
		lookupErr := targetScope(lockForUpdate(tx), target).
			Where("user_id = ?", voterID).
			First(&existing).Error

		switch {
		case errors.Is(lookupErr, gorm.ErrRecordNotFound):
			row := models.Vote{UserID: voterID, Type: voteType}
			if target.QuestionID != 0 {
				qid := target.QuestionID
				row.QuestionID = &qid
			} else {
				aid := target.AnswerID
				row.AnswerID = &aid
			}
			if createErr := tx.Create(&row).Error; createErr != nil {
				if isDuplicateKey(createErr) {
					// Lost a concurrent first-vote race; the winner's
					// row stands and we report its state.
					var winner models.Vote
					if readErr := targetScope(tx, target).
						Where("user_id = ?", voterID).
						First(&winner).Error; readErr != nil {
						return readErr
					}
					state = typeToState(winner.Type)
					return nil
				}
				return createErr
			}
			state = typeToState(voteType)
			return nil

		case lookupErr != nil:
			return lookupErr

		case existing.Type == voteType:
			if delErr := tx.Delete(&existing).Error; delErr != nil {
				return delErr
			}
			state = StateNone
			return nil

		default:
			if updErr := tx.Model(&existing).Update("type", voteType).Error; updErr != nil {
				return updErr
			}
			state = typeToState(voteType)
			return nil
		}
	})
	if err != nil {
		return VoteResult{}, err
	}

	totals, err := s.Totals(ctx, target)
	if err != nil {
		return VoteResult{}, err
	}
	return VoteResult{State: state, Totals: totals}, nil
}

// Status returns the voter's current state on the target without side
// effects.
func (s *voteService) Status(ctx context.Context, voterID uint, target VoteTarget) (string, error) {
	vote, err := s.Lookup(ctx, voterID, target)
	if err != nil {
		return "", err
	}
	if vote == nil {
		return StateNone, nil
	}
	return typeToState(vote.Type), nil
}

// Totals re-derives the aggregates as count(up) - count(down) over the
// ledger for the target.
func (s *voteService) Totals(ctx context.Context, target VoteTarget) (VoteTotals, error) {
	var up, down int64
	if err := targetScope(s.db.WithContext(ctx).Model(&models.Vote{}), target).
		Where("type = ?", models.VoteUp).
		Count(&up).Error; err != nil {
		return VoteTotals{}, err
	}
	if err := targetScope(s.db.WithContext(ctx).Model(&models.Vote{}), target).
		Where("type = ?", models.VoteDown).
		Count(&down).Error; err != nil {
		return VoteTotals{}, err
	}
	return VoteTotals{Upvotes: up, Downvotes: down, Total: up - down}, nil
}

// Lookup returns the voter's stored vote row for the target, or nil.
func (s *voteService) Lookup(ctx context.Context, voterID uint, target VoteTarget) (*models.Vote, error) {
	var vote models.Vote
	err := targetScope(s.db.WithContext(ctx), target).
		Where("user_id = ?", voterID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (s *voteService) checkVoter(ctx context.Context, voterID uint) error {
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", voterID).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *voteService) checkTarget(ctx context.Context, target VoteTarget) error {
	var cnt int64
	var err error
	switch {
	case target.QuestionID != 0:
		err = s.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", target.QuestionID).Count(&cnt).Error
	case target.AnswerID != 0:
		err = s.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", target.AnswerID).Count(&cnt).Error
	default:
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func targetScope(db *gorm.DB, target VoteTarget) *gorm.DB {
	if target.QuestionID != 0 {
		return db.Where("question_id = ?", target.QuestionID)
	}
	return db.Where("answer_id = ?", target.AnswerID)
}

func directionToType(direction string) (string, error) {
	switch direction {
	case DirectionUp:
		return models.VoteUp, nil
	case DirectionDown:
		return models.VoteDown, nil
	default:
		return "", ErrInvalidVote
	}
}

func typeToState(voteType string) string {
	if voteType == models.VoteUp {
		return StateUpvoted
	}
	return StateDownvoted
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

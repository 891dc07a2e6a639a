package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
	"github.com/devloops/devloops/utils"
)

// QuestionInput carries the fields for asking a question.
type QuestionInput struct {
	Title    string
	Content  string
	Tags     []string
	AuthorID uint
	LoopID   *uint
}

// QuestionService owns question and answer writes: asking (with lazy
// tag creation and the ask reputation delta), author-only edits and
// deletes, and answers.
type QuestionService interface {
	Ask(ctx context.Context, input QuestionInput) (*models.Question, error)
	Edit(ctx context.Context, questionID, userID uint, title, content string, tags []string) error
	Delete(ctx context.Context, questionID, userID uint) error
	Answer(ctx context.Context, questionID, authorID uint, content string) (*models.Answer, error)
	DeleteAnswer(ctx context.Context, answerID, userID uint) error
}

type questionService struct {
	db    *gorm.DB
	loops LoopService
}

// NewQuestionService creates a question service over the shared store.
func NewQuestionService(db *gorm.DB) QuestionService {
	return &questionService{db: db, loops: NewLoopService(db)}
}

// Ask inserts the question, links its tags (created lazily, deduplicated
// on the uppercase-normalized name), grants the ask reputation delta and
// logs the interaction in one transaction. Asking inside a loop requires
// membership.
func (s *questionService) Ask(ctx context.Context, input QuestionInput) (*models.Question, error) {
	if input.LoopID != nil {
		member, err := s.loops.IsMember(ctx, *input.LoopID, input.AuthorID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, ErrNotMember
		}
	}

	question := models.Question{
		Title:    input.Title,
		Content:  input.Content,
		AuthorID: input.AuthorID,
		LoopID:   input.LoopID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		tags, err := upsertTags(tx, input.Tags)
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(&question).Association("Tags").Append(tags); err != nil {
				return err
			}
		}
		if err := applyReputation(tx, input.AuthorID, repAskQuestion); err != nil {
			return err
		}
		return logInteraction(tx, input.AuthorID, models.ActionAskQuestion, &question.ID)
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// Edit replaces title, content and the tag set. Author only.
func (s *questionService) Edit(ctx context.Context, questionID, userID uint, title, content string, tags []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.loadOwned(tx, questionID, userID)
		if err != nil {
			return err
		}
		question.Title = title
		question.Content = content
		if err := tx.Save(question).Error; err != nil {
			return err
		}
		if tags == nil {
			return nil
		}
		upserted, err := upsertTags(tx, tags)
		if err != nil {
			return err
		}
		return tx.Model(question).Association("Tags").Replace(upserted)
	})
}

// Delete removes the question with its answers, votes and tag links.
// Author only. Interaction records keep a null question reference so the
// audit trail survives the delete.
func (s *questionService) Delete(ctx context.Context, questionID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.loadOwned(tx, questionID, userID)
		if err != nil {
			return err
		}
		var answerIDs []uint
		if err := tx.Model(&models.Answer{}).
			Where("question_id = ?", questionID).
			Pluck("id", &answerIDs).Error; err != nil {
			return err
		}
		if len(answerIDs) > 0 {
			if err := tx.Where("answer_id IN ?", answerIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("question_id = ?", questionID).Delete(&models.Answer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Model(question).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&models.Interaction{}).
			Where("question_id = ?", questionID).
			Update("question_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(question).Error
	})
}

// Answer appends an answer to an existing question.
func (s *questionService) Answer(ctx context.Context, questionID, authorID uint, content string) (*models.Answer, error) {
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", questionID).
		Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt == 0 {
		return nil, ErrNotFound
	}
	answer := models.Answer{QuestionID: questionID, AuthorID: authorID, Content: content}
	if err := s.db.WithContext(ctx).Create(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// DeleteAnswer removes an answer and its votes. Author only.
func (s *questionService) DeleteAnswer(ctx context.Context, answerID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := tx.First(&answer, answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if answer.AuthorID != userID {
			return ErrUnauthorized
		}
		if err := tx.Where("answer_id = ?", answerID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&answer).Error
	})
}

func (s *questionService) loadOwned(tx *gorm.DB, questionID, userID uint) (*models.Question, error) {
	var question models.Question
	if err := tx.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if question.AuthorID != userID {
		return nil, ErrUnauthorized
	}
	return &question, nil
}

// upsertTags resolves tag names to rows, creating missing tags. Names
// are uppercased and trimmed before lookup so the name stays the single
// dedup key.
func upsertTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	normalized := make([]string, 0, len(names))
	for _, raw := range names {
		if name := NormalizeTag(raw); name != "" {
			normalized = append(normalized, name)
		}
	}

	tags := make([]models.Tag, 0, len(normalized))
	for _, name := range utils.UniqueStrings(normalized) {
		var tag models.Tag
		err := tx.Where(models.Tag{Name: name}).
			Attrs(models.Tag{Description: fmt.Sprintf("Questions about %s", name)}).
			FirstOrCreate(&tag).Error
		if err != nil {
			if isDuplicateKey(err) {
				// Another request created it between lookup and insert.
				if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// NormalizeTag maps a raw tag name to its canonical stored form.
func NormalizeTag(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/devloops/devloops/models"
)

// LoopAttrs carries the fields for creating a loop.
type LoopAttrs struct {
	Name        string
	Slug        string
	Description string
	Picture     string
}

// LoopEdit carries partial updates; empty fields keep their value.
type LoopEdit struct {
	Name        string
	Description string
	Picture     string
}

// LoopService is the membership register: one row per (loop, user), a
// loop with members always retains an admin, and every mutation settles
// in a single transaction together with its reputation delta and audit
// record.
type LoopService interface {
	Create(ctx context.Context, creatorID uint, attrs LoopAttrs) (*models.Loop, error)
	Edit(ctx context.Context, loopID, userID uint, edit LoopEdit) error
	Delete(ctx context.Context, loopID, userID uint) error
	Join(ctx context.Context, loopID, userID uint) error
	Leave(ctx context.Context, loopID, userID uint) error
	IsMember(ctx context.Context, loopID, userID uint) (bool, error)
}

type loopService struct {
	db *gorm.DB
}

// NewLoopService creates a membership register over the shared store.
func NewLoopService(db *gorm.DB) LoopService {
	return &loopService{db: db}
}

// Create inserts the loop, its creator's admin membership, the creator's
// reputation delta and the audit record as one atomic unit, so a partial
// failure never leaves a loop without members.
func (s *loopService) Create(ctx context.Context, creatorID uint, attrs LoopAttrs) (*models.Loop, error) {
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&models.Loop{}).
		Where("name = ? OR slug = ?", attrs.Name, attrs.Slug).
		Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		return nil, ErrDuplicateName
	}

	loop := models.Loop{
		Name:        attrs.Name,
		Slug:        attrs.Slug,
		Description: attrs.Description,
		Picture:     attrs.Picture,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&loop).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateName
			}
			return err
		}
		member := models.LoopMember{LoopID: loop.ID, UserID: creatorID, Role: models.RoleAdmin}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		if err := applyReputation(tx, creatorID, repCreateLoop); err != nil {
			return err
		}
		return logInteraction(tx, creatorID, models.ActionCreateLoop, nil)
	})
	if err != nil {
		return nil, err
	}
	return &loop, nil
}

// Edit updates loop attributes; only an admin of the loop may edit.
func (s *loopService) Edit(ctx context.Context, loopID, userID uint, edit LoopEdit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loop, err := s.loadLoop(tx, loopID)
		if err != nil {
			return err
		}
		if err := s.requireAdmin(tx, loopID, userID); err != nil {
			return err
		}
		if edit.Name != "" && edit.Name != loop.Name {
			var cnt int64
			if err := tx.Model(&models.Loop{}).
				Where("name = ? AND id <> ?", edit.Name, loopID).
				Count(&cnt).Error; err != nil {
				return err
			}
			if cnt > 0 {
				return ErrDuplicateName
			}
			loop.Name = edit.Name
		}
		if edit.Description != "" {
			loop.Description = edit.Description
		}
		if edit.Picture != "" {
			loop.Picture = edit.Picture
		}
		return tx.Save(loop).Error
	})
}

// Delete removes the loop, its memberships, and detaches its questions.
// Only an admin of the loop may delete it.
func (s *loopService) Delete(ctx context.Context, loopID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadLoop(tx, loopID); err != nil {
			return err
		}
		if err := s.requireAdmin(tx, loopID, userID); err != nil {
			return err
		}
		if err := tx.Model(&models.Question{}).
			Where("loop_id = ?", loopID).
			Update("loop_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("loop_id = ?", loopID).Delete(&models.LoopMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Loop{}, loopID).Error
	})
}

// Join adds the user as a member and grants the join reputation delta.
func (s *loopService) Join(ctx context.Context, loopID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadLoop(tx, loopID); err != nil {
			return err
		}
		var cnt int64
		if err := tx.Model(&models.LoopMember{}).
			Where("loop_id = ? AND user_id = ?", loopID, userID).
			Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrAlreadyMember
		}
		member := models.LoopMember{LoopID: loopID, UserID: userID, Role: models.RoleMember}
		if err := tx.Create(&member).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrAlreadyMember
			}
			return err
		}
		if err := applyReputation(tx, userID, repJoinLoop); err != nil {
			return err
		}
		return logInteraction(tx, userID, models.ActionJoinLoop, nil)
	})
}

// Leave removes the user's membership. An admin may only leave while
// another admin remains; leaving never touches reputation.
func (s *loopService) Leave(ctx context.Context, loopID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var membership models.LoopMember
		err := lockForUpdate(tx).
			Where("loop_id = ? AND user_id = ?", loopID, userID).
			First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		if err != nil {
			return err
		}

		if membership.Role == models.RoleAdmin {
			var admins []models.LoopMember
			if err := lockForUpdate(tx).
				Where("loop_id = ? AND role = ?", loopID, models.RoleAdmin).
				Find(&admins).Error; err != nil {
				return err
			}
			if len(admins) <= 1 {
				return ErrLastAdmin
			}
		}

		return tx.Delete(&membership).Error
	})
}

// IsMember reports whether the user holds a membership row in the loop.
func (s *loopService) IsMember(ctx context.Context, loopID, userID uint) (bool, error) {
	var cnt int64
	err := s.db.WithContext(ctx).Model(&models.LoopMember{}).
		Where("loop_id = ? AND user_id = ?", loopID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (s *loopService) loadLoop(tx *gorm.DB, loopID uint) (*models.Loop, error) {
	var loop models.Loop
	if err := tx.First(&loop, loopID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &loop, nil
}

func (s *loopService) requireAdmin(tx *gorm.DB, loopID, userID uint) error {
	var membership models.LoopMember
	err := tx.Where("loop_id = ? AND user_id = ?", loopID, userID).First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if membership.Role != models.RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

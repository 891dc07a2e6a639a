package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a forum member. Accounts are created either locally
// (bcrypt password) or on first login through an external identity
// provider, in which case Provider/ProviderID hold the external reference.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Name         string `gorm:"size:128" json:"name"`
	Email        string `gorm:"size:255" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	// Nullable so local accounts do not collide on the composite unique
	// index; only externally-created accounts carry a provider identity.
	Provider   *string        `gorm:"size:32;uniqueIndex:uniq_users_provider_identity" json:"provider,omitempty"`
	ProviderID *string        `gorm:"size:255;uniqueIndex:uniq_users_provider_identity" json:"provider_id,omitempty"`
	AvatarURL  string         `gorm:"size:512" json:"avatar_url"`
	Bio        string         `gorm:"size:512" json:"bio"`
	Location   string         `gorm:"size:128" json:"location"`
	Reputation int            `gorm:"default:0" json:"reputation"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	Questions  []Question     `gorm:"foreignKey:AuthorID" json:"-"`
	Answers    []Answer       `gorm:"foreignKey:AuthorID" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

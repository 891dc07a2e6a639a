package models

import "time"

// Membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Loop is a named community that questions can belong to.
type Loop struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"size:128;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"size:1024" json:"description"`
	Picture     string    `gorm:"size:512" json:"picture"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoopMember relates a user to a loop with a role. One row per
// (loop, user); a loop with members always keeps at least one admin.
type LoopMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	LoopID   uint      `gorm:"not null;uniqueIndex:uniq_loop_members_loop_user" json:"loop_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:uniq_loop_members_loop_user" json:"user_id"`
	Role     string    `gorm:"size:16;not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
	User     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
}

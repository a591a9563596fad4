package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role controls what a principal may do with a complaint.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
	// RoleSystem is the sentinel role the escalation scheduler acts under.
	// It never belongs to a stored user.
	RoleSystem Role = "system"
)

// Valid reports whether r is a role a stored user may hold.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// User is a principal known to the platform. Identity verification itself is
// owned by the external auth provider; this record only carries the opaque
// id, a display name, and the role.
type User struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:150" json:"name"`
	Role Role   `gorm:"size:20;not null;default:citizen" json:"role"`
}

// BeforeCreate is a GORM hook that generates a new UUID for the user
// if the ID has not been set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

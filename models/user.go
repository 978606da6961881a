package models

import (
	"time"
)

// Role defines the roles a user can hold
type Role string

const (
	RoleDiner      Role = "diner"
	RoleFranchisee Role = "franchisee"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleDiner, RoleFranchisee, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Name           string     `json:"name" gorm:"not null"`
	Email          string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordDigest string     `json:"-" gorm:"not null"`
	Roles          []UserRole `json:"roles" gorm:"foreignKey:UserID"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`
}

// UserRole is one role grant. Franchisee grants carry the franchise id in ObjectID.
type UserRole struct {
	ID       uint  `json:"-" gorm:"primaryKey"`
	UserID   uint  `json:"-" gorm:"index;not null"`
	Role     Role  `json:"role" gorm:"not null"`
	ObjectID *uint `json:"objectId,omitempty"`
}

// RoleSet returns the distinct roles held by the user
func (u *User) RoleSet() []Role {
	seen := map[Role]bool{}
	var roles []Role
	for _, r := range u.Roles {
		if !seen[r.Role] {
			roles = append(roles, r.Role)
			seen[r.Role] = true
		}
	}
	return roles
}

// HasRole reports whether the user holds role r
func (u *User) HasRole(r Role) bool {
	for _, ur := range u.Roles {
		if ur.Role == r {
			return true
		}
	}
	return false
}

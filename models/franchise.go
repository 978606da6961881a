package models

import "time"

type Franchise struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	Name      string           `json:"name" gorm:"not null;index"`
	Admins    []FranchiseAdmin `json:"admins" gorm:"foreignKey:FranchiseID"`
	Stores    []Store          `json:"stores" gorm:"foreignKey:FranchiseID"`
	CreatedAt time.Time        `json:"-"`
	UpdatedAt time.Time        `json:"-"`
}

// FranchiseAdmin references a franchise administrator by email. UserID and Name
// are resolved against the users table when the franchise is read, so an entry
// may name an email that has no account yet.
type FranchiseAdmin struct {
	ID          uint   `json:"-" gorm:"primaryKey"`
	FranchiseID uint   `json:"-" gorm:"index;not null"`
	Position    int    `json:"-" gorm:"not null"`
	Email       string `json:"email" gorm:"index;not null"`
	UserID      uint   `json:"id,omitempty" gorm:"-"`
	Name        string `json:"name,omitempty" gorm:"-"`
}

type Store struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FranchiseID uint      `json:"franchiseId" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// HasAdmin reports whether email appears in the franchise's admin list
func (f *Franchise) HasAdmin(email string) bool {
	if email == "" {
		return false
	}
	for _, a := range f.Admins {
		if a.Email == email {
			return true
		}
	}
	return false
}

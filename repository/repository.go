package repository

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when a user record would duplicate an email
	ErrEmailTaken = errors.New("email already registered")
)

// Repository persists users, franchises, stores, menu items and orders.
// Every method is a single atomic storage call; multi-row writes run in a transaction.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// maxOffset caps the row offset; pages past it are empty
const maxOffset = math.MaxInt32

// Page is an offset window over a listing
type Page struct {
	Number int
	Limit  int
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	if p.Number-1 > maxOffset/p.limit() {
		return maxOffset
	}
	return (p.Number - 1) * p.limit()
}

func (p Page) limit() int {
	if p.Limit <= 0 {
		return 10
	}
	return p.Limit
}

func wrap(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

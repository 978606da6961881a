package models

import "time"

type MenuItem struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Image       string    `json:"image"`
	Price       float64   `json:"price" gorm:"not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"-"`
}

// Order is immutable once created
type Order struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	DinerID     uint        `json:"dinerId" gorm:"index;not null"`
	FranchiseID uint        `json:"franchiseId" gorm:"not null"`
	StoreID     uint        `json:"storeId" gorm:"not null"`
	Total       float64     `json:"total"`
	Items       []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time   `json:"date"`
}

type OrderItem struct {
	ID          uint    `json:"-" gorm:"primaryKey"`
	OrderID     uint    `json:"-" gorm:"index;not null"`
	Position    int     `json:"-" gorm:"not null"`
	MenuID      uint    `json:"menuId" gorm:"not null"`
	Description string  `json:"description"`
	Price       float64 `json:"price" gorm:"not null"` // as submitted by the diner
}

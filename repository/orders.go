package repository

import (
	"context"

	"pizza-api/models"

	"gorm.io/gorm"
)

func (r *Repository) AddMenuItem(ctx context.Context, item *models.MenuItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return wrap("add menu item", err)
	}
	return nil
}

// Menu returns the whole catalog in insertion order
func (r *Repository) Menu(ctx context.Context) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	if err := r.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return nil, wrap("list menu", err)
	}
	return items, nil
}

// CreateOrder inserts the order with its items in submission order
func (r *Repository) CreateOrder(ctx context.Context, o *models.Order) error {
	for i := range o.Items {
		o.Items[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return wrap("create order", err)
	}
	return nil
}

// ListOrders returns one page of dinerID's orders, oldest first
func (r *Repository) ListOrders(ctx context.Context, dinerID uint, page Page) ([]models.Order, bool, error) {
	orders := []models.Order{}
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("diner_id = ?", dinerID).
		Order("id asc").
		Offset(page.offset()).
		Limit(page.limit() + 1).
		Find(&orders).Error
	if err != nil {
		return nil, false, wrap("list orders", err)
	}
	more := len(orders) > page.limit()
	if more {
		orders = orders[:page.limit()]
	}
	return orders, more, nil
}

package repository

import (
	"context"
	"strings"

	"pizza-api/models"

	"gorm.io/gorm"
)

func orderedAdmins(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

func orderedStores(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// CreateFranchise inserts the franchise and its admin list. Admin emails that
// already belong to an account get a franchisee role grant for this franchise.
func (r *Repository) CreateFranchise(ctx context.Context, f *models.Franchise) error {
	for i := range f.Admins {
		f.Admins[i].Position = i
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return err
		}
		users, err := usersByEmail(tx, adminEmails(f.Admins))
		if err != nil {
			return err
		}
		for _, u := range users {
			grant := models.UserRole{UserID: u.ID, Role: models.RoleFranchisee, ObjectID: &f.ID}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		resolveAdmins(f.Admins, users)
		return nil
	})
	if err != nil {
		return wrap("create franchise", err)
	}
	return nil
}

func (r *Repository) GetFranchise(ctx context.Context, id uint) (*models.Franchise, error) {
	var f models.Franchise
	err := r.db.WithContext(ctx).
		Preload("Admins", orderedAdmins).
		Preload("Stores", orderedStores).
		First(&f, id).Error
	if err != nil {
		return nil, wrap("get franchise", err)
	}
	if err := r.resolve(ctx, []*models.Franchise{&f}); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFranchise removes the franchise, its stores, its admin list and the
// franchisee grants that point at it
func (r *Repository) DeleteFranchise(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("franchise_id = ?", id).Delete(&models.Store{}).Error; err != nil {
			return err
		}
		if err := tx.Where("franchise_id = ?", id).Delete(&models.FranchiseAdmin{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role = ? AND object_id = ?", models.RoleFranchisee, id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Franchise{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return wrap("delete franchise", err)
	}
	return nil
}

// ListFranchises returns one page of franchises ordered by id, with nested
// stores. name is a pattern where * matches any run of characters; empty matches all.
// more reports whether a further page exists.
func (r *Repository) ListFranchises(ctx context.Context, page Page, name string) ([]models.Franchise, bool, error) {
	q := r.db.WithContext(ctx).
		Preload("Admins", orderedAdmins).
		Preload("Stores", orderedStores).
		Order("id asc").
		Offset(page.offset()).
		Limit(page.limit() + 1)
	if name != "" && name != "*" {
		q = q.Where("name LIKE ?", strings.ReplaceAll(name, "*", "%"))
	}
	var franchises []models.Franchise
	if err := q.Find(&franchises).Error; err != nil {
		return nil, false, wrap("list franchises", err)
	}
	more := len(franchises) > page.limit()
	if more {
		franchises = franchises[:page.limit()]
	}
	if err := r.resolveAll(ctx, franchises); err != nil {
		return nil, false, err
	}
	return franchises, more, nil
}

// FranchisesForAdmin returns the franchises whose admin list contains email
func (r *Repository) FranchisesForAdmin(ctx context.Context, email string) ([]models.Franchise, error) {
	var franchises []models.Franchise
	err := r.db.WithContext(ctx).
		Preload("Admins", orderedAdmins).
		Preload("Stores", orderedStores).
		Where("id IN (?)", r.db.Model(&models.FranchiseAdmin{}).Select("franchise_id").Where("email = ?", email)).
		Order("id asc").
		Find(&franchises).Error
	if err != nil {
		return nil, wrap("list user franchises", err)
	}
	if err := r.resolveAll(ctx, franchises); err != nil {
		return nil, err
	}
	return franchises, nil
}

func (r *Repository) CreateStore(ctx context.Context, s *models.Store) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Franchise{}, s.FranchiseID).Error; err != nil {
			return err
		}
		return tx.Create(s).Error
	})
	if err != nil {
		return wrap("create store", err)
	}
	return nil
}

// DeleteStore removes storeID only if it belongs to franchiseID
func (r *Repository) DeleteStore(ctx context.Context, franchiseID, storeID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND franchise_id = ?", storeID, franchiseID).
		Delete(&models.Store{})
	if res.Error != nil {
		return wrap("delete store", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("delete store", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *Repository) resolveAll(ctx context.Context, franchises []models.Franchise) error {
	ptrs := make([]*models.Franchise, len(franchises))
	for i := range franchises {
		ptrs[i] = &franchises[i]
	}
	return r.resolve(ctx, ptrs)
}

// resolve fills admin ids and names from the users table by email
func (r *Repository) resolve(ctx context.Context, franchises []*models.Franchise) error {
	var emails []string
	for _, f := range franchises {
		emails = append(emails, adminEmails(f.Admins)...)
	}
	users, err := usersByEmail(r.db.WithContext(ctx), emails)
	if err != nil {
		return wrap("resolve franchise admins", err)
	}
	for _, f := range franchises {
		resolveAdmins(f.Admins, users)
		if f.Admins == nil {
			f.Admins = []models.FranchiseAdmin{}
		}
		if f.Stores == nil {
			f.Stores = []models.Store{}
		}
	}
	return nil
}

func resolveAdmins(admins []models.FranchiseAdmin, users map[string]models.User) {
	for i := range admins {
		if u, ok := users[admins[i].Email]; ok {
			admins[i].UserID = u.ID
			admins[i].Name = u.Name
		}
	}
}

func adminEmails(admins []models.FranchiseAdmin) []string {
	emails := make([]string, 0, len(admins))
	for _, a := range admins {
		emails = append(emails, a.Email)
	}
	return emails
}

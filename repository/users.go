package repository

import (
	"context"
	"errors"

	"pizza-api/models"

	"gorm.io/gorm"
)

// UserUpdate holds the profile fields to change; nil fields are left as they are
type UserUpdate struct {
	Name           *string
	Email          *string
	PasswordDigest *string
}

// CreateUser inserts user together with its role grants. Email must be unused.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(tx, user.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, ErrEmailTaken) {
		return err
	}
	if err != nil {
		// a concurrent insert can still trip the unique index
		if taken, checkErr := emailTaken(r.db.WithContext(ctx), user.Email, 0); checkErr == nil && taken {
			return ErrEmailTaken
		}
		return wrap("create user", err)
	}
	return nil
}

func emailTaken(tx *gorm.DB, email string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrap("get user by email", err)
	}
	return &user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

// UpdateUser applies the non-nil fields of upd and returns the stored user
func (r *Repository) UpdateUser(ctx context.Context, id uint, upd UserUpdate) (*models.User, error) {
	changes := map[string]interface{}{}
	if upd.Name != nil {
		changes["name"] = *upd.Name
	}
	if upd.Email != nil {
		changes["email"] = *upd.Email
	}
	if upd.PasswordDigest != nil {
		changes["password_digest"] = *upd.PasswordDigest
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, id).Error; err != nil {
			return err
		}
		if upd.Email != nil {
			taken, err := emailTaken(tx, *upd.Email, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrEmailTaken
			}
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(&models.User{ID: id}).Updates(changes).Error
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil, err
	}
	if err != nil {
		return nil, wrap("update user", err)
	}
	return r.GetUserByID(ctx, id)
}

// DeleteUser removes the user and its role grants
func (r *Repository) DeleteUser(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return wrap("delete user", err)
	}
	return nil
}

// usersByEmail returns the existing users among emails, keyed by email
func usersByEmail(tx *gorm.DB, emails []string) (map[string]models.User, error) {
	found := map[string]models.User{}
	if len(emails) == 0 {
		return found, nil
	}
	var users []models.User
	if err := tx.Where("email IN ?", emails).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		found[u.Email] = u
	}
	return found, nil
}

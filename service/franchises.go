package service

import (
	"context"
	"errors"
	"strings"

	"pizza-api/auth"
	"pizza-api/logger"
	"pizza-api/metrics"
	"pizza-api/models"
	"pizza-api/policy"
	"pizza-api/repository"
)

type FranchiseStore interface {
	CreateFranchise(ctx context.Context, f *models.Franchise) error
	GetFranchise(ctx context.Context, id uint) (*models.Franchise, error)
	DeleteFranchise(ctx context.Context, id uint) error
	ListFranchises(ctx context.Context, page repository.Page, name string) ([]models.Franchise, bool, error)
	FranchisesForAdmin(ctx context.Context, email string) ([]models.Franchise, error)
	CreateStore(ctx context.Context, s *models.Store) error
	DeleteStore(ctx context.Context, franchiseID, storeID uint) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Franchises runs franchise and store operations behind the authorization policy
type Franchises struct {
	store   FranchiseStore
	metrics metrics.Recorder
}

func NewFranchises(store FranchiseStore, rec metrics.Recorder) *Franchises {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Franchises{store: store, metrics: rec}
}

type FranchiseInput struct {
	Name   string
	Admins []string // emails
}

type StoreInput struct {
	Name    string
	Address string
	Phone   string
}

// FranchisePage is one page of the franchise listing
type FranchisePage struct {
	Franchises []models.Franchise `json:"franchises"`
	Page       int                `json:"page"`
	More       bool               `json:"more"`
}

func (s *Franchises) CreateFranchise(ctx context.Context, actor auth.Identity, in FranchiseInput) (*models.Franchise, error) {
	if d := policy.Authorize(ActorOf(actor), policy.CreateFranchise, policy.Target{}); !d.Allowed {
		logger.FromContext(ctx).Warn("Franchise creation denied", "actor", actor.UserID)
		return nil, Forbidden(d.Reason)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ValidationError("franchise name is required")
	}
	f := &models.Franchise{Name: name, Admins: []models.FranchiseAdmin{}, Stores: []models.Store{}}
	for _, email := range in.Admins {
		if email = strings.TrimSpace(email); email != "" {
			f.Admins = append(f.Admins, models.FranchiseAdmin{Email: email})
		}
	}
	if err := s.store.CreateFranchise(ctx, f); err != nil {
		return nil, StorageError(err)
	}
	s.metrics.Inc(metrics.FranchisesCreated)
	logger.FromContext(ctx).Info("Franchise created", "franchise_id", f.ID, "name", f.Name, "admins", len(f.Admins))
	return f, nil
}

// DeleteFranchise removes the franchise and, with it, its stores
func (s *Franchises) DeleteFranchise(ctx context.Context, actor auth.Identity, id uint) error {
	if d := policy.Authorize(ActorOf(actor), policy.DeleteFranchise, policy.Target{}); !d.Allowed {
		logger.FromContext(ctx).Warn("Franchise deletion denied", "actor", actor.UserID, "franchise_id", id)
		return Forbidden(d.Reason)
	}
	if err := s.store.DeleteFranchise(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("franchise not found", err)
		}
		return StorageError(err)
	}
	s.metrics.Inc(metrics.FranchisesDeleted)
	logger.FromContext(ctx).Info("Franchise deleted", "franchise_id", id)
	return nil
}

func (s *Franchises) franchise(ctx context.Context, id uint) (*models.Franchise, error) {
	f, err := s.store.GetFranchise(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("franchise not found", err)
		}
		return nil, StorageError(err)
	}
	return f, nil
}

// AuthorizeStore checks action (CreateStore or DeleteStore) against the admin
// list of franchiseID. A missing franchise is NotFound.
func (s *Franchises) AuthorizeStore(ctx context.Context, actor auth.Identity, franchiseID uint, action policy.Action) error {
	f, err := s.franchise(ctx, franchiseID)
	if err != nil {
		return err
	}
	if err := Authorize(actor, action, policy.Target{Franchise: f}); err != nil {
		logger.FromContext(ctx).Warn("Store change denied", "actor", actor.UserID, "franchise_id", franchiseID, "action", action)
		return err
	}
	return nil
}

// CreateStore adds a store to franchiseID. Allowed for admins and for the
// franchise's own admins.
func (s *Franchises) CreateStore(ctx context.Context, actor auth.Identity, franchiseID uint, in StoreInput) (*models.Store, error) {
	if err := s.AuthorizeStore(ctx, actor, franchiseID, policy.CreateStore); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ValidationError("store name is required")
	}
	store := &models.Store{
		FranchiseID: franchiseID,
		Name:        strings.TrimSpace(in.Name),
		Address:     in.Address,
		Phone:       in.Phone,
	}
	if err := s.store.CreateStore(ctx, store); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("franchise not found", err)
		}
		return nil, StorageError(err)
	}
	s.metrics.Inc(metrics.StoresCreated)
	logger.FromContext(ctx).Info("Store created", "store_id", store.ID, "franchise_id", franchiseID)
	return store, nil
}

func (s *Franchises) DeleteStore(ctx context.Context, actor auth.Identity, franchiseID, storeID uint) error {
	if err := s.AuthorizeStore(ctx, actor, franchiseID, policy.DeleteStore); err != nil {
		return err
	}
	if err := s.store.DeleteStore(ctx, franchiseID, storeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("store not found", err)
		}
		return StorageError(err)
	}
	s.metrics.Inc(metrics.StoresDeleted)
	logger.FromContext(ctx).Info("Store deleted", "store_id", storeID, "franchise_id", franchiseID)
	return nil
}

// ListFranchises pages through every franchise. actor may be anonymous.
func (s *Franchises) ListFranchises(ctx context.Context, actor auth.Identity, page, limit int, name string) (*FranchisePage, error) {
	if d := policy.Authorize(ActorOf(actor), policy.ListFranchises, policy.Target{}); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}
	if page < 1 {
		page = 1
	}
	franchises, more, err := s.store.ListFranchises(ctx, repository.Page{Number: page, Limit: limit}, name)
	if err != nil {
		return nil, StorageError(err)
	}
	if franchises == nil {
		franchises = []models.Franchise{}
	}
	return &FranchisePage{Franchises: franchises, Page: page, More: more}, nil
}

// ListUserFranchises returns the franchises userID administers. Callers
// asking about someone else without the admin role get an empty list.
func (s *Franchises) ListUserFranchises(ctx context.Context, actor auth.Identity, userID uint) ([]models.Franchise, error) {
	none := []models.Franchise{}
	if d := policy.Authorize(ActorOf(actor), policy.ListUserFranchises, policy.Target{OwnerID: userID}); !d.Allowed {
		return none, nil
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return none, nil
		}
		return nil, StorageError(err)
	}
	franchises, err := s.store.FranchisesForAdmin(ctx, user.Email)
	if err != nil {
		return nil, StorageError(err)
	}
	if franchises == nil {
		return none, nil
	}
	return franchises, nil
}

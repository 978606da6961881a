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

// UserStore is the credential store
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	UpdateUser(ctx context.Context, id uint, upd repository.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type TokenLedger interface {
	Issue(user *models.User) (auth.Token, error)
	Validate(ctx context.Context, value string) (auth.Identity, error)
	Revoke(ctx context.Context, value string) error
}

// Sessions handles registration, login, logout and profile changes
type Sessions struct {
	users   UserStore
	hasher  auth.Hasher
	ledger  TokenLedger
	metrics metrics.Recorder
}

func NewSessions(users UserStore, hasher auth.Hasher, ledger TokenLedger, rec metrics.Recorder) *Sessions {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Sessions{users: users, hasher: hasher, ledger: ledger, metrics: rec}
}

// ActorOf converts a token identity into a policy actor
func ActorOf(id auth.Identity) policy.Actor {
	return policy.Actor{UserID: id.UserID, Email: id.Email, Roles: id.Roles}
}

// Authorize applies the policy and returns a Forbidden error carrying the
// rule's denial message when actor may not perform action
func Authorize(actor auth.Identity, action policy.Action, target policy.Target) error {
	if d := policy.Authorize(ActorOf(actor), action, target); !d.Allowed {
		return Forbidden(d.Reason)
	}
	return nil
}

// Register creates a diner account and signs it in
func (s *Sessions) Register(ctx context.Context, name, email, password string) (*models.User, auth.Token, error) {
	if name == "" || email == "" || password == "" {
		return nil, auth.Token{}, ValidationError("name, email, and password are required")
	}
	digest, err := s.hash(password)
	if err != nil {
		return nil, auth.Token{}, err
	}
	user := &models.User{
		Name:           name,
		Email:          email,
		PasswordDigest: digest,
		Roles:          []models.UserRole{{Role: models.RoleDiner}},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, auth.Token{}, ValidationError("email already registered")
		}
		return nil, auth.Token{}, StorageError(err)
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, auth.Token{}, err
	}
	s.metrics.Inc(metrics.UsersRegistered)
	logger.FromContext(ctx).Info("User registered", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// Login checks credentials and issues a fresh token. Other tokens for the
// same user stay valid. An unknown email and a wrong password fail the same way.
func (s *Sessions) Login(ctx context.Context, email, password string) (*models.User, auth.Token, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Inc(metrics.AuthFailed)
			return nil, auth.Token{}, UnknownUser(nil)
		}
		return nil, auth.Token{}, StorageError(err)
	}
	if !s.hasher.Verify(password, user.PasswordDigest) {
		s.metrics.Inc(metrics.AuthFailed)
		return nil, auth.Token{}, UnknownUser(nil)
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, auth.Token{}, err
	}
	s.metrics.Inc(metrics.UsersLoggedIn)
	logger.FromContext(ctx).Debug("User logged in", "user_id", user.ID)
	return user, token, nil
}

func (s *Sessions) hash(password string) (string, error) {
	digest, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", ValidationError("password is too long")
	}
	if err != nil {
		return "", &Error{Kind: KindUnknown, Message: "internal server error", Err: err}
	}
	return digest, nil
}

func (s *Sessions) issue(user *models.User) (auth.Token, error) {
	token, err := s.ledger.Issue(user)
	if err != nil {
		return auth.Token{}, &Error{Kind: KindUnknown, Message: "internal server error", Err: err}
	}
	s.metrics.Inc(metrics.AuthTokensCreated)
	return token, nil
}

// Authenticate resolves a bearer token to its identity
func (s *Sessions) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	if token == "" {
		s.metrics.Inc(metrics.AuthFailed)
		return auth.Identity{}, Unauthenticated(auth.ErrInvalidToken)
	}
	id, err := s.ledger.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRevoked) {
			s.metrics.Inc(metrics.AuthFailed)
			return auth.Identity{}, Unauthenticated(err)
		}
		return auth.Identity{}, StorageError(err)
	}
	return id, nil
}

// Logout revokes token. The token must still be valid.
func (s *Sessions) Logout(ctx context.Context, token string) error {
	id, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.ledger.Revoke(ctx, token); err != nil {
		return StorageError(err)
	}
	s.metrics.Inc(metrics.UsersLoggedOut)
	logger.FromContext(ctx).Debug("User logged out", "user_id", id.UserID)
	return nil
}

// ProfileUpdate holds the fields to change; empty strings are left alone
type ProfileUpdate struct {
	Name     string
	Email    string
	Password string
}

// UpdateProfile changes the caller's own account. Existing tokens keep the
// identity they were issued with until the next login.
func (s *Sessions) UpdateProfile(ctx context.Context, actor auth.Identity, targetID uint, fields ProfileUpdate) (*models.User, error) {
	if d := policy.Authorize(ActorOf(actor), policy.UpdateUser, policy.Target{OwnerID: targetID}); !d.Allowed {
		logger.FromContext(ctx).Warn("Profile update denied", "actor", actor.UserID, "target", targetID)
		return nil, Forbidden(d.Reason)
	}
	var upd repository.UserUpdate
	if name := strings.TrimSpace(fields.Name); name != "" {
		upd.Name = &name
	}
	if email := strings.TrimSpace(fields.Email); email != "" {
		upd.Email = &email
	}
	if fields.Password != "" {
		digest, err := s.hash(fields.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordDigest = &digest
	}
	user, err := s.users.UpdateUser(ctx, targetID, upd)
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, ValidationError("email already registered")
	case errors.Is(err, repository.ErrNotFound):
		return nil, NotFound("user not found", err)
	case err != nil:
		return nil, StorageError(err)
	}
	logger.FromContext(ctx).Info("User updated", "user_id", user.ID)
	return user, nil
}

// DeleteAccount removes an account. Admins may delete any account.
func (s *Sessions) DeleteAccount(ctx context.Context, actor auth.Identity, targetID uint) error {
	if d := policy.Authorize(ActorOf(actor), policy.DeleteUser, policy.Target{OwnerID: targetID}); !d.Allowed {
		return Forbidden(d.Reason)
	}
	if err := s.users.DeleteUser(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("user not found", err)
		}
		return StorageError(err)
	}
	logger.FromContext(ctx).Info("User deleted", "user_id", targetID, "by", actor.UserID)
	return nil
}

// Me returns the stored record of the authenticated user
func (s *Sessions) Me(ctx context.Context, actor auth.Identity) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("user not found", err)
		}
		return nil, StorageError(err)
	}
	return user, nil
}

// EnsureAdmin creates an admin account with the given credentials unless the
// email is already registered
func (s *Sessions) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	if existing, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, StorageError(err)
	}
	if password == "" {
		return nil, ValidationError("admin password is required")
	}
	digest, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:           name,
		Email:          email,
		PasswordDigest: digest,
		Roles:          []models.UserRole{{Role: models.RoleAdmin}},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, StorageError(err)
	}
	logger.FromContext(ctx).Info("Admin account created", "user_id", user.ID, "email", email)
	return user, nil
}

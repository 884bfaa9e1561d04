package services

import (
	"context"
	"strings"

	"github.com/readshelf/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// ProfileUpdate carries the fields of a profile update request. Empty
// fields keep the stored value. NewPasswordHash is set only when the
// caller supplied a new plaintext password, so an unchanged password is
// never re-hashed.
type ProfileUpdate struct {
	Name            string
	Email           string
	NewPasswordHash string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

// UpdateProfile merges the supplied fields onto the stored user. Omitted
// name and email fall back to their existing values; the password hash is
// replaced only when the update carries a fresh one.
func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if name := strings.TrimSpace(update.Name); name != "" {
		user.Name = name
	}
	if email := strings.TrimSpace(update.Email); email != "" {
		user.Email = email
	}
	if update.NewPasswordHash != "" {
		user.PasswordHash = update.NewPasswordHash
	}

	return s.repo.Update(ctx, user)
}

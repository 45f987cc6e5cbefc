package auth

import (
	"context"
	"errors"
	"fmt"

	"PlannerEdu/internal/config"
	"PlannerEdu/pkg/jsonfile"
)

// UserRepository reads users.json. Every call re-reads the file.
type UserRepository struct {
	path string
}

func NewUserRepository(cfg *config.AppConfig) *UserRepository {
	return &UserRepository{path: cfg.DataFile("users.json")}
}

func (r *UserRepository) load() ([]User, error) {
	var f usersFile
	if err := jsonfile.Read(r.path, &f); err != nil {
		if errors.Is(err, jsonfile.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return f.Users, nil
}

// FindByID returns the user with the given id, or nil when there is none.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

// LookupEmail resolves a user's email address. ok is false when the user is
// unknown or has no address on file.
func (r *UserRepository) LookupEmail(ctx context.Context, userID string) (string, bool, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if user == nil || user.Email == "" {
		return "", false, nil
	}
	return user.Email, true, nil
}

package service

import (
	"context"
	"errors"

	"github.com/conychips/auth/internal/auth/store"
)

type UserService struct {
	Store store.Store
}

// Profile returns the user with roles and permissions resolved.
func (s *UserService) Profile(ctx context.Context, userID string) (UserView, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UserView{}, newError(ErrNotFound.Code, "user not found")
		}
		return UserView{}, err
	}
	return newUserView(u), nil
}

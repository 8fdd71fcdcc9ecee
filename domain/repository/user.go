package repository

import (
	"context"

	"social-ops/domain/model"
)

// IUser defines user persistence operations.
type IUser interface {
	GetById(ctx context.Context, id int) (model.User, error)
	GetByUserName(ctx context.Context, userName string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) error
}

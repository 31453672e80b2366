// Package users declares the account storage contract of the notes server
// and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in ID and CreatedAt. A taken username
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// UpdatePassword replaces the stored hash. An unknown id yields
	// common.ErrorNotFound.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

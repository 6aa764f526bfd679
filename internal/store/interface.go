package store

import (
	"context"

	"cloudsync/internal/models"
)

// FileStore is the metadata persistence surface for uploaded files.
type FileStore interface {
	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id int64) (*models.File, error)
	GetFileByHash(ctx context.Context, hash string) (*models.File, error)
	ListFiles(ctx context.Context) ([]models.File, error)
	DeleteFile(ctx context.Context, id int64) (bool, error)
	StorageTotals(ctx context.Context) (models.StorageTotals, error)
}

// UserStore persists provisioned accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

var (
	_ FileStore = (*Store)(nil)
	_ UserStore = (*Store)(nil)
)

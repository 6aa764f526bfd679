package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloudsync/internal/models"
)

const userColumns = "id, username, email, hashed_password, created_at"

// ErrUserExists reports a username or email collision.
var ErrUserExists = errors.New("user already exists")

// CreateUser inserts one user row and sets user.ID.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(user.HashedPassword) == "" {
		return fmt.Errorf("password hash is required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, hashed_password, created_at)
		VALUES (?, ?, ?, ?)
	`, user.Username, nullIfEmpty(user.Email), user.HashedPassword, formatTime(user.CreatedAt))
	if err != nil {
		if isUniqueConstraint(err) {
			return fmt.Errorf("%w: %v", ErrUserExists, err)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByUsername returns one user, or nil when absent.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`, username)
	return scanUser(row)
}

// ListUsers returns all users sorted by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(scanner interface {
	Scan(dest ...any) error
}) (*models.User, error) {
	user := models.User{}
	var username, email, hashedPassword, createdAt sql.NullString

	err := scanner.Scan(&user.ID, &username, &email, &hashedPassword, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	user.Username = username.String
	user.Email = email.String
	user.HashedPassword = hashedPassword.String
	if createdAt.Valid {
		parsed, err := parseTime(createdAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		user.CreatedAt = parsed
	}
	return &user, nil
}

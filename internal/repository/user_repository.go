package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/streamlinehq/notify-api/internal/models"
)

// UserRepository is the collaborator lookup used for email personalization
// and authorization checks. User management itself lives elsewhere.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT id, email, first_name, last_name, is_active, roles, created_at
		FROM users
		WHERE id = $1`

	var (
		user  models.User
		roles pq.StringArray
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.IsActive,
		&roles,
		&user.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}

	user.Roles = toUserRoleSlice(roles)
	for _, role := range user.Roles {
		if !models.IsValidRole(role) {
			return models.User{}, errors.New("user has invalid roles")
		}
	}

	return user, nil
}

func toUserRoleSlice(roles []string) []models.UserRole {
	result := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		result = append(result, models.UserRole(role))
	}
	return result
}

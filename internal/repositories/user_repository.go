package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"watchparty-service/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	EnsureUser(ctx context.Context, user models.User) error
	CreateUser(ctx context.Context, user models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	SearchUser(ctx context.Context, id string) (models.Profile, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// EnsureUser inserts the user unless a row with the same id already exists.
// Calling it again for a known id is a no-op.
func (r *UserRepo) EnsureUser(ctx context.Context, user models.User) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, user.ID); err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.CreateUser(ctx, user)
}

// CreateUser inserts a new user row.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, profile_pic) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Name, user.Email, user.ProfilePic)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// GetUserByEmail fetches a user by email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, name, email, profile_pic FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// SearchUser returns the public profile for an exact id match.
func (r *UserRepo) SearchUser(ctx context.Context, id string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT id, name, profile_pic FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrUserNotFound
	}
	return profile, err
}

// isUniqueViolation reports whether err is the Postgres unique_violation code.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

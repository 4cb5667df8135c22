package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"watchparty-service/internal/models"
)

var ErrFriendshipExists = errors.New("friendship already exists")

// FriendshipRepository abstracts friendship persistence.
type FriendshipRepository interface {
	CreateRequest(ctx context.Context, senderID, receiverID string) error
	ListPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error)
	AcceptRequest(ctx context.Context, senderID, receiverID string) error
	RejectRequest(ctx context.Context, senderID, receiverID string) error
	ListFriends(ctx context.Context, userID string) ([]models.Profile, error)
}

// FriendshipRepo is a sqlx implementation of FriendshipRepository.
type FriendshipRepo struct {
	db *sqlx.DB
}

// NewFriendshipRepo constructs a FriendshipRepo.
func NewFriendshipRepo(db *sqlx.DB) *FriendshipRepo {
	return &FriendshipRepo{db: db}
}

// canonicalPair orders two user ids so each unordered pair maps to one row.
func canonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// CreateRequest inserts a pending friendship for the pair. The existence check
// and the insert are not wrapped in a transaction; the composite primary key
// catches the losing side of a concurrent insert and it is reported the same
// way as an explicit duplicate.
func (r *FriendshipRepo) CreateRequest(ctx context.Context, senderID, receiverID string) error {
	user1, user2 := canonicalPair(senderID, receiverID)

	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user1_id=$1 AND user2_id=$2)`, user1, user2); err != nil {
		return err
	}
	if exists {
		return ErrFriendshipExists
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friendships (user1_id, user2_id, status, requester_id) VALUES ($1, $2, $3, $4)`,
		user1, user2, models.StatusPending, senderID)
	if isUniqueViolation(err) {
		return ErrFriendshipExists
	}
	return err
}

// ListPendingRequests returns pending requests addressed to the user, with the
// requester's display info. Requests the user sent are excluded.
func (r *FriendshipRepo) ListPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	query := `SELECT f.requester_id AS sender_id, u.name AS sender_name, u.profile_pic AS sender_pic
        FROM friendships f
        JOIN users u ON u.id = f.requester_id
        WHERE (f.user1_id=$1 OR f.user2_id=$1) AND f.requester_id <> $1 AND f.status=$2`
	requests := []models.FriendRequest{}
	err := r.db.SelectContext(ctx, &requests, query, userID, models.StatusPending)
	return requests, err
}

// AcceptRequest marks the pair accepted. Updating an absent pair matches zero
// rows and is not an error.
func (r *FriendshipRepo) AcceptRequest(ctx context.Context, senderID, receiverID string) error {
	user1, user2 := canonicalPair(senderID, receiverID)
	_, err := r.db.ExecContext(ctx,
		`UPDATE friendships SET status=$1 WHERE user1_id=$2 AND user2_id=$3`,
		models.StatusAccepted, user1, user2)
	return err
}

// RejectRequest deletes the pair's row unconditionally, whatever its status.
func (r *FriendshipRepo) RejectRequest(ctx context.Context, senderID, receiverID string) error {
	user1, user2 := canonicalPair(senderID, receiverID)
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM friendships WHERE user1_id=$1 AND user2_id=$2`, user1, user2)
	return err
}

// ListFriends returns the other party of every accepted pair the user is in.
func (r *FriendshipRepo) ListFriends(ctx context.Context, userID string) ([]models.Profile, error) {
	query := `SELECT u.id, u.name, u.profile_pic
        FROM friendships f
        JOIN users u ON u.id = CASE WHEN f.user1_id=$1 THEN f.user2_id ELSE f.user1_id END
        WHERE (f.user1_id=$1 OR f.user2_id=$1) AND f.status=$2`
	friends := []models.Profile{}
	err := r.db.SelectContext(ctx, &friends, query, userID, models.StatusAccepted)
	return friends, err
}

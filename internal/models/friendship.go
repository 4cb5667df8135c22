package models

import "time"

// Friendship statuses. Rejection deletes the row, so no terminal status exists.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Friendship is one canonical row per unordered user pair: User1ID sorts
// before User2ID. RequesterID records which side sent the request, since
// canonical ordering erases direction.
type Friendship struct {
	User1ID     string    `db:"user1_id" json:"user1Id"`
	User2ID     string    `db:"user2_id" json:"user2Id"`
	Status      string    `db:"status" json:"status"`
	RequesterID string    `db:"requester_id" json:"requesterId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// FriendRequest is a pending request as seen by its receiver.
type FriendRequest struct {
	SenderID   string  `db:"sender_id" json:"senderId"`
	SenderName *string `db:"sender_name" json:"senderName"`
	SenderPic  *string `db:"sender_pic" json:"senderPic"`
}

package repositories

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPairOrdersLexicographically(t *testing.T) {
	cases := []struct {
		a, b         string
		want1, want2 string
	}{
		{"alice", "bob", "alice", "bob"},
		{"bob", "alice", "alice", "bob"},
		{"manual-9", "manual-1", "manual-1", "manual-9"},
		{"same", "same", "same", "same"},
	}

	for _, tc := range cases {
		got1, got2 := canonicalPair(tc.a, tc.b)
		if got1 != tc.want1 || got2 != tc.want2 {
			t.Fatalf("canonicalPair(%q, %q) = (%q, %q), want (%q, %q)", tc.a, tc.b, got1, got2, tc.want1, tc.want2)
		}
	}
}

func TestCanonicalPairIsSymmetric(t *testing.T) {
	a1, a2 := canonicalPair("u1", "u2")
	b1, b2 := canonicalPair("u2", "u1")
	if a1 != b1 || a2 != b2 {
		t.Fatalf("expected both argument orders to map to the same pair")
	}
}

// newTestDB runs the repository queries against in-memory SQLite, which
// accepts the same $N placeholders as Postgres.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE users (
            id TEXT PRIMARY KEY,
            name TEXT,
            email TEXT UNIQUE NOT NULL,
            profile_pic TEXT
        );`,
		`CREATE TABLE friendships (
            user1_id TEXT NOT NULL,
            user2_id TEXT NOT NULL,
            status TEXT NOT NULL,
            requester_id TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (user1_id, user2_id)
        );`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func seedUser(t *testing.T, db *sqlx.DB, id, name string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`, id, name, id+"@x.com")
	require.NoError(t, err)
}

func TestListPendingRequestsOnlyForReceiver(t *testing.T) {
	db := newTestDB(t)
	repo := NewFriendshipRepo(db)
	ctx := context.Background()

	seedUser(t, db, "amy", "Amy")
	seedUser(t, db, "zed", "Zed")

	// zed sorts after amy, so the canonical row stores the sender in the
	// second position; only the requester column can tell direction.
	require.NoError(t, repo.CreateRequest(ctx, "zed", "amy"))

	forReceiver, err := repo.ListPendingRequests(ctx, "amy")
	require.NoError(t, err)
	require.Len(t, forReceiver, 1)
	require.Equal(t, "zed", forReceiver[0].SenderID)
	require.NotNil(t, forReceiver[0].SenderName)
	require.Equal(t, "Zed", *forReceiver[0].SenderName)

	forSender, err := repo.ListPendingRequests(ctx, "zed")
	require.NoError(t, err)
	require.Empty(t, forSender)
}

func TestCreateRequestDuplicateEitherDirection(t *testing.T) {
	db := newTestDB(t)
	repo := NewFriendshipRepo(db)
	ctx := context.Background()

	seedUser(t, db, "alice", "Alice")
	seedUser(t, db, "bob", "Bob")

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))
	require.ErrorIs(t, repo.CreateRequest(ctx, "alice", "bob"), ErrFriendshipExists)
	require.ErrorIs(t, repo.CreateRequest(ctx, "bob", "alice"), ErrFriendshipExists)
}

func TestAcceptedPairListedForBothSides(t *testing.T) {
	db := newTestDB(t)
	repo := NewFriendshipRepo(db)
	ctx := context.Background()

	seedUser(t, db, "alice", "Alice")
	seedUser(t, db, "bob", "Bob")

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))
	require.NoError(t, repo.AcceptRequest(ctx, "alice", "bob"))

	friendsOfAlice, err := repo.ListFriends(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, friendsOfAlice, 1)
	require.Equal(t, "bob", friendsOfAlice[0].ID)

	friendsOfBob, err := repo.ListFriends(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, friendsOfBob, 1)
	require.Equal(t, "alice", friendsOfBob[0].ID)

	// Accepted pairs are no longer pending for anyone.
	pending, err := repo.ListPendingRequests(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRejectClearsPairForReuse(t *testing.T) {
	db := newTestDB(t)
	repo := NewFriendshipRepo(db)
	ctx := context.Background()

	seedUser(t, db, "alice", "Alice")
	seedUser(t, db, "bob", "Bob")

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))
	require.NoError(t, repo.RejectRequest(ctx, "bob", "alice"))

	friends, err := repo.ListFriends(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, friends)

	// A fresh request succeeds as if there were no prior history.
	require.NoError(t, repo.CreateRequest(ctx, "bob", "alice"))

	pending, err := repo.ListPendingRequests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "bob", pending[0].SenderID)
}

func TestAcceptAbsentPairIsNoOp(t *testing.T) {
	db := newTestDB(t)
	repo := NewFriendshipRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.AcceptRequest(ctx, "alice", "bob"))

	friends, err := repo.ListFriends(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, friends)
}

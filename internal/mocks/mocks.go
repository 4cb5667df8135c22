package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"watchparty-service/internal/models"
	"watchparty-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) EnsureUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) SearchUser(ctx context.Context, id string) (models.Profile, error) {
	args := m.Called(ctx, id)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

type FriendshipRepositoryMock struct {
	mock.Mock
}

func (m *FriendshipRepositoryMock) CreateRequest(ctx context.Context, senderID, receiverID string) error {
	args := m.Called(ctx, senderID, receiverID)
	return args.Error(0)
}

func (m *FriendshipRepositoryMock) ListPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	args := m.Called(ctx, userID)
	var requests []models.FriendRequest
	if val := args.Get(0); val != nil {
		requests = val.([]models.FriendRequest)
	}
	return requests, args.Error(1)
}

func (m *FriendshipRepositoryMock) AcceptRequest(ctx context.Context, senderID, receiverID string) error {
	args := m.Called(ctx, senderID, receiverID)
	return args.Error(0)
}

func (m *FriendshipRepositoryMock) RejectRequest(ctx context.Context, senderID, receiverID string) error {
	args := m.Called(ctx, senderID, receiverID)
	return args.Error(0)
}

func (m *FriendshipRepositoryMock) ListFriends(ctx context.Context, userID string) ([]models.Profile, error) {
	args := m.Called(ctx, userID)
	var friends []models.Profile
	if val := args.Get(0); val != nil {
		friends = val.([]models.Profile)
	}
	return friends, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.FriendshipRepository = (*FriendshipRepositoryMock)(nil)

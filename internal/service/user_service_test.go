package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"accountd/internal/model"
)

func TestUserService_ListUsers(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("List", mock.Anything).Return([]model.User{
		{ID: 1, Username: "alice", Email: "alice@x.com"},
		{ID: 2, Username: "bob", Email: "bob@x.com"},
	}, nil)

	svc := NewUserService(mockRepo, nil)
	users, err := svc.ListUsers(context.Background())
	assert.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "alice@x.com", users[0].Email)

	mockRepo.AssertExpectations(t)
}

func TestUserService_ListUsersError(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("List", mock.Anything).Return(nil, assert.AnError)

	svc := NewUserService(mockRepo, nil)
	users, err := svc.ListUsers(context.Background())
	assert.Error(t, err)
	assert.Nil(t, users)
}

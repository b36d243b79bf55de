package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"accountd/internal/auth"
	apperrors "accountd/internal/errors"
	"accountd/internal/model"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDAndToken(ctx context.Context, id uint, token string) (*model.User, error) {
	args := m.Called(ctx, id, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) AppendToken(ctx context.Context, userID uint, token string, issuedAt time.Time) error {
	args := m.Called(ctx, userID, token, issuedAt)
	return args.Error(0)
}

func (m *MockUserRepository) RemoveToken(ctx context.Context, userID uint, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockUserRepository) ReplacePasswordHash(ctx context.Context, userID uint, hash string) error {
	args := m.Called(ctx, userID, hash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateByEmail(ctx context.Context, email string, patch map[string]interface{}) (*model.User, error) {
	args := m.Called(ctx, email, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockMailer is a mock implementation of mail.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

func newTestService(repo *MockUserRepository, mailer *MockMailer) AuthService {
	return NewAuthService(repo, auth.NewPasswordHasher(), auth.NewJWTService("test-secret"), mailer, nil, nil)
}

func TestAuthService_Signup(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
		wantValidaton bool
	}{
		{
			name:     "successful signup",
			username: "alice",
			email:    "alice@x.com",
			password: "password1",
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:          "missing fields",
			username:      "",
			email:         "alice@x.com",
			password:      "password1",
			setupMock:     func(m *MockUserRepository) {},
			wantValidaton: true,
		},
		{
			name:          "invalid email",
			username:      "alice",
			email:         "not-an-email",
			password:      "password1",
			setupMock:     func(m *MockUserRepository) {},
			wantValidaton: true,
		},
		{
			name:          "short password",
			username:      "alice",
			email:         "alice@x.com",
			password:      "short",
			setupMock:     func(m *MockUserRepository) {},
			wantValidaton: true,
		},
		{
			name:     "email already registered",
			username: "alice",
			email:    "alice@x.com",
			password: "password1",
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(apperrors.ErrEmailTaken)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := newTestService(mockRepo, new(MockMailer))
			user, err := svc.Signup(context.Background(), tt.username, tt.email, tt.password)

			switch {
			case tt.wantValidaton:
				assert.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				assert.Nil(t, user)
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			default:
				assert.NoError(t, err)
				assert.Equal(t, tt.email, user.Email)
				assert.Equal(t, tt.username, user.Username)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.password, user.PasswordHash)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hasher := auth.NewPasswordHasher()
	storedHash, err := hasher.Hash("password1")
	assert.NoError(t, err)

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "alice@x.com",
			password: "password1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@x.com").Return(&model.User{
					ID:           1,
					Email:        "alice@x.com",
					PasswordHash: storedHash,
				}, nil)
				m.On("AppendToken", mock.Anything, uint(1), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
			},
		},
		{
			name:     "user not found",
			email:    "ghost@x.com",
			password: "password1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrUserNotFound,
		},
		{
			name:     "wrong password",
			email:    "alice@x.com",
			password: "password2",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@x.com").Return(&model.User{
					ID:           1,
					Email:        "alice@x.com",
					PasswordHash: storedHash,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := newTestService(mockRepo, new(MockMailer))
			token, user, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, tt.email, user.Email)

				// The issued token resolves back to the same identity.
				claims, err := auth.NewJWTService("test-secret").Verify(token)
				assert.NoError(t, err)
				assert.Equal(t, user.ID, claims.UserID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	token, err := jwtService.Issue(1)
	assert.NoError(t, err)

	t.Run("revokes the token server-side", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("RemoveToken", mock.Anything, uint(1), token).Return(nil)

		svc := newTestService(mockRepo, new(MockMailer))
		assert.NoError(t, svc.Logout(context.Background(), token))
		mockRepo.AssertExpectations(t)
	})

	t.Run("unverifiable token is not an error", func(t *testing.T) {
		mockRepo := new(MockUserRepository)

		svc := newTestService(mockRepo, new(MockMailer))
		assert.NoError(t, svc.Logout(context.Background(), "garbage"))
		mockRepo.AssertNotCalled(t, "RemoveToken", mock.Anything, mock.Anything, mock.Anything)
	})
}

var mailedPasswordPattern = regexp.MustCompile(`<strong>(.+?)</strong>`)

func TestAuthService_ForgotPassword(t *testing.T) {
	hasher := auth.NewPasswordHasher()

	t.Run("rotates password and mails it", func(t *testing.T) {
		var storedHash, mailedBody string

		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "alice@x.com").Return(&model.User{ID: 1, Email: "alice@x.com"}, nil)
		mockRepo.On("ReplacePasswordHash", mock.Anything, uint(1), mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(nil)

		mockMailer := new(MockMailer)
		mockMailer.On("Send", mock.Anything, "alice@x.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { mailedBody = args.String(3) }).
			Return(nil)

		svc := newTestService(mockRepo, mockMailer)
		assert.NoError(t, svc.ForgotPassword(context.Background(), "alice@x.com"))

		match := mailedPasswordPattern.FindStringSubmatch(mailedBody)
		assert.Len(t, match, 2)
		assert.Len(t, match[1], tempPasswordLength)

		// The mailed password is the one whose hash was persisted.
		ok, err := hasher.Verify(match[1], storedHash)
		assert.NoError(t, err)
		assert.True(t, ok)

		mockRepo.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("second reset invalidates the first password", func(t *testing.T) {
		var hashes, bodies []string

		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "alice@x.com").Return(&model.User{ID: 1, Email: "alice@x.com"}, nil)
		mockRepo.On("ReplacePasswordHash", mock.Anything, uint(1), mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { hashes = append(hashes, args.String(2)) }).
			Return(nil)

		mockMailer := new(MockMailer)
		mockMailer.On("Send", mock.Anything, "alice@x.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { bodies = append(bodies, args.String(3)) }).
			Return(nil)

		svc := newTestService(mockRepo, mockMailer)
		assert.NoError(t, svc.ForgotPassword(context.Background(), "alice@x.com"))
		assert.NoError(t, svc.ForgotPassword(context.Background(), "alice@x.com"))
		assert.Len(t, hashes, 2)
		assert.Len(t, bodies, 2)

		firstPassword := mailedPasswordPattern.FindStringSubmatch(bodies[0])[1]
		ok, err := hasher.Verify(firstPassword, hashes[1])
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, gorm.ErrRecordNotFound)

		svc := newTestService(mockRepo, new(MockMailer))
		err := svc.ForgotPassword(context.Background(), "ghost@x.com")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("delivery failure after the hash was replaced", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "alice@x.com").Return(&model.User{ID: 1, Email: "alice@x.com"}, nil)
		mockRepo.On("ReplacePasswordHash", mock.Anything, uint(1), mock.AnythingOfType("string")).Return(nil)

		mockMailer := new(MockMailer)
		mockMailer.On("Send", mock.Anything, "alice@x.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
			Return(assert.AnError)

		svc := newTestService(mockRepo, mockMailer)
		err := svc.ForgotPassword(context.Background(), "alice@x.com")
		assert.ErrorIs(t, err, apperrors.ErrMailDelivery)
		mockRepo.AssertCalled(t, "ReplacePasswordHash", mock.Anything, uint(1), mock.AnythingOfType("string"))
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	hasher := auth.NewPasswordHasher()

	t.Run("password is stored hashed", func(t *testing.T) {
		var patch map[string]interface{}

		mockRepo := new(MockUserRepository)
		mockRepo.On("UpdateByEmail", mock.Anything, "alice@x.com", mock.AnythingOfType("map[string]interface {}")).
			Run(func(args mock.Arguments) { patch = args.Get(2).(map[string]interface{}) }).
			Return(&model.User{ID: 1, Email: "alice@x.com", Username: "alice"}, nil)

		svc := newTestService(mockRepo, new(MockMailer))
		user, err := svc.UpdateProfile(context.Background(), "alice@x.com", "", "password2")
		assert.NoError(t, err)
		assert.NotNil(t, user)

		stored, ok := patch["password_hash"].(string)
		assert.True(t, ok)
		assert.NotEqual(t, "password2", stored)

		match, err := hasher.Verify("password2", stored)
		assert.NoError(t, err)
		assert.True(t, match)
	})

	t.Run("requires at least one field", func(t *testing.T) {
		svc := newTestService(new(MockUserRepository), new(MockMailer))
		_, err := svc.UpdateProfile(context.Background(), "alice@x.com", "", "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("short password", func(t *testing.T) {
		svc := newTestService(new(MockUserRepository), new(MockMailer))
		_, err := svc.UpdateProfile(context.Background(), "alice@x.com", "", "short")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("UpdateByEmail", mock.Anything, "ghost@x.com", mock.AnythingOfType("map[string]interface {}")).
			Return(nil, gorm.ErrRecordNotFound)

		svc := newTestService(mockRepo, new(MockMailer))
		_, err := svc.UpdateProfile(context.Background(), "ghost@x.com", "ghost", "")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"gorm.io/gorm"

	"accountd/internal/auth"
	"accountd/internal/cache"
	apperrors "accountd/internal/errors"
	"accountd/internal/mail"
	"accountd/internal/model"
	"accountd/internal/oauth"
	"accountd/internal/repository"
)

const (
	// MinPasswordLength is the shortest password accepted on signup and update.
	MinPasswordLength = 8

	tempPasswordLength  = 8
	tempPasswordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()_+-="

	recoverySubject = "RECOVER PASSWORD"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// AuthService orchestrates the credential lifecycle: signup, login, logout,
// password reset, profile update and the OAuth code exchange.
type AuthService interface {
	Signup(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (token string, user *model.User, err error)
	Logout(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, email, username, password string) (*model.User, error)
	ExchangeOAuthCode(ctx context.Context, code string) (map[string]interface{}, error)
}

type authService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	jwt    *auth.JWTService
	mailer mail.Mailer
	github *oauth.GitHub
	cache  *cache.Client
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	jwt *auth.JWTService,
	mailer mail.Mailer,
	github *oauth.GitHub,
	cacheClient *cache.Client,
) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		jwt:    jwt,
		mailer: mailer,
		github: github,
		cache:  cacheClient,
	}
}

// Signup validates and persists a new user. No session token is issued; the
// user has to log in separately. Email uniqueness is enforced by the storage
// layer, so concurrent signups with the same address are serialized there.
func (s *authService) Signup(ctx context.Context, username, email, password string) (*model.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, apperrors.NewValidation("please fill missing fields")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.NewValidation("please enter a valid email address")
	}
	if len(password) < MinPasswordLength {
		return nil, apperrors.NewValidation("password length should be %d or greater", MinPasswordLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailTaken) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	_ = s.cache.Delete(ctx, userListCacheKey)
	return user, nil
}

// Login verifies credentials, issues a session token and appends it to the
// user's active set.
func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperrors.ErrUserNotFound
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.users.AppendToken(ctx, user.ID, token, time.Now()); err != nil {
		return "", nil, fmt.Errorf("append token: %w", err)
	}

	return token, user, nil
}

// Logout revokes the token server-side. An unverifiable or absent token is
// not an error: the caller clears the cookie either way.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.jwt.Verify(token)
	if err != nil {
		return nil
	}
	return s.users.RemoveToken(ctx, claims.UserID, token)
}

// ForgotPassword rotates the user's password to a fresh random one and mails
// it out. The hash is replaced before dispatch, so a delivery failure leaves
// the account on the new password; a second call invalidates the first.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	password, err := generatePassword(tempPasswordLength)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.ReplacePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("replace password hash: %w", err)
	}

	body := fmt.Sprintf(
		"<h1>Get your new password!</h1><p>Here is your new password <strong>%s</strong>. Log in with it and change it from your profile.</p>",
		password,
	)
	if err := s.mailer.Send(ctx, user.Email, recoverySubject, body); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMailDelivery, err)
	}
	return nil
}

// UpdateProfile applies a partial patch keyed by email. Every password that
// reaches storage goes through the hasher, without exception.
func (s *authService) UpdateProfile(ctx context.Context, email, username, password string) (*model.User, error) {
	if email == "" || (username == "" && password == "") {
		return nil, apperrors.NewValidation("please provide email and at least one field to update")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.NewValidation("please enter a valid email address")
	}

	patch := map[string]interface{}{}
	if username != "" {
		patch["username"] = username
	}
	if password != "" {
		if len(password) < MinPasswordLength {
			return nil, apperrors.NewValidation("password length should be %d or greater", MinPasswordLength)
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, err
		}
		patch["password_hash"] = hash
	}

	user, err := s.users.UpdateByEmail(ctx, email, patch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	_ = s.cache.Delete(ctx, userListCacheKey)
	return user, nil
}

// ExchangeOAuthCode trades a provider authorization code for the provider
// profile. No local session is established.
func (s *authService) ExchangeOAuthCode(ctx context.Context, code string) (map[string]interface{}, error) {
	accessToken, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.github.FetchUser(ctx, accessToken)
}

// generatePassword draws length characters from the recovery charset using
// crypto/rand.
func generatePassword(length int) (string, error) {
	max := big.NewInt(int64(len(tempPasswordCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordCharset[n.Int64()]
	}
	return string(out), nil
}

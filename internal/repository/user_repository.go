package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	apperrors "accountd/internal/errors"
	"accountd/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique index violation.
const mysqlDuplicateEntry = 1062

// UserRepository defines credential store operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByIDAndToken matches both the user id and token-set membership,
	// which is what makes server-side revocation effective.
	FindByIDAndToken(ctx context.Context, id uint, token string) (*model.User, error)
	AppendToken(ctx context.Context, userID uint, token string, issuedAt time.Time) error
	RemoveToken(ctx context.Context, userID uint, token string) error
	ReplacePasswordHash(ctx context.Context, userID uint, hash string) error
	UpdateByEmail(ctx context.Context, email string, patch map[string]interface{}) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user, relying on the unique email index to serialize
// concurrent signups at the storage layer.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return apperrors.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDAndToken(ctx context.Context, id uint, token string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN session_tokens ON session_tokens.user_id = users.id").
		Where("users.id = ? AND session_tokens.token = ?", id, token).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) AppendToken(ctx context.Context, userID uint, token string, issuedAt time.Time) error {
	entry := &model.SessionToken{
		UserID:   userID,
		Token:    token,
		IssuedAt: issuedAt,
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *userRepository) RemoveToken(ctx context.Context, userID uint, token string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&model.SessionToken{}).Error
}

func (r *userRepository) ReplacePasswordHash(ctx context.Context, userID uint, hash string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash).Error
}

// UpdateByEmail applies a partial patch keyed by email. Zero affected rows
// is reported as gorm.ErrRecordNotFound.
func (r *userRepository) UpdateByEmail(ctx context.Context, email string, patch map[string]interface{}) (*model.User, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Updates(patch)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByEmail(ctx, email)
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/face-auth/internal/face"
)

// UserRepository reads and updates face data on SQL user rows.
type UserRepository struct {
	db *gorm.DB
	retryPolicy
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *gorm.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, retryPolicy: defaultRetryPolicy(logger.Named("user_repository"))}
}

// AutoMigrate ensures the schema is available.
func (r *UserRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&User{})
}

// CreateUser inserts a user row. Used by tooling and tests; accounts are normally
// provisioned by the account service.
func (r *UserRepository) CreateUser(ctx context.Context, user *User) error {
	if err := ValidateUserID(user.ID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// FindUser loads a user by id.
func (r *UserRepository) FindUser(ctx context.Context, userID string) (*User, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	var user User
	err := r.executeWithRetry(ctx, "repository.find_user", "", func() error {
		return r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveFaceVector replaces the stored vector and sets has_face_id in one UPDATE.
func (r *UserRepository) SaveFaceVector(ctx context.Context, userID string, vec face.FeatureVector) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	return r.executeWithRetry(ctx, "repository.save_face_vector", "", func() error {
		res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
			"face_vector": Vector(vec),
			"has_face_id": true,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

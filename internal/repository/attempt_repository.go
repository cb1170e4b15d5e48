package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Attempt is the audit record of one register or verify call.
type Attempt struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID string    `gorm:"column:request_id;uniqueIndex;size:64"`
	UserID    string    `gorm:"column:user_id;index;size:64"`
	Operation string    `gorm:"column:operation;size:16"`
	Outcome   string    `gorm:"column:outcome;size:32"`
	Success   bool      `gorm:"column:success"`
	Score     float64   `gorm:"column:score"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (Attempt) TableName() string {
	return "face_attempts"
}

// AttemptRepository persists attempt audit records.
type AttemptRepository struct {
	db *gorm.DB
	retryPolicy
}

// NewAttemptRepository creates a new repository instance.
func NewAttemptRepository(db *gorm.DB, logger *zap.Logger) *AttemptRepository {
	return &AttemptRepository{db: db, retryPolicy: defaultRetryPolicy(logger.Named("attempt_repository"))}
}

// AutoMigrate ensures the schema is available.
func (r *AttemptRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Attempt{})
}

// SaveAttempt persists an attempt record.
func (r *AttemptRepository) SaveAttempt(ctx context.Context, attempt *Attempt) error {
	return r.executeWithRetry(ctx, "repository.save_attempt", attempt.RequestID, func() error {
		return r.db.WithContext(ctx).Create(attempt).Error
	})
}

// FindByRequestIDAndUser retrieves an attempt matching the request and owner, or
// ErrAttemptNotFound.
func (r *AttemptRepository) FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*Attempt, error) {
	var attempt Attempt
	err := r.db.WithContext(ctx).First(&attempt, "request_id = ? AND user_id = ?", requestID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/face-auth/internal/logging"
	"github.com/example/face-auth/internal/repository"
)

// Attempt operations.
const (
	OperationRegister = "register"
	OperationVerify   = "verify"
)

const (
	outcomeRegistered = "registered"
	outcomeAccepted   = "accepted"

	attemptTTL       = 10 * time.Minute
	auditWriteBudget = 5 * time.Second
)

// AttemptRepository defines the persistence operations needed for attempt audit.
type AttemptRepository interface {
	SaveAttempt(ctx context.Context, attempt *repository.Attempt) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.Attempt, error)
}

type cachedAttempt struct {
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id"`
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
	Success   bool      `json:"success"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptRecorder writes an audit record for every register and verify call and
// serves them back by request id. Audit failures never change the outcome of the
// call being recorded.
type AttemptRecorder struct {
	repo   AttemptRepository
	cache  Cache
	logger *zap.Logger
	retry  redisRetry
	now    func() time.Time
}

// NewAttemptRecorder constructs a recorder. A nil cache disables caching.
func NewAttemptRecorder(repo AttemptRepository, cache Cache, logger *zap.Logger) *AttemptRecorder {
	if cache == nil {
		cache = NopCache{}
	}
	logger = logger.Named("attempt_recorder")
	return &AttemptRecorder{
		repo:   repo,
		cache:  cache,
		logger: logger,
		retry: redisRetry{
			logger:         logger,
			retryAttempts:  3,
			initialBackoff: 50 * time.Millisecond,
			maxBackoff:     time.Second,
		},
		now: time.Now,
	}
}

func attemptKey(requestID string) string {
	return fmt.Sprintf("face_attempt:%s", requestID)
}

// finiteScore maps an undefined correlation to 0. NaN is neither storable in every
// SQL dialect nor encodable as JSON.
func finiteScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// record derives the outcome from the call's error. The request context may
// already be cancelled, so writes run on a detached context with their own budget.
// Calls without a well-formed user id are not recorded.
func (r *AttemptRecorder) record(ctx context.Context, operation, requestID, userID string, score float64, callErr error) {
	if r == nil || repository.ValidateUserID(userID) != nil {
		return
	}
	attempt := &repository.Attempt{
		RequestID: requestID,
		UserID:    userID,
		Operation: operation,
		Success:   callErr == nil,
		Score:     finiteScore(score),
		CreatedAt: r.now().UTC(),
	}
	switch {
	case callErr != nil:
		attempt.Outcome = string(CodeOf(callErr))
	case operation == OperationRegister:
		attempt.Outcome = outcomeRegistered
	default:
		attempt.Outcome = outcomeAccepted
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteBudget)
	defer cancel()
	opLogger := logging.WithOperation(r.logger, "usecase.record_attempt", requestID, userID)

	if err := r.repo.SaveAttempt(ctx, attempt); err != nil {
		opLogger.Warn("failed to persist attempt", zap.Error(err))
	}

	serialized, err := json.Marshal(cachedAttempt{
		RequestID: attempt.RequestID,
		UserID:    attempt.UserID,
		Operation: attempt.Operation,
		Outcome:   attempt.Outcome,
		Success:   attempt.Success,
		Score:     attempt.Score,
		CreatedAt: attempt.CreatedAt,
	})
	if err != nil {
		opLogger.Warn("failed to serialize attempt", zap.Error(err))
		return
	}
	if err := r.retry.do(ctx, requestID, "cache.set.attempt", func() error {
		return r.cache.Set(ctx, attemptKey(requestID), string(serialized), attemptTTL)
	}); err != nil {
		opLogger.Warn("failed to cache attempt", zap.Error(err))
	}
}

// GetAttempt returns the audit record of requestID if it belongs to userID. The
// cache is consulted first, then the repository.
func (r *AttemptRecorder) GetAttempt(ctx context.Context, userID, requestID string) (*repository.Attempt, error) {
	if userID == "" || requestID == "" {
		return nil, newError(CodeMissingData, "Missing required data", nil)
	}
	opLogger := logging.WithOperation(r.logger, "usecase.get_attempt", requestID, loggableUserID(userID))

	var cached string
	err := r.retry.do(ctx, requestID, "cache.get.attempt", func() error {
		value, err := r.cache.Get(ctx, attemptKey(requestID))
		if err != nil {
			return err
		}
		cached = value
		return nil
	})
	if err == nil {
		var payload cachedAttempt
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			opLogger.Warn("failed to decode cached attempt", zap.Error(err))
		} else if payload.UserID == userID {
			return &repository.Attempt{
				RequestID: payload.RequestID,
				UserID:    payload.UserID,
				Operation: payload.Operation,
				Outcome:   payload.Outcome,
				Success:   payload.Success,
				Score:     payload.Score,
				CreatedAt: payload.CreatedAt,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		opLogger.Warn("failed to read cache", zap.Error(err))
	}

	attempt, err := r.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if errors.Is(err, repository.ErrAttemptNotFound) {
		return nil, newError(CodeAttemptNotFound, "Attempt not found", err)
	}
	if err != nil {
		opLogger.Error("failed to load attempt", zap.Error(err))
		return nil, newError(CodeInternal, "Failed to load attempt", err)
	}
	attempt.Score = finiteScore(attempt.Score)
	return attempt, nil
}

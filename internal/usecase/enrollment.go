package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/face-auth/internal/logging"
	"github.com/example/face-auth/internal/repository"
)

// Registration is the result of a successful enrollment.
type Registration struct {
	RequestID    string
	UserID       string
	VectorLength int
}

// EnrollmentService stores the face vector of a user.
type EnrollmentService struct {
	users    UserStore
	pipeline *Pipeline
	policy   RolePolicy
	recorder *AttemptRecorder
	logger   *zap.Logger
}

// NewEnrollmentService constructs the register flow. recorder may be nil.
func NewEnrollmentService(users UserStore, pipeline *Pipeline, policy RolePolicy, recorder *AttemptRecorder, logger *zap.Logger) *EnrollmentService {
	return &EnrollmentService{
		users:    users,
		pipeline: pipeline,
		policy:   policy,
		recorder: recorder,
		logger:   logger.Named("enrollment_usecase"),
	}
}

// Register extracts the face in image and replaces the user's stored vector.
// Nothing is written unless a face was found.
func (s *EnrollmentService) Register(ctx context.Context, userID, image string) (result *Registration, err error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(s.logger, "usecase.register", requestID, loggableUserID(userID))
	defer func() {
		s.recorder.record(ctx, OperationRegister, requestID, userID, 0, err)
	}()
	defer recoverInternal(opLogger, &err, "Face registration failed")

	if userID == "" || image == "" {
		return nil, newError(CodeMissingData, "Missing required data", nil)
	}
	if _, err := lookupUser(ctx, s.users, userID, &s.policy, opLogger, "Face registration failed"); err != nil {
		return nil, err
	}

	vec, err := s.pipeline.Vectorize(ctx, image)
	if err != nil {
		return nil, classifyVectorizeError(err, "No face detected in image", "Face registration failed", opLogger)
	}

	if err := s.users.SaveFaceVector(ctx, userID, vec); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, newError(CodeUserNotFound, "User not found", err)
		}
		opLogger.Error("failed to store face vector", zap.Error(err))
		return nil, newError(CodePersistence, "Failed to update user", err)
	}

	opLogger.Info("face registered", zap.Int("vector_length", len(vec)))
	return &Registration{RequestID: requestID, UserID: userID, VectorLength: len(vec)}, nil
}

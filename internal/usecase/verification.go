package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/face-auth/internal/face"
	"github.com/example/face-auth/internal/logging"
	"github.com/example/face-auth/internal/similarity"
)

// TokenIssuer mints a session token after a successful verification.
type TokenIssuer interface {
	Issue(userID, role string) (string, error)
}

// Matcher scores a probe vector against a stored one.
type Matcher interface {
	Score(stored, probe face.FeatureVector) (float64, bool, error)
}

// Verification is the result of an accepted verification.
type Verification struct {
	RequestID string
	UserID    string
	Role      string
	Score     float64
	Token     string
}

// VerificationService compares a probe image against a user's stored vector.
type VerificationService struct {
	users    UserStore
	pipeline *Pipeline
	matcher  Matcher
	policy   RolePolicy
	recorder *AttemptRecorder
	tokens   TokenIssuer
	logger   *zap.Logger
}

// NewVerificationService constructs the verify flow. recorder and tokens may be nil.
func NewVerificationService(users UserStore, pipeline *Pipeline, matcher Matcher, policy RolePolicy, recorder *AttemptRecorder, tokens TokenIssuer, logger *zap.Logger) *VerificationService {
	return &VerificationService{
		users:    users,
		pipeline: pipeline,
		matcher:  matcher,
		policy:   policy,
		recorder: recorder,
		tokens:   tokens,
		logger:   logger.Named("verification_usecase"),
	}
}

// Verify accepts when the correlation of the probe with the stored vector is
// strictly above the matcher threshold. Users without a registered face are
// rejected before the image is decoded.
func (s *VerificationService) Verify(ctx context.Context, userID, image string) (result *Verification, err error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(s.logger, "usecase.verify", requestID, loggableUserID(userID))
	var score float64
	defer func() {
		s.recorder.record(ctx, OperationVerify, requestID, userID, score, err)
	}()
	defer recoverInternal(opLogger, &err, "Face verification failed")

	if userID == "" || image == "" {
		return nil, newError(CodeMissingData, "Missing required data", nil)
	}
	user, err := lookupUser(ctx, s.users, userID, &s.policy, opLogger, "Face verification failed")
	if err != nil {
		return nil, err
	}
	if !user.HasRegisteredFace() {
		return nil, newError(CodeNoRegisteredFace, "No registered face found", nil)
	}

	probe, err := s.pipeline.Vectorize(ctx, image)
	if err != nil {
		return nil, classifyVectorizeError(err, "No face detected in verification image", "Face verification failed", opLogger)
	}

	score, ok, err := s.matcher.Score(face.FeatureVector(user.FaceVector), probe)
	if err != nil {
		if errors.Is(err, similarity.ErrLengthMismatch) {
			opLogger.Error("stored vector length differs from probe", zap.Int("stored", len(user.FaceVector)), zap.Int("probe", len(probe)))
		} else {
			opLogger.Error("failed to score probe", zap.Error(err))
		}
		return nil, newError(CodeInternal, "Face verification failed", err)
	}
	if !ok {
		opLogger.Info("face verification rejected", zap.Float64("score", score))
		return nil, newError(CodeMismatch, "Face verification failed", nil)
	}

	verification := &Verification{RequestID: requestID, UserID: user.ID, Role: user.Role, Score: score}
	if s.tokens != nil {
		token, err := s.tokens.Issue(user.ID, user.Role)
		if err != nil {
			opLogger.Error("failed to issue token", zap.Error(err))
			return nil, newError(CodeInternal, "Face verification failed", err)
		}
		verification.Token = token
	}
	opLogger.Info("face verified", zap.Float64("score", score))
	return verification, nil
}

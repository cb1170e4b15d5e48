package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/face-auth/internal/face"
	"github.com/example/face-auth/internal/imagedecode"
	"github.com/example/face-auth/internal/repository"
)

// UserStore is the slice of the user store the face flows need.
type UserStore interface {
	FindUser(ctx context.Context, userID string) (*repository.User, error)
	SaveFaceVector(ctx context.Context, userID string, vec face.FeatureVector) error
}

// maxLoggedUserID bounds how much of a client supplied id reaches the logs.
const maxLoggedUserID = 64

// loggableUserID truncates ids that cannot be valid before they are logged.
func loggableUserID(userID string) string {
	if len(userID) > maxLoggedUserID {
		return userID[:maxLoggedUserID]
	}
	return userID
}

// RolePolicy lists the roles allowed to use face authentication.
type RolePolicy struct {
	allowed map[string]struct{}
}

// NewRolePolicy builds a policy from role names.
func NewRolePolicy(roles ...string) RolePolicy {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return RolePolicy{allowed: allowed}
}

// Allows reports whether role may register or verify a face.
func (p RolePolicy) Allows(role string) bool {
	_, ok := p.allowed[role]
	return ok
}

// lookupUser runs the checks shared by every flow that takes a user id, in order:
// format, existence, and optionally role.
func lookupUser(ctx context.Context, store UserStore, userID string, policy *RolePolicy, opLogger *zap.Logger, failMessage string) (*repository.User, error) {
	if err := repository.ValidateUserID(userID); err != nil {
		return nil, newError(CodeInvalidUserID, "Invalid user ID format", err)
	}
	user, err := store.FindUser(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, newError(CodeUserNotFound, "User not found", err)
	case errors.Is(err, repository.ErrInvalidUserID):
		return nil, newError(CodeInvalidUserID, "Invalid user ID format", err)
	case err != nil:
		opLogger.Error("failed to load user", zap.Error(err))
		return nil, newError(CodeInternal, failMessage, err)
	}
	if policy != nil && !policy.Allows(user.Role) {
		return nil, newError(CodeRoleNotAllowed, "Face authentication is only available for users", nil)
	}
	return user, nil
}

// classifyVectorizeError maps pipeline failures onto client codes.
func classifyVectorizeError(err error, noFaceMessage, failMessage string, opLogger *zap.Logger) error {
	switch {
	case errors.Is(err, imagedecode.ErrInvalidImage):
		return newError(CodeInvalidImage, "Invalid image data", err)
	case errors.Is(err, face.ErrNoFaceDetected):
		return newError(CodeNoFaceDetected, noFaceMessage, err)
	default:
		opLogger.Error("face pipeline failed", zap.Error(err))
		return newError(CodeInternal, failMessage, err)
	}
}

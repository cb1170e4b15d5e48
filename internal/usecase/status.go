package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/face-auth/internal/logging"
)

// RegistrationStatus reports whether a user has a face on file.
type RegistrationStatus struct {
	UserID    string
	Role      string
	HasFaceID bool
}

// StatusService answers registration status queries. Role is not checked so that
// clients can decide whether to offer face login at all.
type StatusService struct {
	users  UserStore
	logger *zap.Logger
}

// NewStatusService constructs the check-registration flow.
func NewStatusService(users UserStore, logger *zap.Logger) *StatusService {
	return &StatusService{users: users, logger: logger.Named("status_usecase")}
}

// Status looks the user up by id and reports HasFaceID.
func (s *StatusService) Status(ctx context.Context, userID string) (*RegistrationStatus, error) {
	if userID == "" {
		return nil, newError(CodeMissingData, "User ID is required", nil)
	}
	opLogger := logging.WithOperation(s.logger, "usecase.status", "", loggableUserID(userID))
	user, err := lookupUser(ctx, s.users, userID, nil, opLogger, "Failed to check registration")
	if err != nil {
		return nil, err
	}
	return &RegistrationStatus{UserID: user.ID, Role: user.Role, HasFaceID: user.HasRegisteredFace()}, nil
}

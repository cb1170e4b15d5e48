package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/face-auth/internal/auth"
	"github.com/example/face-auth/internal/repository"
	"github.com/example/face-auth/internal/usecase"
)

// DefaultMaxUploadSize bounds request bodies when no limit is configured.
const DefaultMaxUploadSize = 10 << 20

// Registerer stores a user's face.
type Registerer interface {
	Register(ctx context.Context, userID, image string) (*usecase.Registration, error)
}

// Verifier checks a probe image against a user's stored face.
type Verifier interface {
	Verify(ctx context.Context, userID, image string) (*usecase.Verification, error)
}

// StatusChecker reports registration status.
type StatusChecker interface {
	Status(ctx context.Context, userID string) (*usecase.RegistrationStatus, error)
}

// AttemptReader serves attempt audit records.
type AttemptReader interface {
	GetAttempt(ctx context.Context, userID, requestID string) (*repository.Attempt, error)
}

// Services bundles the use cases behind the HTTP routes.
type Services struct {
	Enrollment   Registerer
	Verification Verifier
	Status       StatusChecker
	Attempts     AttemptReader
}

// Options tune the routes. A nil Auth leaves every route public.
type Options struct {
	Auth           gin.HandlerFunc
	MaxUploadBytes int64
	Logger         *zap.Logger
}

type faceRequest struct {
	UserID string `json:"userId"`
	Image  string `json:"image"`
}

type handler struct {
	svc            Services
	maxUploadBytes int64
	logger         *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc Services, opts Options) {
	h := &handler{svc: svc, maxUploadBytes: opts.MaxUploadBytes, logger: opts.Logger}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = DefaultMaxUploadSize
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	protected := []gin.HandlerFunc{}
	if opts.Auth != nil {
		protected = append(protected, opts.Auth)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/face-auth")
	api.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Face authentication server is running"})
	})
	api.POST("/register", append(protected, h.register)...)
	api.POST("/verify", h.verify)
	api.GET("/check-registration", append(protected, h.checkRegistration)...)
	api.GET("/attempts/:id", append(protected, h.attempt)...)
}

func (h *handler) register(c *gin.Context) {
	req, ok := h.bindFaceRequest(c)
	if !ok || !h.authorize(c, req.UserID) {
		return
	}

	reg, err := h.svc.Enrollment.Register(c.Request.Context(), req.UserID, req.Image)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Face registered successfully",
		"hasFaceId":  true,
		"request_id": reg.RequestID,
	})
}

func (h *handler) verify(c *gin.Context) {
	req, ok := h.bindFaceRequest(c)
	if !ok {
		return
	}

	res, err := h.svc.Verification.Verify(c.Request.Context(), req.UserID, req.Image)
	if err != nil {
		h.writeError(c, err)
		return
	}
	body := gin.H{
		"message":    "Face verification successful",
		"userId":     res.UserID,
		"role":       res.Role,
		"score":      res.Score,
		"request_id": res.RequestID,
	}
	if res.Token != "" {
		body["token"] = res.Token
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) checkRegistration(c *gin.Context) {
	userID := c.Query("userId")
	if userID != "" && !h.authorize(c, userID) {
		return
	}

	st, err := h.svc.Status.Status(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasFaceId": st.HasFaceID, "role": st.Role})
}

func (h *handler) attempt(c *gin.Context) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		userID = c.Query("userId")
	}

	attempt, err := h.svc.Attempts.GetAttempt(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"request_id": attempt.RequestID,
		"userId":     attempt.UserID,
		"operation":  attempt.Operation,
		"outcome":    attempt.Outcome,
		"success":    attempt.Success,
		"score":      attempt.Score,
		"created_at": attempt.CreatedAt.Format(time.RFC3339),
	})
}

// bindFaceRequest decodes the JSON body under the upload limit. Absent fields are
// left empty for the use case to reject.
func (h *handler) bindFaceRequest(c *gin.Context) (faceRequest, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var req faceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds upload limit", "code": "payload_too_large"})
			return req, false
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing required data", "code": string(usecase.CodeMissingData)})
		return req, false
	}
	return req, true
}

// authorize requires the bearer subject, when present, to match userID.
func (h *handler) authorize(c *gin.Context, userID string) bool {
	subject, ok := auth.GetUserID(c.Request.Context())
	if !ok || subject == userID {
		return true
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token does not belong to this user", "code": "forbidden"})
	return false
}

func (h *handler) writeError(c *gin.Context, err error) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		h.logger.Error("unclassified use case error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": string(usecase.CodeInternal)})
		return
	}
	c.JSON(statusFor(ucErr.Code), gin.H{"error": ucErr.Message, "code": string(ucErr.Code)})
}

func statusFor(code usecase.Code) int {
	switch code {
	case usecase.CodeMissingData, usecase.CodeInvalidUserID, usecase.CodeInvalidImage, usecase.CodeNoFaceDetected:
		return http.StatusBadRequest
	case usecase.CodeUserNotFound, usecase.CodeNoRegisteredFace, usecase.CodeAttemptNotFound:
		return http.StatusNotFound
	case usecase.CodeRoleNotAllowed:
		return http.StatusForbidden
	case usecase.CodeMismatch:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

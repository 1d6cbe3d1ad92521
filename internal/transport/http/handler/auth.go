package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*domain.User, error)
	VerifyEmail(ctx context.Context, rawToken string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*usecase.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*usecase.Session, error)
	Logout(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	ChangePassword(ctx context.Context, userID, current, next string) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Email    string `json:"email"    binding:"required,email,max=254"`
	Username string `json:"username" binding:"required,min=5,max=20,alphanum"`
	Password string `json:"password" binding:"required"`
	Fullname string `json:"fullname" binding:"required,max=100"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required"`
}

type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Fullname: req.Fullname,
	})
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered, please verify your email",
		"user":    toUserResponse(user),
	})
}

// GET /auth/verify-email?token=<raw>
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errTokenInvalid})
		return
	}
	if err := h.authUsecase.VerifyEmail(c.Request.Context(), rawToken); err != nil {
		respondError(c, h.logger, "verify email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// POST /auth/resend-verification
// Always returns 200 to avoid revealing whether the email exists.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.authUsecase.ResendVerification(c.Request.Context(), req.Email); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "resend verification", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists and is unverified, a new link has been sent"})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(s))
}

// POST /auth/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.authUsecase.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, "refresh session", err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(s))
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.authUsecase.Logout(c.Request.Context(), id.UserID); err != nil {
		respondError(c, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// POST /auth/forgot-password
// Always returns 200 to avoid revealing whether the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.authUsecase.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "forgot password", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a reset link has been sent"})
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.authUsecase.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, h.logger, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// POST /auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.authUsecase.ChangePassword(c.Request.Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed, please log in again on your other devices"})
}

// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	user, err := h.authUsecase.Profile(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.logger, "profile", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func toSessionResponse(s *usecase.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         toUserResponse(s.User),
	}
}

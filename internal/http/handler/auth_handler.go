package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gideon-Phiri/secure-auth-service/internal/http/middleware"
	"github.com/Gideon-Phiri/secure-auth-service/internal/service"
)

// AuthHandler serves registration, login, refresh, and email verification.
type AuthHandler struct {
	Auth   *service.AuthService
	Logger *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		SourceIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Register creates an unverified account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "email and password are required."})
		return
	}

	account, err := h.Auth.Register(c.Request.Context(), requestMeta(c), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user created",
		"id":      strconv.FormatInt(account.ID, 10),
	})
}

// Login runs the credential-check state machine.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "email and password are required."})
		return
	}

	tokens, err := h.Auth.Login(c.Request.Context(), requestMeta(c), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// Refresh rotates a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "refresh_token is required."})
		return
	}

	tokens, err := h.Auth.Refresh(c.Request.Context(), requestMeta(c), req.RefreshToken)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// VerifyEmail redeems an email verification token.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("token"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "token is required."})
		return
	}

	if err := h.Auth.VerifyEmail(c.Request.Context(), requestMeta(c), raw); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// Me returns the authenticated account's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "TOKEN_MALFORMED", "error_description": "Not authenticated."})
		return
	}
	c.JSON(http.StatusOK, service.NewAccountView(account))
}

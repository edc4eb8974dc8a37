package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gideon-Phiri/secure-auth-service/internal/http/middleware"
	"github.com/Gideon-Phiri/secure-auth-service/internal/service"
)

// UserHandler serves self-service profile operations and admin CRUD.
type UserHandler struct {
	Users  *service.UserService
	Logger *zap.Logger
}

// NewUserHandler creates the handler set.
func NewUserHandler(users *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

type updateRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UpdateMe updates the caller's own profile.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "TOKEN_MALFORMED", "error_description": "Not authenticated."})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "Invalid update payload."})
		return
	}

	view, err := h.Users.Update(c.Request.Context(), requestMeta(c), account, account.ID,
		service.AccountUpdate{Email: req.Email, Password: req.Password}, true)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteMe removes the caller's own account.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "TOKEN_MALFORMED", "error_description": "Not authenticated."})
		return
	}

	if err := h.Users.DeleteSelf(c.Request.Context(), requestMeta(c), account); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

// List returns a page of accounts (admin only).
func (h *UserHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	views, err := h.Users.List(c.Request.Context(), offset, limit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Create provisions a pre-verified account (admin only).
func (h *UserHandler) Create(c *gin.Context) {
	admin, _ := middleware.GetAccount(c)

	var req struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		IsSuperuser bool   `json:"is_superuser"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "email and password are required."})
		return
	}

	view, err := h.Users.AdminCreate(c.Request.Context(), requestMeta(c), admin, req.Email, req.Password, req.IsSuperuser)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Get returns one account (admin only).
func (h *UserHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}

	view, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Update applies admin-driven profile changes.
func (h *UserHandler) Update(c *gin.Context) {
	admin, _ := middleware.GetAccount(c)
	id, err := parseID(c)
	if err != nil {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "Invalid update payload."})
		return
	}

	view, err := h.Users.Update(c.Request.Context(), requestMeta(c), admin, id,
		service.AccountUpdate{Email: req.Email, Password: req.Password}, false)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Activate re-enables an account and clears its lockout (admin only).
func (h *UserHandler) Activate(c *gin.Context) {
	admin, _ := middleware.GetAccount(c)
	id, err := parseID(c)
	if err != nil {
		return
	}

	if err := h.Users.Activate(c.Request.Context(), requestMeta(c), admin, id); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User activated successfully"})
}

// Deactivate disables an account (admin only).
func (h *UserHandler) Deactivate(c *gin.Context) {
	admin, _ := middleware.GetAccount(c)
	id, err := parseID(c)
	if err != nil {
		return
	}

	if err := h.Users.Deactivate(c.Request.Context(), requestMeta(c), admin, id); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}

// Delete removes an account (admin only).
func (h *UserHandler) Delete(c *gin.Context) {
	admin, _ := middleware.GetAccount(c)
	id, err := parseID(c)
	if err != nil {
		return
	}

	if err := h.Users.Delete(c.Request.Context(), requestMeta(c), admin, id); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "Invalid user id."})
		return 0, err
	}
	return id, nil
}

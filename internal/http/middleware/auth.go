package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/service"
)

const accountKey = "currentAccount"

// Auth validates bearer tokens and attaches the account to the context.
type Auth struct {
	AuthService *service.AuthService
}

// RequireAuth ensures the request carries a valid access token.
func (m *Auth) RequireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		abortAuth(c, "Authorization header required.")
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		abortAuth(c, "Bearer token required.")
		return
	}

	account, err := m.AuthService.Authenticate(c.Request.Context(), parts[1])
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			c.AbortWithStatusJSON(authErr.Status, gin.H{"error": authErr.Code, "error_description": authErr.Description})
			return
		}
		abortAuth(c, "Invalid access token.")
		return
	}

	c.Set(accountKey, account)
	c.Next()
}

// RequireAdmin ensures the authenticated account is a superuser. It must
// run after RequireAuth.
func (m *Auth) RequireAdmin(c *gin.Context) {
	account, ok := GetAccount(c)
	if !ok || !account.IsSuperuser {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":             "FORBIDDEN",
			"error_description": "Not enough permissions.",
		})
		return
	}
	c.Next()
}

// GetAccount extracts the authenticated account from the gin context.
func GetAccount(c *gin.Context) (domain.Account, bool) {
	value, ok := c.Get(accountKey)
	if !ok {
		return domain.Account{}, false
	}
	account, ok := value.(domain.Account)
	return account, ok
}

func abortAuth(c *gin.Context, description string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             domain.CodeTokenMalformed,
		"error_description": description,
	})
}

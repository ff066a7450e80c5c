package middleware

import "github.com/gin-gonic/gin"

const (
	accountIDKey = contextKey("accountID")
	isAdminKey   = contextKey("isAdmin")
)

// GetAccountIDFromContext retrieves the authenticated account ID from the
// request context. It returns the ID and whether it was found.
func GetAccountIDFromContext(c *gin.Context) (string, bool) {
	accountID, ok := c.Request.Context().Value(accountIDKey).(string)
	if !ok || accountID == "" {
		return "", false
	}
	return accountID, true
}

// IsAdminFromContext reports whether the authenticated caller holds the
// admin capability.
func IsAdminFromContext(c *gin.Context) bool {
	isAdmin, ok := c.Request.Context().Value(isAdminKey).(bool)
	return ok && isAdmin
}

package middleware

import (
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
)

// RBACMiddleware enforces role-based access on top of the auth middleware.
// Policies are (role, path, method) tuples matched with keyMatch2.
type RBACMiddleware struct {
	enforcer *casbin.Enforcer
}

// NewRBACMiddleware creates a new Casbin RBAC middleware
func NewRBACMiddleware(enforcer *casbin.Enforcer) *RBACMiddleware {
	return &RBACMiddleware{enforcer: enforcer}
}

// Enforce returns the Casbin authorization middleware
func (mw *RBACMiddleware) Enforce() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Role not found in token"})
			c.Abort()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		allowed, err := mw.enforcer.Enforce(userRole.(string), path, c.Request.Method)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Authorization check failed"})
			c.Abort()
			return
		}

		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"message": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	})
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/permission"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
)

const callerKey = "caller"

// Authenticate resolves an optional bearer token into a *permission.Caller.
// Requests without an Authorization header continue anonymously; a header that
// is present but malformed or invalid is rejected with 401.
func Authenticate(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// Extract token (format: "Bearer <token>")
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			abort(c, apperr.Unauthorized("Invalid authorization header format."))
			return
		}

		caller, err := authService.Authenticate(c.Request.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			if ae := apperr.As(err); ae != nil {
				abort(c, ae)
				return
			}
			_ = c.Error(err)
			abort(c, &apperr.Error{Message: "Internal server error."})
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller set by Authenticate, or nil for anonymous requests.
func CallerFrom(c *gin.Context) *permission.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*permission.Caller)
	return caller
}

// RequireAuthenticated rejects anonymous requests.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerFrom(c).Authenticated() {
			abort(c, apperr.Unauthorized("Authentication credentials were not provided."))
			return
		}
		c.Next()
	}
}

// RequireAdmin lets through admins and superusers only.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFrom(c)
		if !caller.Authenticated() {
			abort(c, apperr.Unauthorized("Authentication credentials were not provided."))
			return
		}
		if !permission.CanManageUsers(caller) {
			abort(c, apperr.Forbidden("You do not have permission to perform this action."))
			return
		}
		c.Next()
	}
}

// ReadAnyWriteAdmin guards catalog resources: safe methods pass, writes need an admin.
func ReadAnyWriteAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		action := permission.ActionFor(c.Request.Method)
		caller := CallerFrom(c)
		if permission.CanManageCatalog(action, caller) {
			c.Next()
			return
		}
		if !caller.Authenticated() {
			abort(c, apperr.Unauthorized("Authentication credentials were not provided."))
			return
		}
		abort(c, apperr.Forbidden("You do not have permission to perform this action."))
	}
}

func abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.Status(), err.Body())
}

package auth

import (
	"strings"

	"meal-prep-planner/internal/apperror"

	"github.com/gin-gonic/gin"
)

const subjectKey = "auth.subject"

// RequireAuth rejects requests without a valid Bearer token and stores the subject on the context.
func RequireAuth(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			abort(c, apperror.NewUnauthorizedError("Authentication required"))
			return
		}

		claims, err := issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			abort(c, apperror.NewUnauthorizedError("Invalid or expired token").WithCause(err))
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}

// Subject returns the authenticated email stored by RequireAuth.
func Subject(c *gin.Context) (string, bool) {
	s := c.GetString(subjectKey)
	return s, s != ""
}

func abort(c *gin.Context, err *apperror.AppError) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode(), gin.H{"code": err.Code, "message": err.Message})
}

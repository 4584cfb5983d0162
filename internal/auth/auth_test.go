package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := issuer.Issue("test@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := issuer.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "test@example.com", claims.Subject)
		assert.NotEmpty(t, claims.ID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
	})

	t.Run("Expired", func(t *testing.T) {
		past := NewTokenIssuer("secret", time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Issue("test@example.com")
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := NewTokenIssuer("other", time.Hour).Issue("test@example.com")
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoneAlgorithmRejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "test@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("DefaultTTL", func(t *testing.T) {
		assert.Equal(t, DefaultTTL, NewTokenIssuer("s", 0).ttl)
	})
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewTokenIssuer("secret", time.Hour)

	router := gin.New()
	router.GET("/private", RequireAuth(issuer), func(c *gin.Context) {
		email, _ := Subject(c)
		c.String(http.StatusOK, email)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("MissingHeader", func(t *testing.T) {
		rec := do("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Authentication required")
	})

	t.Run("Garbage", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("Bearer not-a-token").Code)
	})

	t.Run("Valid", func(t *testing.T) {
		token, err := issuer.Issue("cook@example.com")
		require.NoError(t, err)

		rec := do("Bearer " + token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cook@example.com", rec.Body.String())
	})
}

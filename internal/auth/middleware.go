package auth

import (
	"errors"
	"net/http"
	"strings"

	"callrounded-manager/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// RequireAccessToken verifies the access cookie (or a bearer token) and injects the user into the request context.
// It does not perform RBAC checks; those belong to internal/rbac.
func RequireAccessToken(s *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := accessToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		u, err := s.Authenticate(c.Request.Context(), tok)
		if err != nil {
			if !errors.Is(err, ErrUnauthorized) {
				logger.FromGin(c).Error("authenticate", "err", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Set("user_id", u.ID)
		c.Set("role", string(u.Role))
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if v, err := c.Cookie(AccessCookie); err == nil && v != "" {
		return v
	}
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if strings.HasPrefix(raw, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	}
	return ""
}

// CookieOptions control the session cookies written by SetSessionCookies.
type CookieOptions struct {
	Secure bool
}

func SetSessionCookies(c *gin.Context, m *Manager, pair TokenPair, opts CookieOptions) {
	SetAccessCookie(c, m, pair.AccessToken, opts)
	setCookie(c, RefreshCookie, pair.RefreshToken, int(m.RefreshTTL().Seconds()), opts)
}

func SetAccessCookie(c *gin.Context, m *Manager, token string, opts CookieOptions) {
	setCookie(c, AccessCookie, token, int(m.AccessTTL().Seconds()), opts)
}

func ClearSessionCookies(c *gin.Context, opts CookieOptions) {
	setCookie(c, AccessCookie, "", -1, opts)
	setCookie(c, RefreshCookie, "", -1, opts)
}

func setCookie(c *gin.Context, name, value string, maxAge int, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", opts.Secure, true)
}

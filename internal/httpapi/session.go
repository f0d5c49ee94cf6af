package httpapi

import (
	"errors"
	"net/http"

	"callrounded-manager/internal/auth"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks email/password and sets the session cookies.
func (h *Handlers) Login(c *gin.Context) {
	if h.Sessions == nil {
		unavailable(c, "auth")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password required")
		return
	}
	u, pair, err := h.Sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		fail(c, err)
		return
	}
	auth.SetSessionCookies(c, h.Sessions.Tokens(), pair, h.Cookies)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handlers) Logout(c *gin.Context) {
	auth.ClearSessionCookies(c, h.Cookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) Me(c *gin.Context) {
	u, ok := auth.User(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// Refresh issues a new access cookie from the refresh cookie.
func (h *Handlers) Refresh(c *gin.Context) {
	if h.Sessions == nil {
		unavailable(c, "auth")
		return
	}
	tok, err := c.Cookie(auth.RefreshCookie)
	if err != nil || tok == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}
	u, access, err := h.Sessions.Refresh(c.Request.Context(), tok)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			auth.ClearSessionCookies(c, h.Cookies)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		fail(c, err)
		return
	}
	auth.SetAccessCookie(c, h.Sessions.Tokens(), access, h.Cookies)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

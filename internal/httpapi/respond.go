package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"callrounded-manager/internal/alerts"
	"callrounded-manager/internal/auth"
	"callrounded-manager/internal/calendar"
	"callrounded-manager/internal/calls"
	"callrounded-manager/internal/knowledge"
	"callrounded-manager/internal/llm"
	"callrounded-manager/internal/notify"
	"callrounded-manager/internal/platform"
	"callrounded-manager/internal/reporting"
	"callrounded-manager/internal/store"
	"callrounded-manager/internal/templates"
	"callrounded-manager/pkg/logger"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, calls.ErrInvalidPage),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, reporting.ErrReportsDisabled),
		errors.Is(err, templates.ErrInvalidTemplate),
		errors.Is(err, knowledge.ErrNoSources),
		errors.Is(err, notify.ErrInvalidEvent),
		errors.Is(err, alerts.ErrInvalidRule),
		errors.Is(err, calendar.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, alerts.ErrUnknownPreset),
		errors.Is(err, calendar.ErrNotConnected),
		errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, calendar.ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, llm.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, platform.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": ...}. Unclassified errors are logged and hidden.
func fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(code, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}

// currentUser is set by auth.RequireAccessToken on every protected route.
func currentUser(c *gin.Context) uint {
	id, _ := auth.UserID(c.Request.Context())
	return id
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		badRequest(c, key+" must be an integer")
		return 0, false
	}
	return n, true
}

// queryTime accepts YYYY-MM-DD or RFC3339. A bare date used as an upper
// bound covers the whole day.
func queryTime(c *gin.Context, key string, upper bool) (*time.Time, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		badRequest(c, key+" must be YYYY-MM-DD or RFC3339")
		return nil, false
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return &t, true
}

func pathUint(c *gin.Context, key string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || n == 0 {
		badRequest(c, key+" must be a positive integer")
		return 0, false
	}
	return uint(n), true
}

package httpapi

import (
	"net/http"

	"callrounded-manager/internal/calendar"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) CalendarStatus(c *gin.Context) {
	st, err := h.Calendar.Status(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handlers) CalendarConnect(c *gin.Context) {
	var req calendar.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	st, err := h.Calendar.Connect(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handlers) CalendarDisconnect(c *gin.Context) {
	if err := h.Calendar.Disconnect(c.Request.Context(), currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) CalendarEvents(c *gin.Context) {
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return
	}
	rows, err := h.Calendar.ListEvents(c.Request.Context(), currentUser(c), days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) CreateCalendarEvent(c *gin.Context) {
	var in calendar.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	e, err := h.Calendar.CreateEvent(c.Request.Context(), currentUser(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handlers) DeleteCalendarEvent(c *gin.Context) {
	ok, err := h.Calendar.DeleteEvent(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		notFound(c, "event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) AvailableSlots(c *gin.Context) {
	duration, ok := queryInt(c, "duration_minutes", calendar.DefaultDuration)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		badRequest(c, "date required")
		return
	}
	out, err := h.Calendar.AvailableSlots(c.Request.Context(), currentUser(c), date, duration)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) CalendarStats(c *gin.Context) {
	st, err := h.Calendar.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handlers) CalendarSync(c *gin.Context) {
	res, err := h.Calendar.Sync(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

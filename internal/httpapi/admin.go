package httpapi

import (
	"net/http"
	"strings"

	"callrounded-manager/internal/auth"
	"callrounded-manager/internal/llm"
	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListUsers(c *gin.Context) {
	rows, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := pathUint(c, "id")
	if !ok {
		return
	}
	u, err := h.Store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, u)
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

func (h *Handlers) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and a password of at least 8 characters required; role must be user or admin")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	u, err := h.Store.CreateUser(c.Request.Context(), store.NewUser{
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		Role:         store.UserRole(req.Role),
		PasswordHash: hash,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		unavailable(c, "database")
		return
	}
	logger.FromGin(c).Info("user created", "user_id", u.ID, "by", currentUser(c))
	c.JSON(http.StatusCreated, u)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// UpdateUser applies a partial update. Admins cannot change their own role or deactivate themselves.
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, ok := pathUint(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	self := id == currentUser(c)

	var p store.UserPatch
	p.Name, p.Email, p.IsActive = req.Name, req.Email, req.IsActive
	if req.Role != nil {
		role := store.UserRole(*req.Role)
		if !role.Valid() {
			badRequest(c, "role must be user or admin")
			return
		}
		if self {
			badRequest(c, "cannot change your own role")
			return
		}
		p.Role = &role
	}
	if self && req.IsActive != nil && !*req.IsActive {
		badRequest(c, "cannot deactivate yourself")
		return
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			badRequest(c, "password must be at least 8 characters")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			fail(c, err)
			return
		}
		p.PasswordHash = &hash
	}

	u, err := h.Store.UpdateUser(c.Request.Context(), id, p)
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := pathUint(c, "id")
	if !ok {
		return
	}
	if id == currentUser(c) {
		badRequest(c, "cannot delete yourself")
		return
	}
	deleted, err := h.Store.DeleteUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !deleted {
		notFound(c, "user")
		return
	}
	logger.FromGin(c).Info("user deleted", "user_id", id, "by", currentUser(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) ListAllAgents(c *gin.Context) {
	rows, err := h.Store.ListAgents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type syncRequest struct {
	UserID uint `json:"user_id"`
}

// Sync pulls the platform data into the given tenant, defaulting to the caller.
func (h *Handlers) Sync(c *gin.Context) {
	if h.Syncer == nil {
		unavailable(c, "platform")
		return
	}
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json")
			return
		}
	}
	if req.UserID == 0 {
		req.UserID = currentUser(c)
	}
	u, err := h.Store.GetUserByID(c.Request.Context(), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if u == nil {
		notFound(c, "user")
		return
	}
	res, err := h.Syncer.Sync(c.Request.Context(), u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) LLMChat(c *gin.Context) {
	if !h.Builder.Enabled() {
		unavailable(c, "LLM")
		return
	}
	var req llm.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "messages required")
		return
	}
	out, err := h.Builder.Chat(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) LLMVoices(c *gin.Context) {
	c.JSON(http.StatusOK, llm.Voices())
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mugz-josh/Deliverieseasy/internal/api/dto"
	"github.com/mugz-josh/Deliverieseasy/internal/service/delivery"
)

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.Service.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(users))
}

// GetUser handles GET /api/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	u, err := h.Service.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(u))
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.Service.CreateUser(c.Request.Context(), delivery.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successMessage("User created", u))
}

// ListActiveRiders handles GET /api/users/riders/active
func (h *Handlers) ListActiveRiders(c *gin.Context) {
	riders, err := h.Service.ListRiders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(riders))
}

// UpdateUserRole handles PUT /api/users/:id/role
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.Service.UpdateUserRole(c.Request.Context(), id, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successMessage("User role updated", u))
}

// DeleteUser handles DELETE /api/users/:id
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	u, err := h.Service.GetUser(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Service.DeleteUser(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successMessage("User deleted successfully", dto.DeletedUserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mugz-josh/Deliverieseasy/internal/api/dto"
	"github.com/mugz-josh/Deliverieseasy/internal/service/delivery"
)

// ListDeliveries handles GET /api/deliveries
func (h *Handlers) ListDeliveries(c *gin.Context) {
	deliveries, err := h.Service.ListDeliveries(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(deliveries))
}

// GetDelivery handles GET /api/deliveries/:id
func (h *Handlers) GetDelivery(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	d, err := h.Service.GetDelivery(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(d))
}

// CreateDelivery handles POST /api/deliveries
func (h *Handlers) CreateDelivery(c *gin.Context) {
	var req dto.CreateDeliveryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	d, err := h.Service.CreateDelivery(c.Request.Context(), delivery.CreateDeliveryInput{
		CustomerID:            req.CustomerID,
		PickupAddress:         req.PickupAddress,
		DeliveryAddress:       req.DeliveryAddress,
		PackageDescription:    req.PackageDescription,
		PackageWeight:         req.PackageWeight,
		DeliveryFee:           req.DeliveryFee,
		PaymentMethod:         req.PaymentMethod,
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successMessage("Delivery created successfully", d))
}

// UpdateDeliveryStatus handles PUT /api/deliveries/:id/status
func (h *Handlers) UpdateDeliveryStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	d, err := h.Service.UpdateStatus(c.Request.Context(), id, req.Status, req.RiderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successMessage("Delivery status updated", d))
}

// UpdateDeliveryLocation handles PUT /api/deliveries/:id/location
func (h *Handlers) UpdateDeliveryLocation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateLocationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	d, err := h.Service.UpdateLocation(c.Request.Context(), id, req.Latitude, req.Longitude)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successMessage("Location updated", d))
}

// ListDeliveryLogs handles GET /api/deliveries/:id/logs
func (h *Handlers) ListDeliveryLogs(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	logs, err := h.Service.ListDeliveryLogs(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(logs))
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mugz-josh/Deliverieseasy/internal/api/dto"
	"github.com/mugz-josh/Deliverieseasy/internal/service/delivery"
	"github.com/mugz-josh/Deliverieseasy/pkg/cache"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
)

// IdempotencyHeader lets clients retry a booking without creating a duplicate
const IdempotencyHeader = "Idempotency-Key"

// CreateBooking handles POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req dto.BookingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.idempotent(c, "bookings", func() (interface{}, error) {
		d, err := h.Service.CreateBooking(c.Request.Context(), delivery.BookingInput{
			Service:      req.Service,
			CustomerName: req.CustomerName,
			Email:        req.Email,
			Phone:        req.Phone,
		})
		if err != nil {
			return nil, err
		}
		return successMessage("Booking created successfully!", d), nil
	})
}

// SendPackage handles POST /api/send-package
func (h *Handlers) SendPackage(c *gin.Context) {
	var req dto.SendPackageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.idempotent(c, "send-package", func() (interface{}, error) {
		d, err := h.Service.SendPackage(c.Request.Context(), delivery.PackageInput{
			Sender:          req.Sender,
			Receiver:        req.Receiver,
			Email:           req.Email,
			PickupAddress:   req.PickupAddress,
			DeliveryAddress: req.DeliveryAddress,
			Weight:          req.Weight,
		})
		if err != nil {
			return nil, err
		}
		return successMessage("Package sent successfully! Confirmation email sent.", d), nil
	})
}

// idempotent runs handle once per Idempotency-Key and replays the stored
// response for repeats. Without a key or a cache the handler just runs.
// A successful handle answers 201. Server errors are not stored so the
// client can retry.
func (h *Handlers) idempotent(c *gin.Context, scope string, handle func() (interface{}, error)) {
	key := c.GetHeader(IdempotencyHeader)
	if key == "" || h.Idempotency == nil {
		status, body := h.create(c, handle)
		c.JSON(status, body)
		return
	}

	ctx := c.Request.Context()
	stored, err := h.Idempotency.Begin(ctx, scope, key)
	switch {
	case errors.Is(err, cache.ErrInProgress):
		h.respondError(c, apperrors.Conflict("A request with this Idempotency-Key is still in progress", err))
		return
	case err != nil:
		h.Logger.Warn("Idempotency cache unavailable, processing without it",
			logger.String("scope", scope),
			logger.Err(err),
		)
		status, body := h.create(c, handle)
		c.JSON(status, body)
		return
	case stored != nil:
		c.Header("Idempotent-Replayed", "true")
		c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
		return
	}

	status, body := h.create(c, handle)
	payload, err := json.Marshal(body)
	if err != nil {
		_ = h.Idempotency.Abandon(ctx, scope, key)
		h.respondError(c, apperrors.Internal("Server error", err))
		return
	}

	if status >= http.StatusInternalServerError {
		err = h.Idempotency.Abandon(ctx, scope, key)
	} else {
		err = h.Idempotency.Complete(ctx, scope, key, cache.StoredResponse{Status: status, Body: payload})
	}
	if err != nil {
		h.Logger.Warn("Failed to record idempotent response",
			logger.String("scope", scope),
			logger.Err(err),
		)
	}

	c.Data(status, "application/json; charset=utf-8", payload)
}

// create runs handle and picks the response, logging the cause of server errors
func (h *Handlers) create(c *gin.Context, handle func() (interface{}, error)) (int, interface{}) {
	body, err := handle()
	if err != nil {
		status, envelope := h.errorBody(err)
		h.logServerError(c, status, err)
		return status, envelope
	}
	return http.StatusCreated, body
}

package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/mugz-josh/Deliverieseasy/internal/service/delivery"
	"github.com/mugz-josh/Deliverieseasy/pkg/cache"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
	"github.com/mugz-josh/Deliverieseasy/pkg/websocket"
)

// Pinger reports database reachability for /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes handler behaviour per environment
type Options struct {
	// Production hides internal error details from responses
	Production      bool
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
}

// Handlers holds all handler dependencies
type Handlers struct {
	Service     *delivery.Service
	Idempotency *cache.IdempotencyStore
	DB          Pinger
	Hub         *websocket.Hub
	Logger      *logger.Logger

	production bool
	upgrader   gorilla.Upgrader
	startTime  time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc *delivery.Service, idem *cache.IdempotencyStore, db Pinger, hub *websocket.Hub, log *logger.Logger, opts Options) *Handlers {
	return &Handlers{
		Service:     svc,
		Idempotency: idem,
		DB:          db,
		Hub:         hub,
		Logger:      log,
		production:  opts.Production,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		startTime: time.Now(),
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browsers from the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func success(data interface{}) gin.H {
	return gin.H{"success": true, "data": data}
}

func successMessage(message string, data interface{}) gin.H {
	return gin.H{"success": true, "message": message, "data": data}
}

// errorBody turns any error into the failure envelope
func (h *Handlers) errorBody(err error) (int, map[string]interface{}) {
	appErr := apperrors.GetAppError(err)
	return appErr.Status, appErr.Envelope(!h.production)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status, body := h.errorBody(err)
	h.logServerError(c, status, err)
	c.JSON(status, body)
}

// logServerError records the cause of a 5xx, which clients never see in production
func (h *Handlers) logServerError(c *gin.Context, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	h.Logger.Error("Request failed",
		logger.String("method", c.Request.Method),
		logger.String("path", c.FullPath()),
		logger.Int("status", status),
		logger.Err(err),
	)
}

// pathID parses the :id parameter; anything but a positive integer is a 400
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(c, apperrors.Validation("Invalid id", err))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body, answering 400 on malformed input.
// An empty body leaves dst zeroed so the service reports missing fields.
func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, apperrors.Validation("Invalid request payload", err))
		return false
	}
	return true
}

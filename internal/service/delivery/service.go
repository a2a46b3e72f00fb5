package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/mugz-josh/Deliverieseasy/internal/domain/delivery"
	"github.com/mugz-josh/Deliverieseasy/internal/domain/user"
	"github.com/mugz-josh/Deliverieseasy/internal/service/notification"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
)

// EventType names a change pushed to live tracking subscribers
type EventType string

const (
	EventDeliveryCreated EventType = "delivery_created"
	EventStatusUpdated   EventType = "delivery_status_updated"
	EventLocationUpdated EventType = "delivery_location_updated"
)

// Event describes a committed change to a delivery
type Event struct {
	Type       EventType        `json:"type"`
	DeliveryID int64            `json:"delivery_id"`
	Status     domain.Status    `json:"status"`
	Delivery   *domain.Delivery `json:"delivery"`
}

// EventPublisher fans committed changes out to subscribers
type EventPublisher interface {
	PublishDeliveryEvent(ev Event)
}

// Recorder receives business metrics
type Recorder interface {
	RecordDeliveryCreated(deliveryID int64, paymentMethod string)
	RecordStatusChange(deliveryID int64, from, to string)
	RecordLocationUpdate()
	RecordNotification(success bool)
}

// Config holds service configuration
type Config struct {
	// StrictTransitions rejects status changes outside the state machine
	StrictTransitions bool
	// NotificationTimeout bounds one confirmation email
	NotificationTimeout time.Duration
}

// Service implements delivery and user operations
type Service struct {
	users      user.Repository
	deliveries domain.Repository
	notifier   notification.Notifier
	publisher  EventPublisher
	recorder   Recorder
	logger     *logger.Logger
	config     Config

	inflight sync.WaitGroup
}

// NewService creates a new delivery service
func NewService(users user.Repository, deliveries domain.Repository, notifier notification.Notifier, log *logger.Logger, cfg Config) *Service {
	if notifier == nil {
		notifier = notification.NopNotifier{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 30 * time.Second
	}
	return &Service{
		users:      users,
		deliveries: deliveries,
		notifier:   notifier,
		logger:     log,
		config:     cfg,
	}
}

// SetPublisher attaches live tracking. Call before serving requests.
func (s *Service) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// SetRecorder attaches metrics. Call before serving requests.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Wait blocks until pending confirmation emails have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) publish(t EventType, d *domain.Delivery) {
	if s.publisher == nil || d == nil {
		return
	}
	s.publisher.PublishDeliveryEvent(Event{Type: t, DeliveryID: d.ID, Status: d.Status, Delivery: d})
}

// notifyAsync sends the confirmation without holding up the response.
// Failures are logged only.
func (s *Service) notifyAsync(ctx context.Context, email, name, service string, bookingID int64) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.NotificationTimeout)
		defer cancel()

		res := s.notifier.SendBookingConfirmation(ctx, email, name, service, bookingID)
		if s.recorder != nil {
			s.recorder.RecordNotification(res.Success)
		}
		if res.Success {
			s.logger.Info("Confirmation email sent",
				logger.DeliveryID(bookingID),
				logger.String("email", email),
				logger.String("message_id", res.MessageID),
			)
			return
		}
		s.logger.Warn("Confirmation email could not be sent",
			logger.DeliveryID(bookingID),
			logger.String("email", email),
			logger.String("error", res.Error),
		)
	}()
}

// mapError converts repository and domain errors into AppErrors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var transitionErr *domain.TransitionError
	switch {
	case errors.As(err, &transitionErr):
		return apperrors.InvalidTransition(transitionErr.Error(), err)
	case errors.Is(err, domain.ErrDeliveryNotFound):
		return apperrors.NotFound("Delivery not found", err)
	case errors.Is(err, domain.ErrCustomerNotFound):
		return apperrors.Validation("Customer not found", err)
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return apperrors.Conflict("Delivery was modified concurrently, please retry", err)
	case errors.Is(err, user.ErrUserNotFound):
		return apperrors.NotFound("User not found", err)
	case errors.Is(err, user.ErrDuplicateEmail):
		return apperrors.Conflict("Email already registered", err)
	case errors.Is(err, user.ErrUserHasDeliveries):
		return apperrors.Conflict("User has deliveries and cannot be deleted", err)
	}
	return apperrors.Internal("Server error", err)
}

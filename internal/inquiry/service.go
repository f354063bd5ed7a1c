// Package inquiry implements the contact inquiry workflow: validation,
// persistence, notification hand-off and statistics.
package inquiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/clock"
	"github.com/bluecheck/inquiries/internal/metrics"
	"github.com/bluecheck/inquiries/internal/models"
	"github.com/bluecheck/inquiries/internal/notify"
	"github.com/bluecheck/inquiries/internal/store"
)

// Event kinds handed to the EventPublisher.
const (
	EventCreated = "inquiry.created"
	EventUpdated = "inquiry.updated"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
	maxPings         = 1000
)

// Notifier receives every inquiry after it has been stored. Implementations
// must not block the caller on delivery.
type Notifier interface {
	NotifyNewInquiry(ctx context.Context, inq models.Inquiry)
}

// EventPublisher fans inquiry changes out to live listeners.
type EventPublisher interface {
	PublishInquiryEvent(kind, id string, status models.Status)
}

type noopNotifier struct{}

func (noopNotifier) NotifyNewInquiry(context.Context, models.Inquiry) {}

type noopPublisher struct{}

func (noopPublisher) PublishInquiryEvent(string, string, models.Status) {}

// CreateResult is returned to the submitter of a new inquiry.
type CreateResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// UpdateResult confirms a status change.
type UpdateResult struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Service coordinates the store, the notifier and the event stream.
type Service struct {
	store          store.Store
	clock          clock.Clock
	notifier       Notifier
	events         EventPublisher
	logger         *slog.Logger
	responseWindow time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithNotifier sets who is told about new inquiries.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithEvents sets the live event publisher.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithResponseWindow sets the contact window promised in the create response.
func WithResponseWindow(d time.Duration) Option {
	return func(s *Service) { s.responseWindow = d }
}

// NewService creates a new inquiry service.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:          st,
		clock:          clock.NewSystem(),
		notifier:       noopNotifier{},
		events:         noopPublisher{},
		logger:         slog.Default(),
		responseWindow: 2 * time.Hour,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates and stores a new inquiry, then hands it to the notifier.
// Notification outcome never affects the result.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	now := s.clock.Now()
	inq := &models.Inquiry{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		PropertyAddress: in.PropertyAddress,
		InspectionType:  in.InspectionType,
		PreferredDate:   in.PreferredDate,
		Message:         in.Message,
		Status:          models.StatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.SaveInquiry(ctx, inq); err != nil {
		return nil, fmt.Errorf("save inquiry: %w", err)
	}

	metrics.RecordInquiryCreated(string(inq.InspectionType))
	s.logger.Info("inquiry created",
		slog.String("inquiry_id", inq.ID),
		slog.String("inspection_type", string(inq.InspectionType)))
	s.events.PublishInquiryEvent(EventCreated, inq.ID, inq.Status)
	s.notifier.NotifyNewInquiry(ctx, *inq)

	return &CreateResult{
		ID: inq.ID,
		Message: fmt.Sprintf("Your inspection request has been submitted successfully! "+
			"A confirmation email is on its way and we'll contact you within %s to confirm your appointment.",
			notify.HumanizeWindow(s.responseWindow)),
		Status: "success",
	}, nil
}

// Get returns a single inquiry.
func (s *Service) Get(ctx context.Context, id string) (*models.Inquiry, error) {
	inq, err := s.store.GetInquiry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inquiry %s: %w", id, err)
	}
	return inq, nil
}

// List returns inquiries newest first. A zero limit means DefaultListLimit;
// limits above MaxListLimit are clamped.
func (s *Service) List(ctx context.Context, status *models.Status, limit int) ([]models.Inquiry, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.NewValidationError("status", "must be one of: "+models.StatusList())
	}
	switch {
	case limit < 0:
		return nil, apperr.NewValidationError("limit", "must be no less than 0")
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	items, err := s.store.ListInquiries(ctx, store.ListFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	if items == nil {
		items = []models.Inquiry{}
	}
	return items, nil
}

// UpdateStatus moves an inquiry to any status and refreshes updated_at.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.Status) (*UpdateResult, error) {
	if !status.Valid() {
		return nil, apperr.NewValidationError("status", "must be one of: "+models.StatusList())
	}
	if err := s.store.UpdateInquiryStatus(ctx, id, status, s.clock.Now()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("inquiry %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("update inquiry status: %w", err)
	}

	metrics.RecordStatusUpdate(string(status))
	s.logger.Info("inquiry status updated",
		slog.String("inquiry_id", id),
		slog.String("status", string(status)))
	s.events.PublishInquiryEvent(EventUpdated, id, status)

	return &UpdateResult{
		Message: "Inquiry status updated to " + string(status),
		Status:  "success",
	}, nil
}

// RecordPing stores a status check from clientName.
func (s *Service) RecordPing(ctx context.Context, clientName string) (*models.StatusCheck, error) {
	sc := &models.StatusCheck{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  s.clock.Now(),
	}
	if err := s.store.SaveStatusCheck(ctx, sc); err != nil {
		return nil, fmt.Errorf("save status check: %w", err)
	}
	return sc, nil
}

// ListPings returns up to 1000 status checks.
func (s *Service) ListPings(ctx context.Context) ([]models.StatusCheck, error) {
	checks, err := s.store.ListStatusChecks(ctx, maxPings)
	if err != nil {
		return nil, fmt.Errorf("list status checks: %w", err)
	}
	if checks == nil {
		checks = []models.StatusCheck{}
	}
	return checks, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

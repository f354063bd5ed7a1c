// Package store persists inquiries and status checks.
//
// Two families of backends implement Store: DynamoDB, the document store used
// in deployment, and gorm-backed SQL (SQLite for local runs and tests,
// PostgreSQL for hosted SQL deployments).
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluecheck/inquiries/internal/models"
)

// Backend names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

// ListFilter narrows ListInquiries. A nil Status lists every inquiry.
type ListFilter struct {
	Status *models.Status
	Limit  int
}

// CountFilter narrows CountInquiries. Nil fields are not applied.
type CountFilter struct {
	Status         *models.Status
	InspectionType *models.InspectionType
	CreatedSince   *time.Time
}

// Store is the persistence contract used by the inquiry service.
type Store interface {
	SaveInquiry(ctx context.Context, inq *models.Inquiry) error
	// GetInquiry returns apperr.ErrNotFound when no inquiry has the id.
	GetInquiry(ctx context.Context, id string) (*models.Inquiry, error)
	// ListInquiries returns inquiries newest first, truncated to f.Limit.
	ListInquiries(ctx context.Context, f ListFilter) ([]models.Inquiry, error)
	// UpdateInquiryStatus never creates a record; a missing id yields apperr.ErrNotFound.
	UpdateInquiryStatus(ctx context.Context, id string, status models.Status, at time.Time) error
	CountInquiries(ctx context.Context, f CountFilter) (int64, error)

	SaveStatusCheck(ctx context.Context, sc *models.StatusCheck) error
	ListStatusChecks(ctx context.Context, limit int) ([]models.StatusCheck, error)

	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver   string
	URL      string
	DynamoDB DynamoOptions
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	switch opts.Driver {
	case DriverDynamoDB:
		return NewDynamoDB(ctx, opts.DynamoDB, logger)
	case DriverSQLite, DriverPostgres:
		return OpenSQL(opts.Driver, opts.URL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

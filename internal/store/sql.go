package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/models"
)

type inquiryRow struct {
	ID              string    `gorm:"primaryKey;size:36"`
	Name            string    `gorm:"size:100;not null"`
	Email           string    `gorm:"size:254;not null"`
	Phone           string    `gorm:"size:20;not null"`
	PropertyAddress string    `gorm:"size:200;not null"`
	InspectionType  string    `gorm:"size:32;not null;index"`
	PreferredDate   *string   `gorm:"size:100"`
	Message         *string   `gorm:"type:text"`
	Status          string    `gorm:"size:16;not null;index"`
	CreatedAt       time.Time `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (inquiryRow) TableName() string { return "contact_inquiries" }

func (r inquiryRow) toModel() models.Inquiry {
	return models.Inquiry{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		PropertyAddress: r.PropertyAddress,
		InspectionType:  models.InspectionType(r.InspectionType),
		PreferredDate:   r.PreferredDate,
		Message:         r.Message,
		Status:          models.Status(r.Status),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func inquiryRowFrom(inq *models.Inquiry) inquiryRow {
	return inquiryRow{
		ID:              inq.ID,
		Name:            inq.Name,
		Email:           inq.Email,
		Phone:           inq.Phone,
		PropertyAddress: inq.PropertyAddress,
		InspectionType:  string(inq.InspectionType),
		PreferredDate:   inq.PreferredDate,
		Message:         inq.Message,
		Status:          string(inq.Status),
		CreatedAt:       inq.CreatedAt.UTC(),
		UpdatedAt:       inq.UpdatedAt.UTC(),
	}
}

type statusCheckRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ClientName string    `gorm:"not null"`
	Timestamp  time.Time `gorm:"column:checked_at;not null;index"`
}

func (statusCheckRow) TableName() string { return "status_checks" }

// SQLStore is a gorm-backed Store.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL opens a SQLite file or PostgreSQL DSN and migrates the schema.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&inquiryRow{}, &statusCheckRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) SaveInquiry(ctx context.Context, inq *models.Inquiry) error {
	row := inquiryRowFrom(inq)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inquiry %s: %w", inq.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("insert inquiry: %w", err)
	}
	return nil
}

func (s *SQLStore) GetInquiry(ctx context.Context, id string) (*models.Inquiry, error) {
	var row inquiryRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inquiry: %w", err)
	}
	inq := row.toModel()
	return &inq, nil
}

func (s *SQLStore) ListInquiries(ctx context.Context, f ListFilter) ([]models.Inquiry, error) {
	q := s.db.WithContext(ctx).Model(&inquiryRow{})
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []inquiryRow
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	out := make([]models.Inquiry, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *SQLStore) UpdateInquiryStatus(ctx context.Context, id string, status models.Status, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&inquiryRow{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(status),
		"updated_at": at.UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update inquiry status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *SQLStore) CountInquiries(ctx context.Context, f CountFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&inquiryRow{})
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.InspectionType != nil {
		q = q.Where("inspection_type = ?", string(*f.InspectionType))
	}
	if f.CreatedSince != nil {
		q = q.Where("created_at >= ?", f.CreatedSince.UTC())
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count inquiries: %w", err)
	}
	return n, nil
}

func (s *SQLStore) SaveStatusCheck(ctx context.Context, sc *models.StatusCheck) error {
	row := statusCheckRow{ID: sc.ID, ClientName: sc.ClientName, Timestamp: sc.Timestamp.UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert status check: %w", err)
	}
	return nil
}

func (s *SQLStore) ListStatusChecks(ctx context.Context, limit int) ([]models.StatusCheck, error) {
	q := s.db.WithContext(ctx).Order("checked_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []statusCheckRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list status checks: %w", err)
	}
	out := make([]models.StatusCheck, len(rows))
	for i, r := range rows {
		out[i] = models.StatusCheck{ID: r.ID, ClientName: r.ClientName, Timestamp: r.Timestamp.UTC()}
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

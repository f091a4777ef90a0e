package confessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrNotFound indicates that no confession exists for the given identifier.
	ErrNotFound = errors.New("confessions: not found")
)

// ServiceError wraps storage-level failures with a dotted operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "confessions.service.new"
	opCreate         = "confessions.create"
	opListAll        = "confessions.list_all"
	opIncrementLikes = "confessions.increment_likes"
	opDelete         = "confessions.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the confession store.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// IDProvider issues unique confession identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// Service owns create/list/like/delete operations against confession records.
// Ordering is not its concern; callers rank the returned records themselves.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the confession store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Create persists a validated draft with a server-assigned id and timestamp
// and returns the stored record. Likes always start at zero.
func (s *Service) Create(ctx context.Context, draft Draft) (Confession, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Confession{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	record := Confession{
		ID:               id,
		Name:             draft.Name,
		Age:              draft.Age,
		City:             draft.City,
		Body:             draft.Body,
		ImageB64:         draft.ImageB64,
		CreatedAtSeconds: s.clock().UTC().Unix(),
		Likes:            0,
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("confession_id", id))
		return Confession{}, newServiceError(opCreate, "insert_failed", err)
	}

	return record, nil
}

// ListAll returns every persisted confession with no ordering guarantee.
func (s *Service) ListAll(ctx context.Context) ([]Confession, error) {
	var records []Confession
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		s.logError(opListAll, "query_failed", err)
		return nil, newServiceError(opListAll, "query_failed", err)
	}
	return records, nil
}

// IncrementLikes applies a single atomic likes = likes + 1 update. The
// increment is always expressed as a relative delta so concurrent calls
// never lose updates. Returns ErrNotFound when no row matched.
func (s *Service) IncrementLikes(ctx context.Context, id ConfessionID) error {
	result := s.db.WithContext(ctx).
		Model(&Confession{}).
		Where("id = ?", id.String()).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if result.Error != nil {
		s.logError(opIncrementLikes, "update_failed", result.Error, zap.String("confession_id", id.String()))
		return newServiceError(opIncrementLikes, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	return nil
}

// Delete removes a confession unconditionally. Returns ErrNotFound when
// the identifier matches nothing.
func (s *Service) Delete(ctx context.Context, id ConfessionID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", id.String()).
		Delete(&Confession{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("confession_id", id.String()))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("confession store error", attrs...)
}

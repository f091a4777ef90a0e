package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
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
	opServiceNew   = "users.service.new"
	opRegister     = "users.register"
	opAuthenticate = "users.authenticate"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies for account management.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
	// BcryptCost overrides the hashing cost; zero means bcrypt.DefaultCost.
	BcryptCost int
}

// Service manages email/password accounts.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	logger     *zap.Logger
	bcryptCost int
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		logger:     logger,
		bcryptCost: cost,
	}, nil
}

// Register creates a new account with a bcrypt password hash. The email
// must be unique; a duplicate yields ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, email, password string) (Account, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if err := validatePassword(password); err != nil {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logError(opRegister, "hash_failed", err)
		return Account{}, newServiceError(opRegister, "hash_failed", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.logError(opRegister, "id_generation_failed", err)
		return Account{}, newServiceError(opRegister, "id_generation_failed", err)
	}

	account := Account{
		ID:           id.String(),
		Email:        normalized,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		// Uniqueness is enforced by the index alone; a pre-read would
		// only reopen the race between check and insert. Requires a
		// connection opened with TranslateError.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Account{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, normalized)
		}
		s.logError(opRegister, "insert_failed", err)
		return Account{}, newServiceError(opRegister, "insert_failed", err)
	}

	return account, nil
}

// Authenticate verifies an email/password pair against the stored hash.
// Unknown addresses and mismatched passwords both yield
// ErrInvalidCredentials so callers cannot probe for registered emails.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return Account{}, ErrInvalidCredentials
	}

	var account Account
	err = s.db.WithContext(ctx).Where("email = ?", normalized).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		s.logError(opAuthenticate, "lookup_failed", err)
		return Account{}, newServiceError(opAuthenticate, "lookup_failed", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	return account, nil
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
	s.logger.Error("account service error", attrs...)
}

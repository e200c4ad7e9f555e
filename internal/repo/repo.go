package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"sgea/internal/model"
)

var (
	ErrAccountNotFound       = fmt.Errorf("account %w", model.ErrNotFound)
	ErrEventNotFound         = fmt.Errorf("event %w", model.ErrNotFound)
	ErrRegistrationNotFound  = fmt.Errorf("registration %w", model.ErrNotFound)
	ErrCertificateNotFound   = fmt.Errorf("certificate %w", model.ErrNotFound)
	ErrEventFull             = fmt.Errorf("registration refused: %w", model.ErrCapacity)
	ErrDuplicateRegistration = fmt.Errorf("duplicate registration: %w", model.ErrConflict)
	ErrRegistrationCertified = fmt.Errorf("registration holds a certificate: %w", model.ErrConflict)
	ErrCapacityBelowBooked   = model.Invalid("capacity", "is below the number of current registrations")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Repository interface {
	CreateAccount(ctx context.Context, a *model.Account) (int64, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*model.Account, error)

	CreateEvent(ctx context.Context, e *model.Event) (int64, error)
	UpdateEventTx(ctx context.Context, e *model.Event) error
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context, endingFrom time.Time) ([]model.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID int64) ([]model.Event, error)
	CountRegistrations(ctx context.Context, eventID int64) (int, error)

	BookRegistrationTx(ctx context.Context, reg *model.Registration) (int64, error)
	GetRegistrationByID(ctx context.Context, id int64) (*model.Registration, error)
	GetRegistrationsByEventID(ctx context.Context, eventID int64) ([]model.Registration, error)
	GetRegistrationsByAccountID(ctx context.Context, accountID int64) ([]model.Registration, error)
	ConfirmAttendanceTx(ctx context.Context, eventID int64, registrationIDs []int64, at time.Time) error
	CancelRegistrationTx(ctx context.Context, id int64) error

	CreatePendingCertificate(ctx context.Context, c *model.Certificate) (bool, error)
	GetCertificateByID(ctx context.Context, id int64) (*model.Certificate, error)
	GetCertificateByRegistrationID(ctx context.Context, registrationID int64) (*model.Certificate, error)
	CompleteCertificate(ctx context.Context, id int64, body string, issuedOn time.Time) (bool, error)
	GetCertificatesByAccountID(ctx context.Context, accountID int64) ([]model.Certificate, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

// MigrateUp applies every *.up.sql in lexical order. Scripts must be idempotent.
func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := r.execFile(file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations applied from %s", migrationsDir)
	return nil
}

// MigrateDown applies every *.down.sql in reverse lexical order.
func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, file := range files {
		if err := r.execFile(file); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations rolled back from %s", migrationsDir)
	return nil
}

func (r *repository) execFile(file string) error {
	sqlBytes, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	_, err = r.db.Master.ExecContext(context.Background(), string(sqlBytes))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// constraintViolation returns the violated constraint name when err is a Postgres error with the given code.
func constraintViolation(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr.Constraint, true
	}
	return "", false
}

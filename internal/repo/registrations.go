package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sgea/internal/model"
)

const registrationColumns = `id, account_id, event_id, attended_at, created_at`

// BookRegistrationTx inserts reg while holding a lock on the event row, so the
// duplicate and capacity checks see every concurrent booking for the event.
func (r *repository) BookRegistrationTx(ctx context.Context, reg *model.Registration) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var capacity int
	err = tx.QueryRowContext(ctx, `
		SELECT capacity
		FROM events
		WHERE id = $1
		FOR UPDATE
	`, reg.EventID).Scan(&capacity)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, fmt.Errorf("failed to lock event: %w", err)
	}

	var existing bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND account_id = $2)
	`, reg.EventID, reg.AccountID).Scan(&existing)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	if existing {
		_ = tx.Rollback()
		return 0, ErrDuplicateRegistration
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1
	`, reg.EventID).Scan(&count)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	if count >= capacity {
		_ = tx.Rollback()
		return 0, ErrEventFull
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (account_id, event_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, reg.AccountID, reg.EventID).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		if _, ok := constraintViolation(err, pqUniqueViolation); ok {
			return 0, ErrDuplicateRegistration
		}
		return 0, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if _, ok := constraintViolation(err, pqUniqueViolation); ok {
			return 0, ErrDuplicateRegistration
		}
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return reg.ID, nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id int64) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)

	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *repository) GetRegistrationsByEventID(ctx context.Context, eventID int64) ([]model.Registration, error) {
	return r.queryRegistrations(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
	`, eventID)
}

func (r *repository) GetRegistrationsByAccountID(ctx context.Context, accountID int64) ([]model.Registration, error) {
	return r.queryRegistrations(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC
	`, accountID)
}

// ConfirmAttendanceTx marks the given registrations of one event as attended. Either all of
// them belong to the event and are marked, or nothing changes.
func (r *repository) ConfirmAttendanceTx(ctx context.Context, eventID int64, registrationIDs []int64, at time.Time) error {
	ids := uniqueIDs(registrationIDs)
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET attended_at = COALESCE(attended_at, $1)
		WHERE event_id = $2 AND id = ANY($3)
	`, at, eventID, pq.Array(ids))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to confirm attendance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to confirm attendance: %w", err)
	}
	if int(affected) != len(ids) {
		_ = tx.Rollback()
		return ErrRegistrationNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CancelRegistrationTx deletes a registration unless it holds a certificate. The row lock
// conflicts with the key-share lock a certificate insert takes on its registration, so
// the certificate check and the delete cannot interleave with an issuance.
func (r *repository) CancelRegistrationTx(ctx context.Context, id int64) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM registrations WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to lock registration: %w", err)
	}

	var certified bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM certificates WHERE registration_id = $1)
	`, id).Scan(&certified)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to check certificate: %w", err)
	}
	if certified {
		_ = tx.Rollback()
		return ErrRegistrationCertified
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *repository) queryRegistrations(ctx context.Context, query string, args ...any) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return regs, nil
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg      model.Registration
		attended sql.NullTime
	)
	if err := row.Scan(&reg.ID, &reg.AccountID, &reg.EventID, &attended, &reg.CreatedAt); err != nil {
		return nil, err
	}
	if attended.Valid {
		reg.AttendedAt = &attended.Time
	}
	return &reg, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sgea/internal/model"
)

const eventColumns = `id, organizer_id, name, event_type, start_date, end_date, time_of_day,
	location, capacity, created_at, updated_at`

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	query := `
		INSERT INTO events (organizer_id, name, event_type, start_date, end_date, time_of_day, location, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Master.QueryRowContext(ctx, query,
		e.OrganizerID, e.Name, e.Type, e.StartDate, e.EndDate, e.Time, e.Location, e.Capacity,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if _, ok := constraintViolation(err, pqForeignKeyViolation); ok {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return e.ID, nil
}

// UpdateEventTx saves e while holding the event row lock that BookRegistrationTx takes,
// so the capacity can never drop below the registrations already booked.
func (r *repository) UpdateEventTx(ctx context.Context, e *model.Event) error {
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
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, e.ID).Scan(&locked)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to lock event: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1
	`, e.ID).Scan(&count)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to count registrations: %w", err)
	}
	if e.Capacity < count {
		_ = tx.Rollback()
		return ErrCapacityBelowBooked
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE events
		SET name = $1, event_type = $2, start_date = $3, end_date = $4,
		    time_of_day = $5, location = $6, capacity = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`, e.Name, e.Type, e.StartDate, e.EndDate, e.Time, e.Location, e.Capacity, e.ID).Scan(&e.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListEvents returns events ordered by start date. A zero endingFrom lists every event;
// otherwise only events whose end date is on or after it.
func (r *repository) ListEvents(ctx context.Context, endingFrom time.Time) ([]model.Event, error) {
	if endingFrom.IsZero() {
		return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_date ASC, id ASC`)
	}
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE end_date >= $1
		ORDER BY start_date ASC, id ASC
	`, model.DateOf(endingFrom))
}

func (r *repository) ListEventsByOrganizer(ctx context.Context, organizerID int64) ([]model.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE organizer_id = $1
		ORDER BY start_date ASC, id ASC
	`, organizerID)
}

func (r *repository) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *repository) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Type, &e.StartDate, &e.EndDate, &e.Time,
		&e.Location, &e.Capacity, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.StartDate = model.DateOf(e.StartDate)
	e.EndDate = model.DateOf(e.EndDate)
	return &e, nil
}

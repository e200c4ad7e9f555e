package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sgea/internal/model"
)

const certificateColumns = `c.id, c.registration_id, c.code, c.issued_on, c.body, c.status, c.created_at`

// CreatePendingCertificate inserts c as pending unless the registration already has a
// certificate, in which case c is filled with the existing row and false is returned.
func (r *repository) CreatePendingCertificate(ctx context.Context, c *model.Certificate) (bool, error) {
	query := `
		INSERT INTO certificates (registration_id, code, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (registration_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.db.Master.QueryRowContext(ctx, query, c.RegistrationID, c.Code).Scan(&c.ID, &c.CreatedAt)
	switch {
	case err == nil:
		c.Status = model.CertificatePending
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := getCertificate(r.db.Master.QueryRowContext(ctx,
			`SELECT `+certificateColumns+` FROM certificates c WHERE c.registration_id = $1`, c.RegistrationID))
		if err != nil {
			return false, err
		}
		*c = *existing
		return false, nil
	default:
		if _, ok := constraintViolation(err, pqForeignKeyViolation); ok {
			return false, ErrRegistrationNotFound
		}
		return false, fmt.Errorf("failed to insert certificate: %w", err)
	}
}

func (r *repository) GetCertificateByID(ctx context.Context, id int64) (*model.Certificate, error) {
	return getCertificate(r.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates c WHERE c.id = $1`, id))
}

func (r *repository) GetCertificateByRegistrationID(ctx context.Context, registrationID int64) (*model.Certificate, error) {
	return getCertificate(r.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates c WHERE c.registration_id = $1`, registrationID))
}

// CompleteCertificate moves a pending certificate to issued. It reports false when the
// certificate was already issued.
func (r *repository) CompleteCertificate(ctx context.Context, id int64, body string, issuedOn time.Time) (bool, error) {
	res, err := r.db.Master.ExecContext(ctx, `
		UPDATE certificates
		SET status = 'issued', body = $1, issued_on = $2
		WHERE id = $3 AND status = 'pending'
	`, body, model.DateOf(issuedOn), id)
	if err != nil {
		return false, fmt.Errorf("failed to complete certificate: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to complete certificate: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.Master.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM certificates WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check certificate: %w", err)
	}
	if !exists {
		return false, ErrCertificateNotFound
	}
	return false, nil
}

func (r *repository) GetCertificatesByAccountID(ctx context.Context, accountID int64) ([]model.Certificate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates c
		JOIN registrations reg ON reg.id = c.registration_id
		WHERE reg.account_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificates: %w", err)
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certificates: %w", err)
	}
	return certs, nil
}

func getCertificate(row rowScanner) (*model.Certificate, error) {
	c, err := scanCertificate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return c, nil
}

func scanCertificate(row rowScanner) (*model.Certificate, error) {
	var (
		c      model.Certificate
		issued sql.NullTime
		status string
	)
	if err := row.Scan(&c.ID, &c.RegistrationID, &c.Code, &issued, &c.Body, &status, &c.CreatedAt); err != nil {
		return nil, err
	}
	if issued.Valid {
		on := model.DateOf(issued.Time)
		c.IssuedOn = &on
	}
	c.Status = model.CertificateStatus(status)
	return &c, nil
}

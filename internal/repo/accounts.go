package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sgea/internal/model"
)

const accountColumns = `id, login, email, password_hash, name, phone, institution, role, created_at, updated_at`

func (r *repository) CreateAccount(ctx context.Context, a *model.Account) (int64, error) {
	query := `
		INSERT INTO accounts (login, email, password_hash, name, phone, institution, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Master.QueryRowContext(ctx, query,
		a.Login, a.Email, a.PasswordHash, a.Name, a.Phone, a.Institution, a.Role,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if constraint, ok := constraintViolation(err, pqUniqueViolation); ok {
			switch constraint {
			case "accounts_email_key":
				return 0, model.Invalid("email", "is already registered")
			case "accounts_login_key":
				return 0, model.Invalid("login", "is already taken")
			}
		}
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}
	return a.ID, nil
}

func (r *repository) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *repository) GetAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE login = $1`, login)
	return scanAccount(row)
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a           model.Account
		institution sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.Login, &a.Email, &a.PasswordHash, &a.Name, &a.Phone,
		&institution, &a.Role, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	if institution.Valid {
		a.Institution = &institution.String
	}
	return &a, nil
}

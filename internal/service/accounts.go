package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sgea/internal/auth"
	"sgea/internal/model"
)

var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", model.ErrPermission)

func (s *service) CreateAccount(ctx context.Context, in model.NewAccount) (*model.Account, error) {
	in.Login = strings.TrimSpace(in.Login)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Institution != nil {
		trimmed := strings.TrimSpace(*in.Institution)
		in.Institution = &trimmed
		if trimmed == "" && !in.Role.RequiresInstitution() {
			in.Institution = nil
		}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Institution:  in.Institution,
		Role:         in.Role,
	}
	if _, err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("account_id", account.ID).
		Str("role", account.Role.String()).
		Msg("account created")
	return account, nil
}

func (s *service) Authenticate(ctx context.Context, login, password string) (*model.Account, error) {
	account, err := s.repo.GetAccountByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		s.log.Warn().Int64("account_id", account.ID).Msg("login with wrong password")
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

func (s *service) Dashboard(ctx context.Context, actor model.Actor) (*model.Dashboard, error) {
	account, err := s.repo.GetAccountByID(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	d := &model.Dashboard{Account: account}

	switch account.Role {
	case model.RoleOrganizer:
		if d.Events, err = s.repo.ListEventsByOrganizer(ctx, account.ID); err != nil {
			return nil, err
		}
	case model.RoleStudent, model.RoleTeacher:
		if d.Registrations, err = s.repo.GetRegistrationsByAccountID(ctx, account.ID); err != nil {
			return nil, err
		}
		if d.Certificates, err = s.repo.GetCertificatesByAccountID(ctx, account.ID); err != nil {
			return nil, err
		}
	case model.RoleNone:
		return nil, denied("account has no role")
	}
	return d, nil
}

package service

import (
	"context"

	"sgea/internal/model"
)

func (s *service) Register(ctx context.Context, actor model.Actor, eventID int64) (*model.Registration, error) {
	if err := requireParticipant(actor, "register for events"); err != nil {
		return nil, err
	}

	reg := &model.Registration{AccountID: actor.AccountID, EventID: eventID}
	if _, err := s.repo.BookRegistrationTx(ctx, reg); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("registration_id", reg.ID).
		Int64("event_id", eventID).
		Int64("account_id", actor.AccountID).
		Msg("registration created successfully")
	return reg, nil
}

// CancelRegistration deletes a registration on behalf of its registrant or of the
// organizer owning the event. Registrations that already hold a certificate stay.
func (s *service) CancelRegistration(ctx context.Context, actor model.Actor, registrationID int64) error {
	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return err
	}

	allowed := false
	switch actor.Role {
	case model.RoleStudent, model.RoleTeacher:
		allowed = reg.AccountID == actor.AccountID
	case model.RoleOrganizer:
		event, err := s.repo.GetEventByID(ctx, reg.EventID)
		if err != nil {
			return err
		}
		allowed = event.OwnedBy(actor)
	case model.RoleNone:
	}
	if !allowed {
		return denied("registration %d belongs to someone else", registrationID)
	}

	if err := s.repo.CancelRegistrationTx(ctx, registrationID); err != nil {
		return err
	}

	s.log.Info().
		Int64("registration_id", registrationID).
		Int64("event_id", reg.EventID).
		Int64("by_account_id", actor.AccountID).
		Msg("registration canceled")
	return nil
}

func (s *service) ListRegistrants(ctx context.Context, actor model.Actor, eventID int64) ([]model.Registrant, error) {
	if _, err := s.ownedEvent(ctx, actor, eventID, "list registrants"); err != nil {
		return nil, err
	}

	regs, err := s.repo.GetRegistrationsByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := make([]model.Registrant, 0, len(regs))
	for _, reg := range regs {
		account, err := s.repo.GetAccountByID(ctx, reg.AccountID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Registrant{
			Registration: reg,
			Name:         account.Name,
			Email:        account.Email,
			Institution:  account.Institution,
		})
	}
	return out, nil
}

func (s *service) ConfirmAttendance(ctx context.Context, actor model.Actor, eventID int64, registrationIDs []int64) error {
	if _, err := s.ownedEvent(ctx, actor, eventID, "confirm attendance"); err != nil {
		return err
	}
	if len(registrationIDs) == 0 {
		return model.Invalid("registration_ids", "is required")
	}

	if err := s.repo.ConfirmAttendanceTx(ctx, eventID, registrationIDs, s.now()); err != nil {
		return err
	}

	s.log.Info().
		Int64("event_id", eventID).
		Int("count", len(registrationIDs)).
		Msg("attendance confirmed")
	return nil
}

func (s *service) ListMyRegistrations(ctx context.Context, actor model.Actor) ([]model.Registration, error) {
	if err := requireParticipant(actor, "hold registrations"); err != nil {
		return nil, err
	}
	return s.repo.GetRegistrationsByAccountID(ctx, actor.AccountID)
}

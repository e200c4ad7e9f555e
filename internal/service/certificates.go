package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"sgea/internal/dto"
	"sgea/internal/model"
)

const dateLayout = "02/01/2006"

// IssueCertificates creates one pending certificate per attended registration of the event
// and starts its completion. Each registration is handled on its own; the outcome list
// reports what happened to each.
func (s *service) IssueCertificates(ctx context.Context, actor model.Actor, eventID int64) ([]model.IssueOutcome, error) {
	event, err := s.ownedEvent(ctx, actor, eventID, "issue certificates")
	if err != nil {
		return nil, err
	}

	regs, err := s.repo.GetRegistrationsByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]model.IssueOutcome, 0, len(regs))
	for _, reg := range regs {
		if !reg.Attended() {
			continue
		}

		cert := &model.Certificate{RegistrationID: reg.ID, Code: uuid.NewString()}
		created, err := s.repo.CreatePendingCertificate(ctx, cert)
		if err != nil {
			s.log.Error().Err(err).Int64("registration_id", reg.ID).Msg("failed to create certificate")
			outcomes = append(outcomes, model.IssueOutcome{
				RegistrationID: reg.ID,
				Result:         model.IssueFailed,
				Error:          err.Error(),
			})
			continue
		}

		outcome := model.IssueOutcome{
			RegistrationID: reg.ID,
			CertificateID:  cert.ID,
			Result:         model.IssueExisting,
			Status:         cert.Status,
		}
		if created {
			outcome.Result = model.IssueCreated
		}
		// A pending certificate left by an earlier run is dispatched again.
		if cert.Status == model.CertificatePending {
			status, err := s.dispatch(ctx, cert, event)
			if err != nil {
				outcome.Error = err.Error()
			}
			outcome.Status = status
		}
		outcomes = append(outcomes, outcome)
	}

	s.log.Info().
		Int64("event_id", eventID).
		Int("outcomes", len(outcomes)).
		Msg("certificate issuance processed")
	return outcomes, nil
}

// dispatch queues the completion of a pending certificate, or completes it inline
// when no queue is configured or publishing fails.
func (s *service) dispatch(ctx context.Context, cert *model.Certificate, event *model.Event) (model.CertificateStatus, error) {
	if s.jobs != nil {
		payload, err := json.Marshal(dto.CertificateIssueMessage{
			CertificateID:  cert.ID,
			RegistrationID: cert.RegistrationID,
			EventID:        event.ID,
			QueuedAt:       s.now(),
		})
		if err == nil {
			err = s.jobs.Publish(ctx, payload)
		}
		if err == nil {
			return model.CertificatePending, nil
		}
		s.log.Warn().Err(err).Int64("certificate_id", cert.ID).Msg("failed to queue certificate, completing inline")
	}

	completed, err := s.CompleteCertificate(ctx, cert.ID)
	if err != nil {
		return model.CertificatePending, err
	}
	return completed.Status, nil
}

// CompleteCertificate renders the body of a pending certificate and marks it issued.
// Issued certificates are returned unchanged.
func (s *service) CompleteCertificate(ctx context.Context, certificateID int64) (*model.Certificate, error) {
	cert, err := s.repo.GetCertificateByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if !cert.Status.CanTransitionTo(model.CertificateIssued) {
		return cert, nil
	}

	reg, err := s.repo.GetRegistrationByID(ctx, cert.RegistrationID)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccountByID(ctx, reg.AccountID)
	if err != nil {
		return nil, err
	}
	event, err := s.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}

	issuedOn := s.now()
	updated, err := s.repo.CompleteCertificate(ctx, cert.ID, certificateBody(account, event, cert.Code), issuedOn)
	if err != nil {
		return nil, err
	}
	if updated {
		s.log.Info().
			Int64("certificate_id", cert.ID).
			Int64("registration_id", reg.ID).
			Msg("certificate issued")
	}
	return s.repo.GetCertificateByID(ctx, cert.ID)
}

func (s *service) ListMyCertificates(ctx context.Context, actor model.Actor) ([]model.Certificate, error) {
	if err := requireParticipant(actor, "hold certificates"); err != nil {
		return nil, err
	}
	return s.repo.GetCertificatesByAccountID(ctx, actor.AccountID)
}

func certificateBody(account *model.Account, event *model.Event, code string) string {
	period := event.StartDate.Format(dateLayout)
	if !event.EndDate.Equal(event.StartDate) {
		period = fmt.Sprintf("%s to %s", period, event.EndDate.Format(dateLayout))
	}
	return fmt.Sprintf(
		"This certifies that %s attended the %s \"%s\" held at %s on %s.\nVerification code: %s",
		account.Name, event.Type, event.Name, event.Location, period, code,
	)
}

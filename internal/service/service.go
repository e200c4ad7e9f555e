package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sgea/internal/model"
	"sgea/internal/repo"
)

type Service interface {
	CreateAccount(ctx context.Context, in model.NewAccount) (*model.Account, error)
	Authenticate(ctx context.Context, login, password string) (*model.Account, error)
	Dashboard(ctx context.Context, actor model.Actor) (*model.Dashboard, error)

	CreateEvent(ctx context.Context, actor model.Actor, e model.Event) (*model.Event, error)
	EditEvent(ctx context.Context, actor model.Actor, eventID int64, patch model.EventPatch) (*model.Event, error)
	ListEvents(ctx context.Context, activeOnly bool) ([]model.Event, error)
	GetEvent(ctx context.Context, eventID int64) (*model.Event, int, error)
	ListOwnedEvents(ctx context.Context, actor model.Actor) ([]model.Event, error)

	Register(ctx context.Context, actor model.Actor, eventID int64) (*model.Registration, error)
	CancelRegistration(ctx context.Context, actor model.Actor, registrationID int64) error
	ListRegistrants(ctx context.Context, actor model.Actor, eventID int64) ([]model.Registrant, error)
	ConfirmAttendance(ctx context.Context, actor model.Actor, eventID int64, registrationIDs []int64) error
	ListMyRegistrations(ctx context.Context, actor model.Actor) ([]model.Registration, error)

	IssueCertificates(ctx context.Context, actor model.Actor, eventID int64) ([]model.IssueOutcome, error)
	CompleteCertificate(ctx context.Context, certificateID int64) (*model.Certificate, error)
	ListMyCertificates(ctx context.Context, actor model.Actor) ([]model.Certificate, error)
}

// JobPublisher hands certificate issuance jobs to the background worker.
type JobPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

type service struct {
	repo repo.Repository
	log  *zerolog.Logger
	jobs JobPublisher
	now  func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService builds the operations layer. A nil jobs publisher makes certificate
// issuance complete inline.
func NewService(repo repo.Repository, logger *zerolog.Logger, jobs JobPublisher, opts ...Option) Service {
	s := &service{
		repo: repo,
		log:  logger,
		jobs: jobs,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) today() time.Time {
	return model.DateOf(s.now())
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrPermission, fmt.Sprintf(format, args...))
}

func requireOrganizer(actor model.Actor, action string) error {
	switch actor.Role {
	case model.RoleOrganizer:
		return nil
	case model.RoleStudent, model.RoleTeacher, model.RoleNone:
		return denied("only organizers can %s", action)
	}
	return denied("unknown role")
}

func requireParticipant(actor model.Actor, action string) error {
	switch actor.Role {
	case model.RoleStudent, model.RoleTeacher:
		return nil
	case model.RoleOrganizer, model.RoleNone:
		return denied("only students and teachers can %s", action)
	}
	return denied("unknown role")
}

func (s *service) ownedEvent(ctx context.Context, actor model.Actor, eventID int64, action string) (*model.Event, error) {
	if err := requireOrganizer(actor, action); err != nil {
		return nil, err
	}
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.OwnedBy(actor) {
		return nil, denied("event %d belongs to another organizer", eventID)
	}
	return event, nil
}

package service

import (
	"context"
	"strings"
	"time"

	"sgea/internal/model"
)

func (s *service) CreateEvent(ctx context.Context, actor model.Actor, e model.Event) (*model.Event, error) {
	if err := requireOrganizer(actor, "create events"); err != nil {
		return nil, err
	}

	e.ID = 0
	e.OrganizerID = actor.AccountID
	normalizeEvent(&e)
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.CreateEvent(ctx, &e); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("event_id", e.ID).
		Int64("organizer_id", e.OrganizerID).
		Msg("event created successfully")
	return &e, nil
}

func (s *service) EditEvent(ctx context.Context, actor model.Actor, eventID int64, patch model.EventPatch) (*model.Event, error) {
	event, err := s.ownedEvent(ctx, actor, eventID, "edit events")
	if err != nil {
		return nil, err
	}

	updated := *event
	patch.Apply(&updated)
	normalizeEvent(&updated)
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateEventTx(ctx, &updated); err != nil {
		return nil, err
	}

	s.log.Info().Int64("event_id", eventID).Msg("event updated")
	return &updated, nil
}

// ListEvents returns events by ascending start date; activeOnly drops events that ended before today.
func (s *service) ListEvents(ctx context.Context, activeOnly bool) ([]model.Event, error) {
	if activeOnly {
		return s.repo.ListEvents(ctx, s.today())
	}
	return s.repo.ListEvents(ctx, time.Time{})
}

func (s *service) GetEvent(ctx context.Context, eventID int64) (*model.Event, int, error) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.CountRegistrations(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	return event, count, nil
}

func (s *service) ListOwnedEvents(ctx context.Context, actor model.Actor) ([]model.Event, error) {
	if err := requireOrganizer(actor, "manage events"); err != nil {
		return nil, err
	}
	return s.repo.ListEventsByOrganizer(ctx, actor.AccountID)
}

func normalizeEvent(e *model.Event) {
	e.Name = strings.TrimSpace(e.Name)
	e.Type = strings.TrimSpace(e.Type)
	e.Time = strings.TrimSpace(e.Time)
	e.Location = strings.TrimSpace(e.Location)
	if !e.StartDate.IsZero() {
		e.StartDate = model.DateOf(e.StartDate)
	}
	if !e.EndDate.IsZero() {
		e.EndDate = model.DateOf(e.EndDate)
	}
}

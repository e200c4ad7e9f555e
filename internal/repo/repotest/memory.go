// Package repotest provides an in-memory repo.Repository that enforces the same
// uniqueness, capacity and cascade rules as the Postgres schema.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"sgea/internal/model"
	"sgea/internal/repo"
)

type Memory struct {
	mu     sync.Mutex
	nextID int64

	accounts      map[int64]model.Account
	events        map[int64]model.Event
	registrations map[int64]model.Registration
	certificates  map[int64]model.Certificate

	// FailCertificateFor makes CreatePendingCertificate fail for the given registration ids.
	FailCertificateFor map[int64]error
}

var _ repo.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts:           make(map[int64]model.Account),
		events:             make(map[int64]model.Event),
		registrations:      make(map[int64]model.Registration),
		certificates:       make(map[int64]model.Certificate),
		FailCertificateFor: make(map[int64]error),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) CreateAccount(_ context.Context, a *model.Account) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return 0, model.Invalid("email", "is already registered")
		}
		if existing.Login == a.Login {
			return 0, model.Invalid("login", "is already taken")
		}
	}
	a.ID = m.id()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.accounts[a.ID] = *a
	return a.ID, nil
}

func (m *Memory) GetAccountByID(_ context.Context, id int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, repo.ErrAccountNotFound
	}
	return &a, nil
}

func (m *Memory) GetAccountByLogin(_ context.Context, login string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if a.Login == login {
			return &a, nil
		}
	}
	return nil, repo.ErrAccountNotFound
}

func (m *Memory) CreateEvent(_ context.Context, e *model.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[e.OrganizerID]; !ok {
		return 0, repo.ErrAccountNotFound
	}
	e.ID = m.id()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.events[e.ID] = *e
	return e.ID, nil
}

func (m *Memory) UpdateEventTx(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[e.ID]; !ok {
		return repo.ErrEventNotFound
	}
	if e.Capacity < m.countLocked(e.ID) {
		return repo.ErrCapacityBelowBooked
	}
	e.UpdatedAt = time.Now()
	m.events[e.ID] = *e
	return nil
}

func (m *Memory) GetEventByID(_ context.Context, id int64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	return &e, nil
}

func (m *Memory) ListEvents(_ context.Context, endingFrom time.Time) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Event
	for _, e := range m.events {
		if !endingFrom.IsZero() && !e.IsActive(endingFrom) {
			continue
		}
		out = append(out, e)
	}
	sortEvents(out)
	return out, nil
}

func (m *Memory) ListEventsByOrganizer(_ context.Context, organizerID int64) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Event
	for _, e := range m.events {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (m *Memory) CountRegistrations(_ context.Context, eventID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(eventID), nil
}

func (m *Memory) countLocked(eventID int64) int {
	n := 0
	for _, r := range m.registrations {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

func (m *Memory) BookRegistrationTx(_ context.Context, reg *model.Registration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[reg.EventID]
	if !ok {
		return 0, repo.ErrEventNotFound
	}
	for _, r := range m.registrations {
		if r.EventID == reg.EventID && r.AccountID == reg.AccountID {
			return 0, repo.ErrDuplicateRegistration
		}
	}
	if m.countLocked(reg.EventID) >= e.Capacity {
		return 0, repo.ErrEventFull
	}
	reg.ID = m.id()
	reg.CreatedAt = time.Now()
	m.registrations[reg.ID] = *reg
	return reg.ID, nil
}

func (m *Memory) GetRegistrationByID(_ context.Context, id int64) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.registrations[id]
	if !ok {
		return nil, repo.ErrRegistrationNotFound
	}
	return &r, nil
}

func (m *Memory) GetRegistrationsByEventID(_ context.Context, eventID int64) ([]model.Registration, error) {
	return m.filterRegistrations(func(r model.Registration) bool { return r.EventID == eventID }), nil
}

func (m *Memory) GetRegistrationsByAccountID(_ context.Context, accountID int64) ([]model.Registration, error) {
	return m.filterRegistrations(func(r model.Registration) bool { return r.AccountID == accountID }), nil
}

func (m *Memory) filterRegistrations(keep func(model.Registration) bool) []model.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Registration
	for _, r := range m.registrations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ConfirmAttendanceTx(_ context.Context, eventID int64, registrationIDs []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range registrationIDs {
		r, ok := m.registrations[id]
		if !ok || r.EventID != eventID {
			return repo.ErrRegistrationNotFound
		}
	}
	for _, id := range registrationIDs {
		r := m.registrations[id]
		if r.AttendedAt == nil {
			stamp := at
			r.AttendedAt = &stamp
			m.registrations[id] = r
		}
	}
	return nil
}

func (m *Memory) CancelRegistrationTx(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registrations[id]; !ok {
		return repo.ErrRegistrationNotFound
	}
	for _, c := range m.certificates {
		if c.RegistrationID == id {
			return repo.ErrRegistrationCertified
		}
	}
	delete(m.registrations, id)
	return nil
}

func (m *Memory) CreatePendingCertificate(_ context.Context, c *model.Certificate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailCertificateFor[c.RegistrationID]; ok {
		return false, err
	}
	if _, ok := m.registrations[c.RegistrationID]; !ok {
		return false, repo.ErrRegistrationNotFound
	}
	for _, existing := range m.certificates {
		if existing.RegistrationID == c.RegistrationID {
			*c = existing
			return false, nil
		}
	}
	c.ID = m.id()
	c.Status = model.CertificatePending
	c.CreatedAt = time.Now()
	m.certificates[c.ID] = *c
	return true, nil
}

func (m *Memory) GetCertificateByID(_ context.Context, id int64) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.certificates[id]
	if !ok {
		return nil, repo.ErrCertificateNotFound
	}
	return &c, nil
}

func (m *Memory) GetCertificateByRegistrationID(_ context.Context, registrationID int64) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.certificates {
		if c.RegistrationID == registrationID {
			return &c, nil
		}
	}
	return nil, repo.ErrCertificateNotFound
}

func (m *Memory) CompleteCertificate(_ context.Context, id int64, body string, issuedOn time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.certificates[id]
	if !ok {
		return false, repo.ErrCertificateNotFound
	}
	if !c.Status.CanTransitionTo(model.CertificateIssued) {
		return false, nil
	}
	on := model.DateOf(issuedOn)
	c.Status = model.CertificateIssued
	c.Body = body
	c.IssuedOn = &on
	m.certificates[id] = c
	return true, nil
}

func (m *Memory) GetCertificatesByAccountID(_ context.Context, accountID int64) ([]model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Certificate
	for _, c := range m.certificates {
		if r, ok := m.registrations[c.RegistrationID]; ok && r.AccountID == accountID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) MigrateUp(string) error   { return nil }
func (m *Memory) MigrateDown(string) error { return nil }

// Certificates returns every stored certificate.
func (m *Memory) Certificates() []model.Certificate {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Certificate, 0, len(m.certificates))
	for _, c := range m.certificates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EventCount returns the number of stored events.
func (m *Memory) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func sortEvents(events []model.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})
}

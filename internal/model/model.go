package model

import (
	"strings"
	"time"
)

type Account struct {
	ID           int64     `db:"id" json:"id"`
	Login        string    `db:"login" json:"login"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Institution  *string   `db:"institution" json:"institution,omitempty"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NewAccount holds the sign-up form before the password is hashed.
type NewAccount struct {
	Login       string
	Email       string
	Password    string
	Name        string
	Phone       string
	Institution *string
	Role        Role
}

func (a NewAccount) Validate() error {
	switch {
	case blank(a.Login):
		return Invalid("login", "is required")
	case blank(a.Email):
		return Invalid("email", "is required")
	case blank(a.Password):
		return Invalid("password", "is required")
	case blank(a.Name):
		return Invalid("name", "is required")
	case blank(a.Phone):
		return Invalid("phone", "is required")
	}
	if !a.Role.Valid() {
		return Invalid("role", "must be student, teacher or organizer")
	}
	if a.Role.RequiresInstitution() && (a.Institution == nil || blank(*a.Institution)) {
		return Invalid("institution", "is required for students and teachers")
	}
	return nil
}

type Event struct {
	ID          int64     `db:"id" json:"id"`
	OrganizerID int64     `db:"organizer_id" json:"organizer_id"`
	Name        string    `db:"name" json:"name"`
	Type        string    `db:"event_type" json:"event_type"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Time        string    `db:"time_of_day" json:"time_of_day"`
	Location    string    `db:"location" json:"location"`
	Capacity    int       `db:"capacity" json:"capacity"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (e *Event) Validate() error {
	switch {
	case blank(e.Name):
		return Invalid("name", "is required")
	case blank(e.Type):
		return Invalid("event_type", "is required")
	case blank(e.Location):
		return Invalid("location", "is required")
	case e.StartDate.IsZero():
		return Invalid("start_date", "is required")
	case e.EndDate.IsZero():
		return Invalid("end_date", "is required")
	case DateOf(e.EndDate).Before(DateOf(e.StartDate)):
		return Invalid("end_date", "must not be before start_date")
	case e.Capacity < 0:
		return Invalid("capacity", "must not be negative")
	}
	return nil
}

// IsActive reports whether the event ends today or later.
func (e *Event) IsActive(today time.Time) bool {
	return !DateOf(e.EndDate).Before(DateOf(today))
}

func (e *Event) OwnedBy(a Actor) bool {
	return a.Role == RoleOrganizer && e.OrganizerID == a.AccountID
}

// EventPatch carries the fields of an edit; nil fields keep their value.
type EventPatch struct {
	Name      *string
	Type      *string
	StartDate *time.Time
	EndDate   *time.Time
	Time      *string
	Location  *string
	Capacity  *int
}

func (p EventPatch) Apply(e *Event) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.StartDate != nil {
		e.StartDate = DateOf(*p.StartDate)
	}
	if p.EndDate != nil {
		e.EndDate = DateOf(*p.EndDate)
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
}

type Registration struct {
	ID         int64      `db:"id" json:"id"`
	AccountID  int64      `db:"account_id" json:"account_id"`
	EventID    int64      `db:"event_id" json:"event_id"`
	AttendedAt *time.Time `db:"attended_at" json:"attended_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

func (r *Registration) Attended() bool {
	return r.AttendedAt != nil
}

type Certificate struct {
	ID             int64             `db:"id" json:"id"`
	RegistrationID int64             `db:"registration_id" json:"registration_id"`
	Code           string            `db:"code" json:"code"`
	IssuedOn       *time.Time        `db:"issued_on" json:"issued_on,omitempty"`
	Body           string            `db:"body" json:"body"`
	Status         CertificateStatus `db:"status" json:"status"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

// IssueOutcome is the per-registration result of issuing certificates for an event.
type IssueOutcome struct {
	RegistrationID int64             `json:"registration_id"`
	CertificateID  int64             `json:"certificate_id,omitempty"`
	Result         IssueResult       `json:"result"`
	Status         CertificateStatus `json:"status,omitempty"`
	Error          string            `json:"error,omitempty"`
}

type IssueResult string

const (
	IssueCreated  IssueResult = "created"
	IssueExisting IssueResult = "exists"
	IssueFailed   IssueResult = "failed"
)

// Registrant is a registration joined with the registrant's public profile.
type Registrant struct {
	Registration
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Institution *string `json:"institution,omitempty"`
}

// Dashboard is the landing data of an authenticated account.
type Dashboard struct {
	Account       *Account       `json:"account"`
	Events        []Event        `json:"events,omitempty"`
	Registrations []Registration `json:"registrations,omitempty"`
	Certificates  []Certificate  `json:"certificates,omitempty"`
}

// DateOf drops the clock part of t, keeping its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

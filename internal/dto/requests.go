package dto

import (
	"time"

	"sgea/internal/model"
)

// DateLayout is the wire format of event dates.
const DateLayout = "2006-01-02"

type CreateAccountRequest struct {
	Login       string  `json:"login" validate:"required,notblank,min=3,max=150"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	Name        string  `json:"name" validate:"required,notblank,max=255"`
	Phone       string  `json:"phone" validate:"required,notblank,max=32"`
	Institution *string `json:"institution" validate:"omitempty,max=255"`
	Role        string  `json:"role" validate:"required,role"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Account   *model.Account `json:"account"`
}

type CreateEventRequest struct {
	Name      string `json:"name" validate:"required,notblank,max=255"`
	EventType string `json:"event_type" validate:"required,notblank,max=50"`
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
	Time      string `json:"time_of_day" validate:"max=50"`
	Location  string `json:"location" validate:"required,notblank,max=255"`
	Capacity  *int   `json:"capacity" validate:"required,gte=0"`
}

func (r CreateEventRequest) ToModel() model.Event {
	e := model.Event{
		Name:      r.Name,
		Type:      r.EventType,
		StartDate: parseDate(r.StartDate),
		EndDate:   parseDate(r.EndDate),
		Time:      r.Time,
		Location:  r.Location,
	}
	if r.Capacity != nil {
		e.Capacity = *r.Capacity
	}
	return e
}

type EditEventRequest struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=255"`
	EventType *string `json:"event_type" validate:"omitempty,notblank,max=50"`
	StartDate *string `json:"start_date" validate:"omitempty,date"`
	EndDate   *string `json:"end_date" validate:"omitempty,date"`
	Time      *string `json:"time_of_day" validate:"omitempty,max=50"`
	Location  *string `json:"location" validate:"omitempty,notblank,max=255"`
	Capacity  *int    `json:"capacity" validate:"omitempty,gte=0"`
}

func (r EditEventRequest) ToPatch() model.EventPatch {
	p := model.EventPatch{
		Name:     r.Name,
		Type:     r.EventType,
		Time:     r.Time,
		Location: r.Location,
		Capacity: r.Capacity,
	}
	if r.StartDate != nil {
		d := parseDate(*r.StartDate)
		p.StartDate = &d
	}
	if r.EndDate != nil {
		d := parseDate(*r.EndDate)
		p.EndDate = &d
	}
	return p
}

type ConfirmAttendanceRequest struct {
	RegistrationIDs []int64 `json:"registration_ids" validate:"required,min=1,dive,gt=0"`
}

type EventResponse struct {
	ID             int64     `json:"id"`
	OrganizerID    int64     `json:"organizer_id"`
	Name           string    `json:"name"`
	EventType      string    `json:"event_type"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Time           string    `json:"time_of_day"`
	Location       string    `json:"location"`
	Capacity       int       `json:"capacity"`
	Registered     *int      `json:"registered,omitempty"`
	AvailableSeats *int      `json:"available_seats,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewEventResponse(e model.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		OrganizerID: e.OrganizerID,
		Name:        e.Name,
		EventType:   e.Type,
		StartDate:   e.StartDate.Format(DateLayout),
		EndDate:     e.EndDate.Format(DateLayout),
		Time:        e.Time,
		Location:    e.Location,
		Capacity:    e.Capacity,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// NewEventDetailResponse adds the registration count and remaining seats.
func NewEventDetailResponse(e model.Event, registered int) EventResponse {
	resp := NewEventResponse(e)
	available := e.Capacity - registered
	if available < 0 {
		available = 0
	}
	resp.Registered = &registered
	resp.AvailableSeats = &available
	return resp
}

func NewEventListResponse(events []model.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, NewEventResponse(e))
	}
	return out
}

type DashboardResponse struct {
	Account       *model.Account       `json:"account"`
	Events        []EventResponse      `json:"events,omitempty"`
	Registrations []model.Registration `json:"registrations,omitempty"`
	Certificates  []model.Certificate  `json:"certificates,omitempty"`
}

func NewDashboardResponse(d *model.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		Account:       d.Account,
		Registrations: d.Registrations,
		Certificates:  d.Certificates,
	}
	if len(d.Events) > 0 {
		resp.Events = NewEventListResponse(d.Events)
	}
	return resp
}

// parseDate expects input already checked by the "date" validation tag.
func parseDate(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of account profiles.
type Role int

const (
	RoleNone Role = iota
	RoleStudent
	RoleTeacher
	RoleOrganizer
)

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, nil
	case "teacher":
		return RoleTeacher, nil
	case "organizer":
		return RoleOrganizer, nil
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleTeacher:
		return "teacher"
	case RoleOrganizer:
		return "organizer"
	case RoleNone:
		return ""
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleOrganizer:
		return true
	case RoleNone:
		return false
	}
	return false
}

// IsParticipant reports whether the role may register for events and hold certificates.
func (r Role) IsParticipant() bool {
	switch r {
	case RoleStudent, RoleTeacher:
		return true
	case RoleOrganizer, RoleNone:
		return false
	}
	return false
}

func (r Role) RequiresInstitution() bool {
	return r.IsParticipant()
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return r.String(), nil
}

func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Actor is the caller of an operation, resolved from the request credentials.
type Actor struct {
	AccountID int64
	Role      Role
}

func (a Actor) Authenticated() bool {
	return a.AccountID != 0 && a.Role.Valid()
}

type CertificateStatus string

const (
	CertificatePending CertificateStatus = "pending"
	CertificateIssued  CertificateStatus = "issued"
)

// CanTransitionTo allows only pending -> issued.
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	return s == CertificatePending && next == CertificateIssued
}

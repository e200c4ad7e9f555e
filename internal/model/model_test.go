package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestNewAccountStudentWithoutInstitution(t *testing.T) {
	a := NewAccount{
		Login:    "ana",
		Email:    "ana@uni.br",
		Password: "secret123",
		Name:     "Ana",
		Phone:    "61 99999-0000",
		Role:     RoleStudent,
	}

	err := a.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "institution", verr.Field)

	a.Institution = strptr("   ")
	assert.Error(t, a.Validate())

	a.Institution = strptr("UnB")
	assert.NoError(t, a.Validate())
}

func TestNewAccountOrganizerNeedsNoInstitution(t *testing.T) {
	a := NewAccount{
		Login:    "org",
		Email:    "org@uni.br",
		Password: "secret123",
		Name:     "Org",
		Phone:    "123",
		Role:     RoleOrganizer,
	}
	assert.NoError(t, a.Validate())

	a.Role = RoleNone
	assert.ErrorIs(t, a.Validate(), ErrValidation)
}

func TestEventValidate(t *testing.T) {
	start := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	e := Event{Name: "Semana de TI", Type: "Palestra", Location: "Auditório", StartDate: start, EndDate: start, Capacity: 0}
	assert.NoError(t, e.Validate(), "same-day event with zero capacity is valid")

	e.EndDate = start.AddDate(0, 0, -1)
	var verr *ValidationError
	require.ErrorAs(t, e.Validate(), &verr)
	assert.Equal(t, "end_date", verr.Field)

	e.EndDate = start
	e.Capacity = -1
	require.ErrorAs(t, e.Validate(), &verr)
	assert.Equal(t, "capacity", verr.Field)
}

func TestEventIsActiveBoundary(t *testing.T) {
	today := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	e := Event{EndDate: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)}
	assert.True(t, e.IsActive(today), "ending today is active")

	e.EndDate = e.EndDate.AddDate(0, 0, -1)
	assert.False(t, e.IsActive(today))
}

func TestEventOwnedBy(t *testing.T) {
	e := Event{OrganizerID: 7}
	assert.True(t, e.OwnedBy(Actor{AccountID: 7, Role: RoleOrganizer}))
	assert.False(t, e.OwnedBy(Actor{AccountID: 8, Role: RoleOrganizer}))
	assert.False(t, e.OwnedBy(Actor{AccountID: 7, Role: RoleTeacher}))
}

func TestEventPatchApply(t *testing.T) {
	e := Event{Name: "old", Capacity: 10, Location: "A"}
	name := "new"
	capacity := 3
	EventPatch{Name: &name, Capacity: &capacity}.Apply(&e)

	assert.Equal(t, "new", e.Name)
	assert.Equal(t, 3, e.Capacity)
	assert.Equal(t, "A", e.Location)
}

func TestRoleParsingAndJSON(t *testing.T) {
	r, err := ParseRole(" Teacher ")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)

	b, err := json.Marshal(RoleOrganizer)
	require.NoError(t, err)
	assert.JSONEq(t, `"organizer"`, string(b))

	var decoded Role
	require.NoError(t, json.Unmarshal([]byte(`"student"`), &decoded))
	assert.Equal(t, RoleStudent, decoded)

	assert.True(t, RoleStudent.IsParticipant())
	assert.True(t, RoleTeacher.IsParticipant())
	assert.False(t, RoleOrganizer.IsParticipant())
	assert.False(t, RoleNone.IsParticipant())
}

func TestRoleScan(t *testing.T) {
	var r Role
	require.NoError(t, r.Scan([]byte("organizer")))
	assert.Equal(t, RoleOrganizer, r)
	assert.Error(t, r.Scan(12))

	_, err := RoleNone.Value()
	assert.Error(t, err)
}

func TestCertificateStatusTransitions(t *testing.T) {
	assert.True(t, CertificatePending.CanTransitionTo(CertificateIssued))
	assert.False(t, CertificateIssued.CanTransitionTo(CertificatePending))
	assert.False(t, CertificateIssued.CanTransitionTo(CertificateIssued))
	assert.False(t, CertificatePending.CanTransitionTo(CertificatePending))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	got := DateOf(time.Date(2026, 3, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

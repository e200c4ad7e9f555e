package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"sgea/internal/auth"
	"sgea/internal/model"
	"sgea/internal/repo/repotest"
	"sgea/internal/service"
)

type envelope struct {
	Status string `json:"status"`
	Error  *struct {
		Code  string `json:"code"`
		Desc  string `json:"desc"`
		Field string `json:"field"`
	} `json:"error"`
	Data json.RawMessage `json:"data"`
}

var apiNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

type testServer struct {
	t   *testing.T
	app *ginext.Engine
	mem *repotest.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	mem := repotest.NewMemory()
	svc := service.NewService(mem, &log, nil, service.WithClock(func() time.Time { return apiNow }))
	tokens, err := auth.NewManager("test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	return &testServer{
		t:   t,
		mem: mem,
		app: NewRouters(&Routers{Service: svc, Tokens: tokens, Issuer: tokens, Log: &log}),
	}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusFound && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *testServer) signUp(login, role string) string {
	s.t.Helper()
	body := map[string]any{
		"login":    login,
		"email":    login + "@uni.br",
		"password": "password123",
		"name":     "Name " + login,
		"phone":    "81999990000",
		"role":     role,
	}
	if role != "organizer" {
		body["institution"] = "UFPE"
	}
	rec, _ := s.do(http.MethodPost, "/cadastro/", "", body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(http.MethodPost, "/login/", "", map[string]string{"login": login, "password": "password123"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var lr struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &lr))
	require.NotEmpty(s.t, lr.Token)
	return lr.Token
}

func (s *testServer) createEvent(token string, capacity int) int64 {
	s.t.Helper()
	today := apiNow.Format("2006-01-02")
	rec, env := s.do(http.MethodPost, "/eventos/novo/", token, map[string]any{
		"name":        "Workshop de Go",
		"event_type":  "Workshop",
		"start_date":  today,
		"end_date":    today,
		"time_of_day": "14:00",
		"location":    "Lab 3",
		"capacity":    capacity,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var e struct {
		ID int64 `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &e))
	return e.ID
}

func dataID(t *testing.T, env envelope) int64 {
	t.Helper()
	var v struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignUpValidation(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(http.MethodPost, "/cadastro/", "", map[string]any{
		"login": "ana", "email": "ana@uni.br", "password": "password123",
		"name": "Ana", "phone": "1", "role": "student",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "institution", env.Error.Field)

	rec, env = s.do(http.MethodPost, "/cadastro/", "", map[string]any{
		"login": "ana", "email": "not-an-email", "password": "password123",
		"name": "Ana", "phone": "1", "role": "student", "institution": "UFPE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", env.Error.Field)

	s.signUp("ana", "student")
	rec, env = s.do(http.MethodPost, "/cadastro/", "", map[string]any{
		"login": "ana2", "email": "ana@uni.br", "password": "password123",
		"name": "Ana", "phone": "1", "role": "student", "institution": "UFPE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", env.Error.Field)
}

func TestBindReportsMistypedField(t *testing.T) {
	s := newTestServer(t)
	org := s.signUp("orga", "organizer")

	rec, env := s.do(http.MethodPost, "/eventos/novo/", org, map[string]any{
		"name":        "Workshop de Go",
		"event_type":  "Workshop",
		"start_date":  apiNow.Format("2006-01-02"),
		"end_date":    apiNow.Format("2006-01-02"),
		"time_of_day": "14:00",
		"location":    "Lab 3",
		"capacity":    "many",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FIELD_BADFORMAT", env.Error.Code)
	assert.Equal(t, "capacity", env.Error.Field)
	assert.Equal(t, 0, s.mem.EventCount())

	rec, env = s.do(http.MethodPost, "/eventos/novo/", org, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FIELD_BADFORMAT", env.Error.Code)
	assert.Empty(t, env.Error.Field)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.signUp("bob", "teacher")

	rec, env := s.do(http.MethodPost, "/login/", "", map[string]string{"login": "bob", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(http.MethodGet, "/dashboard/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/dashboard/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	student := s.signUp("carla", "student")
	org := s.signUp("orga", "organizer")

	rec, _ := s.do(http.MethodPost, "/eventos/novo/", student, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, s.mem.EventCount())

	eventID := s.createEvent(org, 5)
	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/inscrever/%d/", eventID), org, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/auditoria/", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(http.MethodGet, "/auditoria/", org, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "NOT_IMPLEMENTED", env.Error.Code)
}

func TestHomeRedirectsOrganizers(t *testing.T) {
	s := newTestServer(t)
	org := s.signUp("orga", "organizer")
	student := s.signUp("dani", "student")
	s.createEvent(org, 5)

	rec, _ := s.do(http.MethodGet, "/", org, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))

	rec, env := s.do(http.MethodGet, "/", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &events))
	assert.Len(t, events, 1)

	rec, _ = s.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventDetail(t *testing.T) {
	s := newTestServer(t)
	org := s.signUp("orga", "organizer")
	eventID := s.createEvent(org, 5)

	rec, env := s.do(http.MethodGet, fmt.Sprintf("/evento/%d/", eventID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, eventID, dataID(t, env))

	rec, env = s.do(http.MethodGet, "/evento/9999/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", env.Error.Code)

	rec, _ = s.do(http.MethodGet, "/evento/abc/", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationToCertificateFlow(t *testing.T) {
	s := newTestServer(t)
	org := s.signUp("orga", "organizer")
	student := s.signUp("eva", "student")
	teacher := s.signUp("fabio", "teacher")
	eventID := s.createEvent(org, 1)

	rec, env := s.do(http.MethodPost, fmt.Sprintf("/inscrever/%d/", eventID), student, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registrationID := dataID(t, env)

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/inscrever/%d/", eventID), student, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "REGISTRATION_DUPLICATE", env.Error.Code)

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/inscrever/%d/", eventID), teacher, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EVENT_FULL", env.Error.Code)

	rec, _ = s.do(http.MethodGet, fmt.Sprintf("/evento/%d/inscritos/", eventID), org, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/evento/%d/inscritos/", eventID), org, map[string]any{"registration_ids": []int64{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/evento/%d/inscritos/", eventID), org, map[string]any{"registration_ids": []int64{registrationID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/evento/%d/emitir_certificados/", eventID), org, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcomes []model.IssueOutcome
	require.NoError(t, json.Unmarshal(env.Data, &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.IssueCreated, outcomes[0].Result)

	rec, env = s.do(http.MethodGet, "/meus_certificados/", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var certs []model.Certificate
	require.NoError(t, json.Unmarshal(env.Data, &certs))
	require.Len(t, certs, 1)
	assert.Equal(t, model.CertificateIssued, certs[0].Status)

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/cancelar_inscricao/%d/", registrationID), student, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestCancelRegistration(t *testing.T) {
	s := newTestServer(t)
	org := s.signUp("orga", "organizer")
	student := s.signUp("gabi", "student")
	other := s.signUp("hugo", "student")
	eventID := s.createEvent(org, 3)

	_, env := s.do(http.MethodPost, fmt.Sprintf("/inscrever/%d/", eventID), student, nil)
	registrationID := dataID(t, env)

	rec, _ := s.do(http.MethodPost, fmt.Sprintf("/cancelar_inscricao/%d/", registrationID), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/cancelar_inscricao/%d/", registrationID), student, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/cancelar_inscricao/%d/", registrationID), student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REGISTRATION_NOT_FOUND", env.Error.Code)
}

func TestEditAndManageEvents(t *testing.T) {
	s := newTestServer(t)
	org := s.signUp("orga", "organizer")
	rival := s.signUp("orgb", "organizer")
	eventID := s.createEvent(org, 3)

	rec, _ := s.do(http.MethodPost, fmt.Sprintf("/eventos/editar/%d/", eventID), rival, map[string]any{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(http.MethodPost, fmt.Sprintf("/eventos/editar/%d/", eventID), org, map[string]any{"end_date": "1999-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end_date", env.Error.Field)

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/eventos/editar/%d/", eventID), org, map[string]any{"name": "Go avançado"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(http.MethodGet, "/eventos/gerenciar/", org, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Go avançado", events[0]["name"])

	rec, env = s.do(http.MethodGet, "/eventos/gerenciar/", rival, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events = nil
	require.NoError(t, json.Unmarshal(env.Data, &events))
	assert.Empty(t, events)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	student := s.signUp("iris", "student")

	rec, env := s.do(http.MethodGet, "/dashboard/", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", env.Status)
}

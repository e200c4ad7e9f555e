package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"sgea/cmd/middleware"
	"sgea/internal/dto"
	"sgea/internal/model"
	"sgea/internal/service"
	"sgea/pkg/validator"
)

// TokenIssuer signs the access token handed out on login.
type TokenIssuer interface {
	Issue(a *model.Account) (string, time.Time, error)
}

type handlers struct {
	svc    service.Service
	issuer TokenIssuer
	log    *zerolog.Logger
}

func (h *handlers) health(ctx *ginext.Context) {
	ctx.String(http.StatusOK, "ok")
}

func (h *handlers) ListEvents(ctx *ginext.Context) {
	if actor, ok := middleware.ActorFrom(ctx); ok && actor.Role == model.RoleOrganizer {
		ctx.Redirect(http.StatusFound, "/dashboard/")
		return
	}

	activeOnly := ctx.Query("todos") != "true"
	events, err := h.svc.ListEvents(ctx.Request.Context(), activeOnly)
	if err != nil {
		h.fail(ctx, err, "failed to list events")
		return
	}
	dto.SuccessResponse(ctx, dto.NewEventListResponse(events))
}

func (h *handlers) EventDetail(ctx *ginext.Context) {
	eventID, ok := idParam(ctx, "Invalid event ID")
	if !ok {
		return
	}

	event, registered, err := h.svc.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		h.fail(ctx, err, "failed to get event")
		return
	}
	dto.SuccessResponse(ctx, dto.NewEventDetailResponse(*event, registered))
}

func (h *handlers) CreateAccount(ctx *ginext.Context) {
	var req dto.CreateAccountRequest
	if !bind(ctx, &req) {
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		dto.FieldIncorrectError(ctx, "role", validator.ErrInvalidRole)
		return
	}

	account, err := h.svc.CreateAccount(ctx.Request.Context(), model.NewAccount{
		Login:       req.Login,
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Phone:       req.Phone,
		Institution: req.Institution,
		Role:        role,
	})
	if err != nil {
		h.fail(ctx, err, "failed to create account")
		return
	}
	dto.SuccessCreatedResponse(ctx, account)
}

func (h *handlers) Login(ctx *ginext.Context) {
	var req dto.LoginRequest
	if !bind(ctx, &req) {
		return
	}

	account, err := h.svc.Authenticate(ctx.Request.Context(), req.Login, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		dto.UnauthorizedError(ctx, "Invalid login or password")
		return
	}
	if err != nil {
		h.fail(ctx, err, "failed to authenticate")
		return
	}

	token, expiresAt, err := h.issuer.Issue(account)
	if err != nil {
		h.fail(ctx, err, "failed to issue token")
		return
	}
	dto.SuccessResponse(ctx, dto.LoginResponse{Token: token, ExpiresAt: expiresAt, Account: account})
}

func (h *handlers) Dashboard(ctx *ginext.Context) {
	actor, _ := middleware.ActorFrom(ctx)

	d, err := h.svc.Dashboard(ctx.Request.Context(), actor)
	if err != nil {
		h.fail(ctx, err, "failed to build dashboard")
		return
	}
	dto.SuccessResponse(ctx, dto.NewDashboardResponse(d))
}

func (h *handlers) Register(ctx *ginext.Context) {
	eventID, ok := idParam(ctx, "Invalid event ID")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(ctx)

	reg, err := h.svc.Register(ctx.Request.Context(), actor, eventID)
	if err != nil {
		h.fail(ctx, err, "failed to book registration")
		return
	}
	dto.SuccessCreatedResponse(ctx, reg)
}

func (h *handlers) CancelRegistration(ctx *ginext.Context) {
	registrationID, ok := idParam(ctx, "Invalid registration ID")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(ctx)

	if err := h.svc.CancelRegistration(ctx.Request.Context(), actor, registrationID); err != nil {
		h.fail(ctx, err, "failed to cancel registration")
		return
	}
	dto.SuccessResponse(ctx, map[string]int64{"canceled_registration_id": registrationID})
}

func (h *handlers) MyCertificates(ctx *ginext.Context) {
	actor, _ := middleware.ActorFrom(ctx)

	certs, err := h.svc.ListMyCertificates(ctx.Request.Context(), actor)
	if err != nil {
		h.fail(ctx, err, "failed to list certificates")
		return
	}
	if certs == nil {
		certs = []model.Certificate{}
	}
	dto.SuccessResponse(ctx, certs)
}

func (h *handlers) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if !bind(ctx, &req) {
		return
	}
	actor, _ := middleware.ActorFrom(ctx)

	event, err := h.svc.CreateEvent(ctx.Request.Context(), actor, req.ToModel())
	if err != nil {
		h.fail(ctx, err, "failed to create event")
		return
	}
	dto.SuccessCreatedResponse(ctx, dto.NewEventResponse(*event))
}

func (h *handlers) EditEvent(ctx *ginext.Context) {
	eventID, ok := idParam(ctx, "Invalid event ID")
	if !ok {
		return
	}
	var req dto.EditEventRequest
	if !bind(ctx, &req) {
		return
	}
	actor, _ := middleware.ActorFrom(ctx)

	event, err := h.svc.EditEvent(ctx.Request.Context(), actor, eventID, req.ToPatch())
	if err != nil {
		h.fail(ctx, err, "failed to edit event")
		return
	}
	dto.SuccessResponse(ctx, dto.NewEventResponse(*event))
}

func (h *handlers) ManageEvents(ctx *ginext.Context) {
	actor, _ := middleware.ActorFrom(ctx)

	events, err := h.svc.ListOwnedEvents(ctx.Request.Context(), actor)
	if err != nil {
		h.fail(ctx, err, "failed to list own events")
		return
	}
	dto.SuccessResponse(ctx, dto.NewEventListResponse(events))
}

func (h *handlers) Registrants(ctx *ginext.Context) {
	eventID, ok := idParam(ctx, "Invalid event ID")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(ctx)

	registrants, err := h.svc.ListRegistrants(ctx.Request.Context(), actor, eventID)
	if err != nil {
		h.fail(ctx, err, "failed to list registrants")
		return
	}
	dto.SuccessResponse(ctx, registrants)
}

func (h *handlers) ConfirmAttendance(ctx *ginext.Context) {
	eventID, ok := idParam(ctx, "Invalid event ID")
	if !ok {
		return
	}
	var req dto.ConfirmAttendanceRequest
	if !bind(ctx, &req) {
		return
	}
	actor, _ := middleware.ActorFrom(ctx)

	if err := h.svc.ConfirmAttendance(ctx.Request.Context(), actor, eventID, req.RegistrationIDs); err != nil {
		h.fail(ctx, err, "failed to confirm attendance")
		return
	}

	registrants, err := h.svc.ListRegistrants(ctx.Request.Context(), actor, eventID)
	if err != nil {
		h.fail(ctx, err, "failed to list registrants")
		return
	}
	dto.SuccessResponse(ctx, registrants)
}

func (h *handlers) IssueCertificates(ctx *ginext.Context) {
	eventID, ok := idParam(ctx, "Invalid event ID")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(ctx)

	outcomes, err := h.svc.IssueCertificates(ctx.Request.Context(), actor, eventID)
	if err != nil {
		h.fail(ctx, err, "failed to issue certificates")
		return
	}
	dto.SuccessResponse(ctx, outcomes)
}

func (h *handlers) AuditLog(ctx *ginext.Context) {
	dto.NotImplementedError(ctx, "Audit log is not available yet")
}

func (h *handlers) fail(ctx *ginext.Context, err error, msg string) {
	if dto.ErrorFrom(ctx, err) {
		h.log.Debug().Err(err).Msg(msg)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	_ = ctx.Error(err)
	dto.InternalServerError(ctx)
}

func idParam(ctx *ginext.Context, desc string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect, desc)
		return 0, false
	}
	return id, true
}

func bind(ctx *ginext.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			dto.FieldBadFormatError(ctx, typeErr.Field, validator.ErrInvalidFormat)
			return false
		}
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return false
	}
	if err := validator.Validate(ctx.Request.Context(), req); err != nil {
		var fe *validator.FieldError
		if errors.As(err, &fe) {
			dto.FieldIncorrectError(ctx, fe.Field, fe.Msg)
			return false
		}
		dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
		return false
	}
	return true
}

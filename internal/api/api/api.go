package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"sgea/cmd/middleware"
	"sgea/internal/model"
	"sgea/internal/service"
)

type Routers struct {
	Service service.Service
	Tokens  middleware.TokenParser
	Issuer  TokenIssuer
	Log     *zerolog.Logger
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	h := &handlers{svc: r.Service, issuer: r.Issuer, log: r.Log}
	optional := middleware.Authenticate(r.Tokens, false)
	required := middleware.Authenticate(r.Tokens, true)
	participant := middleware.RequireRoles(model.RoleStudent, model.RoleTeacher)
	organizer := middleware.RequireRoles(model.RoleOrganizer)

	app.GET("/health", h.health)

	app.GET("/", optional, h.ListEvents)
	app.GET("/evento/:id/", h.EventDetail)
	app.POST("/cadastro/", h.CreateAccount)
	app.POST("/login/", h.Login)

	authed := app.Group("/", required)
	authed.GET("/dashboard/", h.Dashboard)

	authed.POST("/inscrever/:id/", participant, h.Register)
	authed.POST("/cancelar_inscricao/:id/", h.CancelRegistration)
	authed.GET("/meus_certificados/", participant, h.MyCertificates)

	authed.POST("/eventos/novo/", organizer, h.CreateEvent)
	authed.POST("/eventos/editar/:id/", organizer, h.EditEvent)
	authed.GET("/eventos/gerenciar/", organizer, h.ManageEvents)
	authed.GET("/evento/:id/inscritos/", organizer, h.Registrants)
	authed.POST("/evento/:id/inscritos/", organizer, h.ConfirmAttendance)
	authed.POST("/evento/:id/emitir_certificados/", organizer, h.IssueCertificates)
	authed.GET("/auditoria/", organizer, h.AuditLog)

	return app
}

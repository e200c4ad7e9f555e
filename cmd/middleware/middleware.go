package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"sgea/internal/dto"
	"sgea/internal/model"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	actorKey        = "actor"
)

// TokenParser resolves a bearer token into the calling actor.
type TokenParser interface {
	Parse(token string) (model.Actor, error)
}

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		evt := zlog.Logger.Info()
		if status := c.Writer.Status(); status >= 500 {
			evt = zlog.Logger.Error()
		} else if status >= 400 {
			evt = zlog.Logger.Warn()
		}
		if actor, ok := ActorFrom(c); ok {
			evt = evt.Int64("account_id", actor.AccountID)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// Authenticate reads the bearer token. With required set, requests without a valid
// token are rejected; otherwise they continue anonymously.
func Authenticate(tokens TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			if required {
				dto.UnauthorizedError(c, "Authentication required")
				return
			}
			c.Next()
			return
		}

		actor, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			if required {
				dto.UnauthorizedError(c, "Invalid or expired token")
				return
			}
			c.Next()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			dto.UnauthorizedError(c, "Authentication required")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		dto.ForbiddenError(c, "Your profile cannot access this resource")
	}
}

func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok && actor.Authenticated()
}

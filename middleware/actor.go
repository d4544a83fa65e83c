package middleware

import (
	"strconv"
	"strings"

	"stayhub-backend/services"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Actor materializes the caller identity set by the upstream auth layer.
// Authentication itself is out of scope here; the gateway in front of this
// service injects the headers after validating the session.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := services.Actor{Role: services.RoleGuest}

		if raw := strings.TrimSpace(c.GetHeader("X-User-ID")); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				actor.UserID = uint(id)
			}
		}
		switch strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Role"))) {
		case services.RoleAdmin:
			actor.Role = services.RoleAdmin
		case services.RoleStaff:
			actor.Role = services.RoleStaff
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the caller identity for this request.
func ActorFrom(c *gin.Context) services.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok2 := v.(services.Actor); ok2 {
			return actor
		}
	}
	return services.Actor{Role: services.RoleGuest}
}

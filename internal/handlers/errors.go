package handlers

import (
	"github.com/gin-gonic/gin"

	"clinic-appointments-server/internal/access"
	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/scheduling"
	"clinic-appointments-server/internal/utils"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error) {
	switch scheduling.Kind(err) {
	case "not_found":
		utils.NotFound(c, err.Error())
	case "conflict":
		utils.Conflict(c, err.Error())
	case "forbidden":
		utils.Forbidden(c, err.Error())
	case "validation":
		utils.BadRequest(c, err.Error())
	default:
		_ = c.Error(err)
		utils.InternalServerError(c, "internal server error")
	}
}

// actorOrAbort reads the caller from the context set by AuthMiddleware.
func actorOrAbort(c *gin.Context) (access.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return access.Actor{}, false
	}
	return actor, true
}

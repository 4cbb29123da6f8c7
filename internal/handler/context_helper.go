package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/middleware"
)

// actorFromContext turns the authenticated claims into the actor recorded on ledger writes.
func actorFromContext(c *gin.Context) (dto.Actor, bool) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return dto.Actor{}, false
	}
	return dto.Actor{
		UserID:    claims.UserID,
		Name:      claims.Actor(),
		Role:      claims.Role,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}, true
}

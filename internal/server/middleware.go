package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/lingkodlabs/lingkod/internal/observability/context"
)

const (
	// HeaderActor carries the authenticated account identity resolved by
	// the portal gateway in front of this service.
	HeaderActor = "X-Actor-ID"

	contextAccountIDKey = "account_id"
)

func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := strings.TrimSpace(c.GetHeader(HeaderActor))
		if accountID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextAccountIDKey, accountID)
		ctx := obscontext.WithActor(c.Request.Context(), accountID, "")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) RequirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := s.accountID(c)
		if accountID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), accountID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) accountID(c *gin.Context) string {
	return c.GetString(contextAccountIDKey)
}

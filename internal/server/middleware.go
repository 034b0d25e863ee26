package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/matthieukhl/luxe/internal/auth"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxUser         = "user"
)

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ctxRequestID),
		}
		if u, ok := currentUser(c); ok {
			attrs = append(attrs, "user_id", u.ID)
		}
		if c.Writer.Status() >= 500 {
			s.logger.Error("request", attrs...)
			return
		}
		s.logger.Info("request", attrs...)
	}
}

// authRequired resolves the bearer access token to an active user. The token
// may also arrive as a query parameter, which browsers need for websockets.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			s.abortWithError(c, &shop.Error{Kind: shop.ErrUnauthorized, Message: "Authentication credentials were not provided."})
			return
		}

		claims, err := s.tokens.Parse(token, auth.AccessToken)
		if err != nil {
			s.abortWithError(c, &shop.Error{Kind: shop.ErrUnauthorized, Message: "Given token not valid for any token type."})
			return
		}
		id, err := claims.UserID()
		if err != nil {
			s.abortWithError(c, &shop.Error{Kind: shop.ErrUnauthorized, Message: "Given token not valid for any token type."})
			return
		}

		user, err := s.accounts.Active(c.Request.Context(), id)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.Set(ctxUser, user)
		c.Next()
	}
}

func (s *Server) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok || !u.IsStaff {
			s.abortWithError(c, &shop.Error{Kind: shop.ErrForbidden, Message: "You do not have admin access."})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

// mustUser returns the authenticated user; only call it behind authRequired.
func mustUser(c *gin.Context) *models.User {
	u, _ := currentUser(c)
	return u
}

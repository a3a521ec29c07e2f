package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

const (
	CtxSubjectKey  = "subject"
	CtxTokenIDKey  = "token_id"
	CtxTokenExpKey = "token_exp"
	CtxRequestID   = "request_id"
	CtxRealIP      = "real_ip"
)

const codeUnauthenticated = "UNAUTHENTICATED"

// RevocationChecker reports whether a token id was revoked by a logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Identity requires a valid identity token, read from the cookie or from an
// Authorization: Bearer header. The subject, the token id and its expiry are
// stored in the gin context.
func Identity(jwt *helpers.JWTManager, cookieName string, revoked RevocationChecker, logger logrus.FieldLogger) gin.HandlerFunc {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return func(c *gin.Context) {
		token := tokenFrom(c, cookieName)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "authentication required", codeUnauthenticated)
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid or expired token", codeUnauthenticated)
			return
		}
		if revoked != nil {
			gone, err := revoked.IsRevoked(c.Request.Context(), claims.RegisteredClaims.ID)
			if err != nil {
				// a Redis outage fails open; the signature was already checked
				logger.WithError(err).WithFields(logrus.Fields{
					"user_id":    claims.Subject().ID,
					"request_id": c.GetString(CtxRequestID),
				}).Warn("revocation check failed")
			}
			if err == nil && gone {
				response.Abort(c, http.StatusUnauthorized, "session ended", codeUnauthenticated)
				return
			}
		}
		c.Set(CtxSubjectKey, claims.Subject())
		c.Set(CtxTokenIDKey, claims.RegisteredClaims.ID)
		if claims.ExpiresAt != nil {
			c.Set(CtxTokenExpKey, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

func tokenFrom(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Subject returns the identity set by Identity, or the zero subject.
func Subject(c *gin.Context) entity.Subject {
	if v, ok := c.Get(CtxSubjectKey); ok {
		if s, ok := v.(entity.Subject); ok {
			return s
		}
	}
	return entity.Subject{}
}

// Token returns the id and expiry of the token that authenticated the request.
func Token(c *gin.Context) (string, time.Time) {
	exp, _ := c.Get(CtxTokenExpKey)
	t, _ := exp.(time.Time)
	return c.GetString(CtxTokenIDKey), t
}

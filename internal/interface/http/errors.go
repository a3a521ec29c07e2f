package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

// fail writes err as the error envelope. INTERNAL errors are logged with the
// request context and answered with a generic message.
func fail(c *gin.Context, logger logrus.FieldLogger, err error) {
	e := apperror.From(err)
	msg := e.Message
	if e.Kind == apperror.KindInternal {
		msg = "internal server error"
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"user_id":    middleware.Subject(c).ID,
				"request_id": c.GetString(middleware.CtxRequestID),
			}).Error("request failed")
		}
	}
	response.Error(c, apperror.Status(e.Kind), msg, string(e.Kind), e.Fields)
}

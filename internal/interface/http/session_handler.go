package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

type SessionHandler struct {
	Svc     *application.SessionService
	Cookies *helpers.Cookies
	Logger  logrus.FieldLogger
}

func NewSessionHandler(svc *application.SessionService, cookies *helpers.Cookies, logger logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{Svc: svc, Cookies: cookies, Logger: logger}
}

type sessionDTO struct {
	User      userDTO   `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *SessionHandler) Register(c *gin.Context) {
	var in application.RegisterInput
	if err := decodeStrict(c, &in, "first_name", "last_name", "email", "password"); err != nil {
		fail(c, h.Logger, err)
		return
	}
	s, err := h.Svc.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.Set(c, s.Token, s.ExpiresAt)
	response.Success(c, http.StatusCreated, toUserDTO(s.User), "user registered")
}

func (h *SessionHandler) Login(c *gin.Context) {
	var in application.LoginInput
	if err := decodeStrict(c, &in, "email", "password"); err != nil {
		fail(c, h.Logger, err)
		return
	}
	s, err := h.Svc.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.Set(c, s.Token, s.ExpiresAt)
	response.Success(c, http.StatusOK, sessionDTO{User: toUserDTO(s.User), ExpiresAt: s.ExpiresAt}, "login successful")
}

func (h *SessionHandler) Current(c *gin.Context) {
	u, err := h.Svc.Current(c.Request.Context(), middleware.Subject(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "")
}

func (h *SessionHandler) Logout(c *gin.Context) {
	jti, exp := middleware.Token(c)
	if err := h.Svc.Logout(c.Request.Context(), middleware.Subject(c), jti, exp); err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logged out")
}

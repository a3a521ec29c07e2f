package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-adoptme/internal/interface/http"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
)

// SessionModule wires /sessions.
// Public: POST register, POST login (rate limited per IP)
// Protected: GET current, POST logout
type SessionModule struct {
	Handler *handlers.SessionHandler
	Auth    gin.HandlerFunc
	Limiter middleware.Limiter
}

func NewSessionModule(h *handlers.SessionHandler, auth gin.HandlerFunc, limiter middleware.Limiter) *SessionModule {
	return &SessionModule{Handler: h, Auth: auth, Limiter: limiter}
}

func (m *SessionModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/sessions")
	loginLimiter := middleware.RateLimit(m.Limiter, 10, middleware.KeyByIPAndPath(), nil) // 10 req/min per IP

	g.POST("/register", loginLimiter, m.Handler.Register)
	g.POST("/login", loginLimiter, m.Handler.Login)

	auth := g.Group("")
	auth.Use(m.Auth)
	{
		auth.GET("/current", m.Handler.Current)
		auth.POST("/logout", m.Handler.Logout)
	}
}

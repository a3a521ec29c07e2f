package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-adoptme/internal/interface/http"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
)

type MockModule struct {
	Handler *handlers.MockHandler
	Auth    gin.HandlerFunc
	Limiter middleware.Limiter
}

func NewMockModule(h *handlers.MockHandler, auth gin.HandlerFunc, limiter middleware.Limiter) *MockModule {
	return &MockModule{Handler: h, Auth: auth, Limiter: limiter}
}

func (m *MockModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/mocks")
	// generating users hashes passwords
	g.Use(middleware.RateLimit(m.Limiter, 30, middleware.KeyByIPAndPath(), nil))

	g.GET("/mockingpets", m.Handler.Pets)
	g.GET("/mockingusers", m.Handler.Users)
	g.POST("/generateData", m.Auth, m.Handler.GenerateData)
}

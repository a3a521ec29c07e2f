package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-adoptme/internal/interface/http"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
)

// AdoptionModule registers /adoptions. Every route requires identity.
type AdoptionModule struct {
	Handler *handlers.AdoptionHandler
	Auth    gin.HandlerFunc
	Limiter middleware.Limiter
}

func NewAdoptionModule(h *handlers.AdoptionHandler, auth gin.HandlerFunc, limiter middleware.Limiter) *AdoptionModule {
	return &AdoptionModule{Handler: h, Auth: auth, Limiter: limiter}
}

func (m *AdoptionModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/adoptions")
	g.Use(m.Auth, middleware.RateLimit(m.Limiter, 120, middleware.KeyBySubject(), nil))
	{
		g.GET("", m.Handler.List)
		g.GET("/my-adoptions", m.Handler.ListForUser)
		g.GET("/user/:uid", m.Handler.ListForUser)
		g.POST("/user/:uid/pet/:pid", m.Handler.Create)
		g.GET("/:aid", m.Handler.Get)
		g.PUT("/:aid", m.Handler.Update)
		g.PUT("/:aid/approve", m.Handler.Approve())
		g.PUT("/:aid/reject", m.Handler.Reject())
		g.PUT("/:aid/cancel", m.Handler.Cancel())
		g.PUT("/:aid/complete", m.Handler.Complete())
		g.DELETE("/:aid", m.Handler.Delete)
	}
}

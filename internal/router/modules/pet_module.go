package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-adoptme/internal/interface/http"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
)

// PetModule: reads are public, writes require identity (the service checks the admin role).
type PetModule struct {
	Handler *handlers.PetHandler
	Auth    gin.HandlerFunc
	Limiter middleware.Limiter
}

func NewPetModule(h *handlers.PetHandler, auth gin.HandlerFunc, limiter middleware.Limiter) *PetModule {
	return &PetModule{Handler: h, Auth: auth, Limiter: limiter}
}

func (m *PetModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/pets")
	g.Use(middleware.RateLimit(m.Limiter, 300, middleware.KeyByIP(), nil))

	g.GET("", m.Handler.List)
	g.GET("/search", m.Handler.Search)
	g.GET("/:pid", m.Handler.Get)

	auth := g.Group("")
	auth.Use(m.Auth)
	{
		auth.POST("", m.Handler.Create)
		auth.POST("/withimage", m.Handler.CreateWithImage)
		auth.PUT("/:pid", m.Handler.Update)
		auth.DELETE("/:pid", m.Handler.Delete)
	}
}

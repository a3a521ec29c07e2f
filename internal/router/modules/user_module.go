package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-adoptme/internal/interface/http"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
)

type UserModule struct {
	Handler *handlers.UserHandler
	Auth    gin.HandlerFunc
	Limiter middleware.Limiter
}

func NewUserModule(h *handlers.UserHandler, auth gin.HandlerFunc, limiter middleware.Limiter) *UserModule {
	return &UserModule{Handler: h, Auth: auth, Limiter: limiter}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/users")
	g.Use(m.Auth, middleware.RateLimit(m.Limiter, 120, middleware.KeyBySubject(), nil))
	{
		g.GET("", m.Handler.List)
		g.GET("/:uid", m.Handler.Get)
		g.PUT("/:uid", m.Handler.Update)
		g.DELETE("/:uid", m.Handler.Delete)
		g.GET("/:uid/documents", m.Handler.Documents)
		g.POST("/:uid/documents", m.Handler.UploadDocuments)
		g.DELETE("/:uid/documents/:did", m.Handler.DeleteDocument)
	}
}

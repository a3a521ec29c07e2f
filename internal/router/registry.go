package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

// Module registers one resource's routes under the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules and mounts them on /api in the order they were added.
type Registry struct {
	Engine  *gin.Engine
	API     *gin.RouterGroup
	logger  logrus.FieldLogger
	modules []Module
}

func NewRegistry(engine *gin.Engine, logger logrus.FieldLogger) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api"), logger: logger}
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// RegisterAll mounts every module and answers unknown routes with the error envelope.
func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.API)
	}
	r.Engine.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "route not found", string(apperror.KindNotFound), nil)
	})

	if r.logger != nil {
		n := 0
		for _, ri := range r.Engine.Routes() {
			if strings.HasPrefix(ri.Path, "/api/") {
				n++
			}
		}
		r.logger.WithField("modules", len(r.modules)).Debugf("registered %d api routes", n)
	}
}

package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/go-adoptme/internal/container"
	handlers "github.com/oksasatya/go-adoptme/internal/interface/http"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/validation"
)

// New builds the gin engine with global middleware, the operational
// endpoints and every /api module.
func New(c *container.Container) *gin.Engine {
	validation.Init()
	cfg := c.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(), middleware.RealIP())
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(c.Logger))
	}
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
	}
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	r.MaxMultipartMemory = cfg.MaxBodyBytes

	checks := make(map[string]handlers.Check, len(c.Checks))
	for name, fn := range c.Checks {
		checks[name] = handlers.Check(fn)
	}
	r.GET("/health", handlers.NewHealthHandler(checks).Health)
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	reg := NewRegistry(r, c.Logger)
	InitModules(reg, c, BuildServices(c))
	reg.RegisterAll()
	return r
}

package router

import (
	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/container"
	handlers "github.com/oksasatya/go-adoptme/internal/interface/http"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/internal/router/modules"
)

// Services are the application services built from a container.
type Services struct {
	Adoptions *application.AdoptionService
	Sessions  *application.SessionService
	Users     *application.UserService
	Pets      *application.PetService
	Mocks     *application.MockService
}

func BuildServices(c *container.Container) Services {
	adoptions := application.NewAdoptionService(c.Adoptions, c.Pets, c.Users, c.Events, c.Logger)
	adoptions.Indexer = c.Indexer

	var revoker application.Revoker
	if c.Revocations != nil {
		revoker = c.Revocations
	}
	return Services{
		Adoptions: adoptions,
		Sessions:  application.NewSessionService(c.Users, c.JWT, revoker, c.Logger),
		Users:     application.NewUserService(c.Users, c.Adoptions, c.Files, c.Logger),
		Pets:      application.NewPetService(c.Pets, c.Files, c.Indexer, c.Logger),
		Mocks:     application.NewMockService(c.Users, c.Pets, c.Logger),
	}
}

// InitModules builds the handlers for svc and registers every module.
// It should be called once during startup.
func InitModules(r *Registry, c *container.Container, svc Services) {
	var revoked middleware.RevocationChecker
	if c.Revocations != nil {
		revoked = c.Revocations
	}
	auth := middleware.Identity(c.JWT, c.Config.CookieName, revoked, c.Logger)
	limiter := c.Limiter()

	r.Add(modules.NewSessionModule(handlers.NewSessionHandler(svc.Sessions, c.Cookies, c.Logger), auth, limiter))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc.Users, c.Logger), auth, limiter))
	r.Add(modules.NewPetModule(handlers.NewPetHandler(svc.Pets, c.Logger), auth, limiter))
	r.Add(modules.NewAdoptionModule(handlers.NewAdoptionHandler(svc.Adoptions, c.Logger), auth, limiter))
	r.Add(modules.NewMockModule(handlers.NewMockHandler(svc.Mocks, c.Logger), auth, limiter))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limiter, svc.Adoptions.Stats))
	}
}

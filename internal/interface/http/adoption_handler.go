package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

type AdoptionHandler struct {
	Svc    *application.AdoptionService
	Logger logrus.FieldLogger
}

func NewAdoptionHandler(svc *application.AdoptionService, logger logrus.FieldLogger) *AdoptionHandler {
	return &AdoptionHandler{Svc: svc, Logger: logger}
}

type createAdoptionRequest struct {
	Notes       *string  `json:"notes"`
	AdoptionFee *float64 `json:"adoptionFee"`
}

type updateAdoptionRequest struct {
	Status      *entity.AdoptionStatus `json:"status"`
	Notes       *string                `json:"notes"`
	AdoptionFee *float64               `json:"adoptionFee"`
}

type transitionRequest struct {
	Notes *string `json:"notes"`
}

func (h *AdoptionHandler) listInput(c *gin.Context) (application.ListAdoptionsInput, error) {
	page, err := bindPage(c)
	if err != nil {
		return application.ListAdoptionsInput{}, err
	}
	return application.ListAdoptionsInput{Status: entity.AdoptionStatus(c.Query("status")), Page: page}, nil
}

func (h *AdoptionHandler) List(c *gin.Context) {
	in, err := h.listInput(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	page, err := h.Svc.List(c.Request.Context(), middleware.Subject(c), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.List(c, mapAll(page.Items, toAdoptionDTO), pagination(page))
}

// ListForUser serves GET /adoptions/user/:uid and, with no uid, the subject's own list.
func (h *AdoptionHandler) ListForUser(c *gin.Context) {
	subj := middleware.Subject(c)
	uid := c.Param("uid")
	if uid == "" {
		uid = subj.ID
	}
	in, err := h.listInput(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	page, err := h.Svc.ListForUser(c.Request.Context(), subj, uid, in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.List(c, mapAll(page.Items, toAdoptionDTO), pagination(page))
}

func (h *AdoptionHandler) Get(c *gin.Context) {
	a, err := h.Svc.Get(c.Request.Context(), middleware.Subject(c), c.Param("aid"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAdoptionDTO(a), "")
}

func (h *AdoptionHandler) Create(c *gin.Context) {
	var req createAdoptionRequest
	if err := decodeStrict(c, &req, "notes", "adoptionFee"); err != nil {
		fail(c, h.Logger, err)
		return
	}
	a, err := h.Svc.Create(c.Request.Context(), middleware.Subject(c), c.Param("uid"), c.Param("pid"),
		application.CreateAdoptionInput{Notes: req.Notes, AdoptionFee: req.AdoptionFee})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toAdoptionDTO(a), "adoption requested")
}

func (h *AdoptionHandler) Update(c *gin.Context) {
	var req updateAdoptionRequest
	if err := decodeStrict(c, &req, "status", "notes", "adoptionFee"); err != nil {
		fail(c, h.Logger, err)
		return
	}
	a, err := h.Svc.Update(c.Request.Context(), middleware.Subject(c), c.Param("aid"),
		application.UpdateAdoptionInput{Status: req.Status, Notes: req.Notes, AdoptionFee: req.AdoptionFee})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAdoptionDTO(a), "adoption updated")
}

type transitionFunc func(ctx context.Context, subj entity.Subject, id string, notes *string) (*entity.Adoption, error)

// transition builds the handler for one of the explicit transition routes.
func (h *AdoptionHandler) transition(fn transitionFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transitionRequest
		if err := decodeStrict(c, &req, "notes"); err != nil {
			fail(c, h.Logger, err)
			return
		}
		a, err := fn(c.Request.Context(), middleware.Subject(c), c.Param("aid"), req.Notes)
		if err != nil {
			fail(c, h.Logger, err)
			return
		}
		response.Success(c, http.StatusOK, toAdoptionDTO(a), message)
	}
}

func (h *AdoptionHandler) Approve() gin.HandlerFunc  { return h.transition(h.Svc.Approve, "adoption approved") }
func (h *AdoptionHandler) Reject() gin.HandlerFunc   { return h.transition(h.Svc.Reject, "adoption rejected") }
func (h *AdoptionHandler) Cancel() gin.HandlerFunc   { return h.transition(h.Svc.Cancel, "adoption cancelled") }
func (h *AdoptionHandler) Complete() gin.HandlerFunc { return h.transition(h.Svc.Complete, "adoption completed") }

func (h *AdoptionHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.Subject(c), c.Param("aid")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "adoption deleted")
}

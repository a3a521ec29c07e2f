package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

var (
	petFields       = []string{"name", "specie", "breed", "birthDate", "image", "description", "location"}
	petUpdateFields = []string{"name", "breed", "birthDate", "image", "description", "location", "status"}
)

type PetHandler struct {
	Svc    *application.PetService
	Logger logrus.FieldLogger
}

func NewPetHandler(svc *application.PetService, logger logrus.FieldLogger) *PetHandler {
	return &PetHandler{Svc: svc, Logger: logger}
}

func (h *PetHandler) List(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	in := application.PetListInput{
		Specie: entity.Species(c.Query("specie")),
		Status: entity.PetStatus(c.Query("status")),
		Page:   page,
	}
	if v := c.Query("adopted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, h.Logger, apperror.Validation("invalid filter", map[string]string{"adopted": "must be true or false"}))
			return
		}
		in.Adopted = &b
	}
	res, err := h.Svc.List(c.Request.Context(), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.List(c, mapAll(res.Items, toPetDTO), pagination(res))
}

func (h *PetHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("pid"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toPetDTO(p), "")
}

func (h *PetHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	pets, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, mapAll(pets, toPetDTO), "")
}

func (h *PetHandler) Create(c *gin.Context) {
	var in application.CreatePetInput
	if err := decodeStrict(c, &in, petFields...); err != nil {
		fail(c, h.Logger, err)
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), middleware.Subject(c), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toPetDTO(p), "pet created")
}

// CreateWithImage reads the pet from multipart form fields plus an "image" file.
// Location comes as city, state and country fields.
func (h *PetHandler) CreateWithImage(c *gin.Context) {
	in, err := petFromForm(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, h.Logger, apperror.Validation("image is required", map[string]string{"image": "is required"}))
		return
	}
	uploads, closeAll, err := openUploads([]*multipart.FileHeader{fh})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	defer closeAll()
	p, err := h.Svc.CreateWithImage(c.Request.Context(), middleware.Subject(c), in, uploads[0])
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toPetDTO(p), "pet created")
}

func petFromForm(c *gin.Context) (application.CreatePetInput, error) {
	in := application.CreatePetInput{
		Name:        c.PostForm("name"),
		Specie:      entity.Species(c.PostForm("specie")),
		Breed:       c.PostForm("breed"),
		Description: c.PostForm("description"),
	}
	if v := strings.TrimSpace(c.PostForm("birthDate")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return in, apperror.Validation("invalid payload", map[string]string{"birthDate": "must be a date (YYYY-MM-DD)"})
		}
		in.BirthDate = &t
	}
	loc := entity.Location{City: c.PostForm("city"), State: c.PostForm("state"), Country: c.PostForm("country")}
	if loc != (entity.Location{}) {
		in.Location = &loc
	}
	return in, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func (h *PetHandler) Update(c *gin.Context) {
	var in application.UpdatePetInput
	if err := decodeStrict(c, &in, petUpdateFields...); err != nil {
		fail(c, h.Logger, err)
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), middleware.Subject(c), c.Param("pid"), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toPetDTO(p), "pet updated")
}

func (h *PetHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.Subject(c), c.Param("pid")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "pet deleted")
}

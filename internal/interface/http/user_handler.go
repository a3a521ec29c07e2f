package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger logrus.FieldLogger
}

func NewUserHandler(svc *application.UserService, logger logrus.FieldLogger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

func (h *UserHandler) List(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	res, err := h.Svc.List(c.Request.Context(), middleware.Subject(c), entity.Role(c.Query("role")), page)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.List(c, mapAll(res.Items, toUserDTO), pagination(res))
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), middleware.Subject(c), c.Param("uid"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "")
}

func (h *UserHandler) Update(c *gin.Context) {
	var in application.UpdateUserInput
	if err := decodeStrict(c, &in, "first_name", "last_name", "email", "role"); err != nil {
		fail(c, h.Logger, err)
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), middleware.Subject(c), c.Param("uid"), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "user updated")
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.Subject(c), c.Param("uid")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "user deleted")
}

func (h *UserHandler) Documents(c *gin.Context) {
	docs, err := h.Svc.Documents(c.Request.Context(), middleware.Subject(c), c.Param("uid"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toDocumentDTOs(docs), "")
}

// UploadDocuments accepts the multipart field "documents" (one or more files).
func (h *UserHandler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["documents"]) == 0 {
		fail(c, h.Logger, apperror.Validation("no documents uploaded", map[string]string{"documents": "is required"}))
		return
	}
	uploads, closeAll, err := openUploads(form.File["documents"])
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	defer closeAll()
	docs, err := h.Svc.AddDocuments(c.Request.Context(), middleware.Subject(c), c.Param("uid"), uploads)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toDocumentDTOs(docs), "documents uploaded")
}

func (h *UserHandler) DeleteDocument(c *gin.Context) {
	if err := h.Svc.RemoveDocument(c.Request.Context(), middleware.Subject(c), c.Param("uid"), c.Param("did")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "document deleted")
}

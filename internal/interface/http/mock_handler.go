package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/response"
)

type MockHandler struct {
	Svc    *application.MockService
	Logger logrus.FieldLogger
}

func NewMockHandler(svc *application.MockService, logger logrus.FieldLogger) *MockHandler {
	return &MockHandler{Svc: svc, Logger: logger}
}

func queryCount(c *gin.Context) (int, error) {
	v := c.Query("count")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.Validation("invalid count", map[string]string{"count": "must be a number"})
	}
	return n, nil
}

func (h *MockHandler) Pets(c *gin.Context) {
	n, err := queryCount(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	pets, err := h.Svc.MockPets(n)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, mapAll(pets, toPetDTO), "")
}

func (h *MockHandler) Users(c *gin.Context) {
	n, err := queryCount(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	users, err := h.Svc.MockUsers(n)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, mapAll(users, toUserDTO), "")
}

func (h *MockHandler) GenerateData(c *gin.Context) {
	var in application.GenerateDataInput
	if err := decodeStrict(c, &in, "users", "pets"); err != nil {
		fail(c, h.Logger, err)
		return
	}
	res, err := h.Svc.GenerateData(c.Request.Context(), middleware.Subject(c), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, res, "mock data generated")
}

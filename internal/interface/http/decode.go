package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/validation"
)

// decodeStrict reads a JSON object body into dst, rejecting keys outside
// allowed. An empty body leaves dst untouched.
func decodeStrict(c *gin.Context, dst any, allowed ...string) error {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.Validation("request body too large", map[string]string{"payload": "too large"})
		}
		return apperror.Validation("could not read request body", nil)
	}
	unknown, err := validation.UnknownFields(raw, allowed...)
	if err != nil {
		return apperror.Validation("invalid payload", validation.ToDetails(err))
	}
	if len(unknown) > 0 {
		return apperror.UnknownFields(unknown)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.Validation("invalid payload", validation.ToDetails(err))
	}
	return nil
}

type pageQuery struct {
	Page  int `json:"page" form:"page" binding:"omitempty,min=1,max=1000000"`
	Limit int `json:"limit" form:"limit" binding:"omitempty,min=1"`
}

// bindPage reads page and limit; limit is clamped to repository.MaxLimit.
func bindPage(c *gin.Context) (repo.Page, error) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return repo.Page{}, apperror.Validation("invalid pagination", validation.ToDetails(err))
	}
	return repo.Page{Page: q.Page, Limit: q.Limit}.Normalize(), nil
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Pagination describes one page of a list response.
type Pagination struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Pages       int   `json:"pages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

type APIResponse[T any] struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Data       T           `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status    string            `json:"status"`
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Success writes a success envelope.
func Success[T any](ctx *gin.Context, status int, data T, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, APIResponse[T]{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		RequestID: ctx.GetString("request_id"),
	})
}

// List writes a success envelope carrying pagination.
func List[T any](ctx *gin.Context, data []T, p Pagination) {
	if data == nil {
		data = []T{}
	}
	ctx.JSON(http.StatusOK, APIResponse[[]T]{
		Status:     StatusSuccess,
		Data:       data,
		Pagination: &p,
		RequestID:  ctx.GetString("request_id"),
	})
}

// NewError builds the error envelope without writing it.
func NewError(ctx *gin.Context, message, code string, details map[string]string) ErrorResponse {
	return ErrorResponse{
		Status:    StatusError,
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: ctx.GetString("request_id"),
	}
}

// Error writes an error envelope.
func Error(ctx *gin.Context, status int, message, code string, details map[string]string) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.JSON(status, NewError(ctx, message, code, details))
}

// Abort writes an error envelope and stops the handler chain.
func Abort(ctx *gin.Context, status int, message, code string) {
	ctx.AbortWithStatusJSON(status, NewError(ctx, message, code, nil))
}

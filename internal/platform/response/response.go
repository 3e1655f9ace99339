package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PawResorts/service-reservation/internal/platform/domain"
)

// envelope is the standard JSON response body.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
	Meta    *pageMeta   `json:"meta,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

type pageMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Success writes a 200 response with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 response with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    items,
		Meta:    &pageMeta{Total: total, Page: page, Limit: limit},
	})
}

// BadRequest writes a 400 response with a validation message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{
		Success: false,
		Error:   &errorBody{Kind: string(domain.KindValidation), Message: message},
	})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, envelope{
		Success: false,
		Error:   &errorBody{Kind: string(domain.KindUnauthorized), Message: message},
	})
}

// Error maps a domain error to its HTTP status and writes the response.
//
// Mapping: validation and coupon rejections are 400, capacity races are 409,
// incompatible pet groups are 422, configuration faults are 500.
func Error(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		c.JSON(http.StatusInternalServerError, envelope{
			Success: false,
			Error:   &errorBody{Kind: "internal", Message: "internal server error"},
		})
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindValidation, domain.KindCouponInvalid:
		status = http.StatusBadRequest
	case domain.KindUnauthorized:
		status = http.StatusUnauthorized
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict, domain.KindCapacityExceeded, domain.KindInvalidState:
		status = http.StatusConflict
	case domain.KindIncompatiblePets:
		status = http.StatusUnprocessableEntity
	case domain.KindConfiguration:
		status = http.StatusInternalServerError
	}

	c.JSON(status, envelope{
		Success: false,
		Error:   &errorBody{Kind: string(de.Kind), Reason: de.Reason, Message: de.Message},
	})
}

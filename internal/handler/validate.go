package handler

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/request"
)

var validatorOnce sync.Once

// structValidator runs gin's binding through the engine the gRPC façade uses,
// so both report the same field names and messages.
type structValidator struct{}

func (structValidator) ValidateStruct(obj any) error { return request.Struct(obj) }
func (structValidator) Engine() any                  { return request.Engine() }

func setupValidator() {
	validatorOnce.Do(func() {
		binding.Validator = structValidator{}
	})
}

func (h *Handler) bindJSON(c *gin.Context, req any) error {
	return h.collect(req, c.ShouldBindJSON(req), "body", "request body must be valid JSON")
}

func (h *Handler) bindQuery(c *gin.Context, req any) error {
	return h.collect(req, c.ShouldBindQuery(req), "query", "invalid query parameters")
}

func (h *Handler) collect(req any, err error, field, msg string) error {
	var verrs validator.ValidationErrors
	if err != nil && !errors.As(err, &verrs) {
		return apperr.Invalid(field, msg)
	}
	return request.Collect(req, err, h.today())
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-ops/domain/dto"
	"social-ops/usecase"
)

const (
	ErrorUnmarshal = "Error while unmarshal"
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "00", ResponseMessage: "Success", Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: message})
}

// fail maps usecase errors onto HTTP statuses inside the response envelope.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "500"
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		status, code = http.StatusNotFound, "404"
	case errors.Is(err, usecase.ErrForbidden):
		status, code = http.StatusForbidden, "403"
	case errors.Is(err, usecase.ErrTokenExpired):
		status, code = http.StatusConflict, "409"
	case errors.Is(err, usecase.ErrInvalidInput),
		errors.Is(err, usecase.ErrTaskNotEditable),
		errors.Is(err, usecase.ErrTaskNotTriggerable),
		errors.Is(err, usecase.ErrTaskNotDeletable),
		errors.Is(err, usecase.ErrStateMismatch),
		errors.Is(err, usecase.ErrStateExpired),
		errors.Is(err, usecase.ErrSelectionExpired):
		status, code = http.StatusBadRequest, "400"
	}
	c.JSON(status, dto.Res{ResponseCode: code, ResponseMessage: err.Error()})
}

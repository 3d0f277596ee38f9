package web

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/goserg/accountserver/auth/service"
)

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
}

var statusByKind = []struct {
	kind   error
	status int
}{
	{service.ErrValidation, fiber.StatusUnprocessableEntity},
	{service.ErrConflict, fiber.StatusConflict},
	{service.ErrNotAuthenticated, fiber.StatusUnauthorized},
	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrNotFound, fiber.StatusNotFound},
	{service.ErrPersistence, fiber.StatusInternalServerError},
}

func newErrorResponse(err error) errorResponse {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		resp := errorResponse{
			StatusCode: fiber.StatusInternalServerError,
			Message:    svcErr.Message(),
			Errors:     svcErr.FieldErrors(),
		}
		for _, k := range statusByKind {
			if errors.Is(svcErr.Kind(), k.kind) {
				resp.StatusCode = k.status
				break
			}
		}
		if resp.StatusCode == fiber.StatusInternalServerError {
			resp.Message = "internal server error"
		}
		return resp
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		resp := errorResponse{
			StatusCode: fiber.StatusUnprocessableEntity,
			Message:    "validation failed",
			Errors:     make(map[string]string, len(verrs)),
		}
		for field, fieldErr := range verrs {
			resp.Errors[field] = fieldErr.Error()
		}
		return resp
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return errorResponse{
			StatusCode: fiberErr.Code,
			Message:    fiberErr.Message,
		}
	}

	return errorResponse{
		StatusCode: fiber.StatusInternalServerError,
		Message:    "internal server error",
	}
}

func (s *Server) handleError(ctx *fiber.Ctx, err error) error {
	resp := newErrorResponse(err)
	if resp.StatusCode >= fiber.StatusInternalServerError {
		s.log.WithError(err).WithField("path", ctx.Path()).Error("request failed")
	}
	return ctx.Status(resp.StatusCode).JSON(resp)
}

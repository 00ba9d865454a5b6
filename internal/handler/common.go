package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
)

const dbTimeout = 5 * time.Second

// errorJSON writes the standard error envelope.
func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}

func badRequest(c echo.Context, msg string) error {
	return errorJSON(c, http.StatusBadRequest, "bad_request", msg)
}

// fail maps repository sentinels onto HTTP statuses.  Anything unknown is
// a 500 with a generic message; the cause is logged by the request logger
// through the echo error.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, repository.ErrForbidden):
		return errorJSON(c, http.StatusForbidden, "forbidden", "not allowed")
	case errors.Is(err, repository.ErrConflict):
		return errorJSON(c, http.StatusConflict, "conflict", "resource state conflict")
	case errors.Is(err, repository.ErrDuplicate):
		return errorJSON(c, http.StatusConflict, "duplicate", "resource already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return errorJSON(c, http.StatusGatewayTimeout, "timeout", "database timeout")
	}
	c.Logger().Error(err)
	return errorJSON(c, http.StatusInternalServerError, "internal", "internal server error")
}

// bind decodes the body into v and runs struct validation.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(v); err != nil {
		return badRequest(c, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err.Error()
	}
	fe := ves[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min", "gte":
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "timezone":
		return field + " must be an IANA time zone"
	case "url", "http_url":
		return field + " must be a URL"
	}
	return field + " is invalid"
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func isAdmin(c echo.Context) bool { return model.IsAdminRole(middleware.Role(c)) }

// optString trims s and returns nil when it is empty.
func optString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// items wraps a list response.
func items[T any](list []T) echo.Map {
	if list == nil {
		list = []T{}
	}
	return echo.Map{"items": list}
}

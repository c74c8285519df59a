package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"bus-checkin/internal/services"
)

// requestValidator plugs validator/v10 into echo.Context.Validate
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{validate: validator.New()}
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// statusFor maps service errors to HTTP status codes. Unknown errors are
// store failures and map to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrBadRequest), errors.Is(err, services.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrBusMismatch):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrNoQRCode):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUserExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// HTTPErrorHandler writes every error as {"error": ...}.
func HTTPErrorHandler(err error, c echo.Context) {
	var code int
	var message interface{}

	var httpErr *echo.HTTPError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = httpErr.Message
	case errors.As(err, &validationErrs):
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fe.Tag()
		}
		code = http.StatusBadRequest
		message = fields
	default:
		code = statusFor(err)
		if code == http.StatusInternalServerError {
			log.Errorf("❌ %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
			message = "internal server error"
		} else {
			message = err.Error()
		}
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"error": message})
	}
	if err != nil {
		log.Errorf("❌ write error response: %v", err)
	}
}

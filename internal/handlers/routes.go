package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewServer builds the echo instance with every API route registered.
func NewServer(attendance *AttendanceHandler, users *UserHandler, requestTimeout time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	if requestTimeout > 0 {
		e.Use(requestDeadline(requestTimeout))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", users.HandleRegister)
	auth.POST("/login", users.HandleLogin)

	api.GET("/users/bus/:busNumber", users.HandleListByBus)
	api.GET("/users/:userID/qrcode", users.HandleQRCode)

	att := api.Group("/attendance")
	att.POST("/scan", attendance.HandleScan)
	att.GET("/summary/:userID", attendance.HandleMonthlySummary)
	att.POST("/auto-absent", attendance.HandleAutoAbsent)

	return e
}

// requestDeadline bounds the request context so store calls inherit it.
func requestDeadline(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

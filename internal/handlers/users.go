package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bus-checkin/internal/services"
)

// UserHandler handles registration, login and roster requests
type UserHandler struct {
	service services.UserManager
}

// NewUserHandler creates a new user handler
func NewUserHandler(service services.UserManager) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	BusNumber      string `json:"bus_number" validate:"required"`
	Role           string `json:"role" validate:"omitempty,oneof=user admin"`
	Password       string `json:"password" validate:"required,min=6"`
	TelegramChatID int64  `json:"telegram_chat_id"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates a user and returns its QR payload
func (h *UserHandler) HandleRegister(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.Register(c.Request().Context(), services.RegisterInput{
		UserID:         req.UserID,
		Name:           req.Name,
		BusNumber:      req.BusNumber,
		Role:           req.Role,
		Password:       req.Password,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered",
		"user":    user.Public(),
		"qr_code": user.QRCode,
	})
}

// HandleLogin checks credentials
func (h *UserHandler) HandleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.Login(c.Request().Context(), req.UserID, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Login successful", "user": user})
}

// HandleListByBus lists the riders of a bus
func (h *UserHandler) HandleListByBus(c echo.Context) error {
	users, err := h.service.ListByBus(c.Request().Context(), c.Param("busNumber"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// HandleQRCode serves a rider's QR code as PNG
func (h *UserHandler) HandleQRCode(c echo.Context) error {
	img, err := h.service.QRCodePNG(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", img)
}

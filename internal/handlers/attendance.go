// Package handlers provides HTTP handlers for API endpoints
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"bus-checkin/internal/services"
)

// AttendanceHandler handles QR scans, summaries and the auto-absent trigger
type AttendanceHandler struct {
	service  services.AttendanceProcessor
	location *time.Location
	now      func() time.Time
}

// NewAttendanceHandler creates a new attendance handler. loc is the zone
// that calendar days are counted in; nil means time.Local.
func NewAttendanceHandler(service services.AttendanceProcessor, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceHandler{service: service, location: loc, now: time.Now}
}

// ScanRequest is posted by a bus station after reading a QR code
type ScanRequest struct {
	QRData    string `json:"qr_data" validate:"required"`
	BusNumber string `json:"bus_number" validate:"required"`
}

// HandleScan validates a scanned QR code and marks attendance
func (h *AttendanceHandler) HandleScan(c echo.Context) error {
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	log.Infof("📷 [Bus: %s] QR scanned", req.BusNumber)

	result, err := h.service.Scan(c.Request().Context(), req.QRData, req.BusNumber)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Attendance marked",
		"name":       result.Name,
		"bus_number": result.BusNumber,
	})
}

// HandleMonthlySummary returns present/absent counts for one month.
// month and year default to the current ones in the handler's zone.
func (h *AttendanceHandler) HandleMonthlySummary(c echo.Context) error {
	now := h.now().In(h.location)
	month, err := intParam(c.QueryParam("month"), int(now.Month()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "month must be a number")
	}
	year, err := intParam(c.QueryParam("year"), now.Year())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "year must be a number")
	}

	summary, err := h.service.MonthlySummary(c.Request().Context(), c.Param("userID"), month, year)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// HandleAutoAbsent runs the end-of-day sweep. Meant for an external scheduler.
func (h *AttendanceHandler) HandleAutoAbsent(c echo.Context) error {
	marked, err := h.service.AutoAbsent(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Auto-absent completed",
		"marked":  marked,
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

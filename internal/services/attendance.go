// Package services implements business logic for the application
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/gommon/log"

	"bus-checkin/internal/models"
	"bus-checkin/internal/qrcode"
	"bus-checkin/internal/repository"
)

// AttendanceProcessor defines the interface for attendance processing
type AttendanceProcessor interface {
	Scan(ctx context.Context, qrData, busNumber string) (*models.ScanResult, error)
	MonthlySummary(ctx context.Context, userID string, month, year int) (*models.MonthlySummary, error)
	AutoAbsent(ctx context.Context) (int, error)
}

// BotNotifier defines the interface for bot notifications
type BotNotifier interface {
	SendNotification(message string)
	SendPersonalNotification(chatID int64, message string)
}

// AttendanceService handles attendance business logic
type AttendanceService struct {
	userRepo       repository.UserRepository
	attendanceRepo repository.AttendanceRepository
	botNotifier    BotNotifier
	location       *time.Location
	now            func() time.Time
}

// Option configures an AttendanceService
type Option func(*AttendanceService)

// WithLocation sets the time zone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *AttendanceService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *AttendanceService) { s.now = now }
}

// NewAttendanceService creates a new attendance service. botNotifier may be nil.
func NewAttendanceService(
	userRepo repository.UserRepository,
	attendanceRepo repository.AttendanceRepository,
	botNotifier BotNotifier,
	opts ...Option,
) *AttendanceService {
	s := &AttendanceService{
		userRepo:       userRepo,
		attendanceRepo: attendanceRepo,
		botNotifier:    botNotifier,
		location:       time.Local,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dayWindow returns [local midnight, next local midnight) around t.
func (s *AttendanceService) dayWindow(t time.Time) (time.Time, time.Time) {
	t = t.In(s.location)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}

// Scan validates a scanned QR payload against the scanning bus and marks
// the rider present for today.
func (s *AttendanceService) Scan(ctx context.Context, qrData, busNumber string) (*models.ScanResult, error) {
	if strings.TrimSpace(qrData) == "" || strings.TrimSpace(busNumber) == "" {
		return nil, badRequest("QR data and bus number are required")
	}

	payload, err := qrcode.Decode(qrData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	user, err := s.userRepo.GetByUserID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeFailure("find user", err)
	}

	if payload.BusNumber != busNumber {
		log.Warnf("🚫 %s (%s) scanned on bus %s, assigned to bus %s",
			user.Name, user.UserID, busNumber, payload.BusNumber)
		s.notifyAdmin(fmt.Sprintf("🚫 *Wrong bus*\n👤 %s (`%s`)\n🚌 scanned on `%s`, assigned `%s`",
			markdown(user.Name), user.UserID, busNumber, payload.BusNumber))
		return nil, ErrBusMismatch
	}

	if err := s.userRepo.UpdateAttendanceStatus(ctx, user.UserID, models.StatusPresent); err != nil {
		return nil, storeFailure("update attendance status", err)
	}

	now := s.now()
	created, err := s.recordIfAbsent(ctx, user, models.StatusPresent, now)
	if err != nil {
		return nil, err
	}

	if created {
		log.Infof("✅ %s checked in on bus %s at %s", user.Name, user.BusNumber, now.In(s.location).Format("15:04:05"))
		if user.TelegramChatID != 0 && s.botNotifier != nil {
			s.botNotifier.SendPersonalNotification(user.TelegramChatID, fmt.Sprintf(
				"✅ *Checked in*\n👤 %s\n🚌 Bus `%s`\n🕐 `%s`",
				markdown(user.Name), user.BusNumber, now.In(s.location).Format("15:04:05")))
		}
	} else {
		log.Infof("🔁 %s already recorded today", user.UserID)
	}

	return &models.ScanResult{Name: user.Name, BusNumber: user.BusNumber}, nil
}

// recordIfAbsent inserts a ledger row for today unless one already exists.
// An existing row of either status is left untouched.
func (s *AttendanceService) recordIfAbsent(ctx context.Context, user *models.User, status string, now time.Time) (bool, error) {
	start, end := s.dayWindow(now)

	_, err := s.attendanceRepo.FindInRange(ctx, user.UserID, start, end)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, storeFailure("find attendance", err)
	}

	attendance := &models.Attendance{
		UserID:    user.UserID,
		BusNumber: user.BusNumber,
		Date:      now,
		Day:       start.Format("2006-01-02"),
		Status:    status,
	}
	if err := s.attendanceRepo.Create(ctx, attendance); err != nil {
		// lost a race with another writer for the same day
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, storeFailure("create attendance", err)
	}
	return true, nil
}

// MonthlySummary counts a user's present and absent days in a month.
func (s *AttendanceService) MonthlySummary(ctx context.Context, userID string, month, year int) (*models.MonthlySummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, badRequest("user id is required")
	}
	if month < 1 || month > 12 {
		return nil, badRequest("month must be between 1 and 12, got %d", month)
	}
	if year < 1 {
		return nil, badRequest("invalid year %d", year)
	}

	totalDays := daysIn(time.Month(month), year)
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.location)
	end := time.Date(year, time.Month(month), totalDays, 23, 59, 59, 0, s.location)

	records, err := s.attendanceRepo.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, storeFailure("list attendance", err)
	}

	presentDays := 0
	for _, rec := range records {
		if rec.Status == models.StatusPresent {
			presentDays++
		}
	}

	return &models.MonthlySummary{
		UserID:      userID,
		Month:       month,
		Year:        year,
		TotalDays:   totalDays,
		PresentDays: presentDays,
		AbsentDays:  totalDays - presentDays,
		Records:     records,
	}, nil
}

// daysIn returns the number of days in month of year.
func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AutoAbsent writes an Absent row for every rider without a row today and
// returns how many rows it wrote. Safe to run more than once a day.
func (s *AttendanceService) AutoAbsent(ctx context.Context) (int, error) {
	users, err := s.userRepo.ListByRole(ctx, models.RoleUser)
	if err != nil {
		return 0, storeFailure("list users", err)
	}

	now := s.now()
	marked := 0
	for i := range users {
		created, err := s.recordIfAbsent(ctx, &users[i], models.StatusAbsent, now)
		if err != nil {
			return marked, err
		}
		if created {
			marked++
		}
	}

	day := now.In(s.location).Format("2006-01-02")
	log.Infof("🌙 Auto-absent for %s: %d of %d riders marked absent", day, marked, len(users))
	s.notifyAdmin(fmt.Sprintf("🌙 *Auto-absent* `%s`\n%d of %d riders marked absent", day, marked, len(users)))

	return marked, nil
}

// markdown escapes a value placed outside entities in a Markdown message.
// Values inside code spans are left as they are.
func markdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (s *AttendanceService) notifyAdmin(message string) {
	if s.botNotifier != nil {
		s.botNotifier.SendNotification(message)
	}
}

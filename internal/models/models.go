// Package models contains data structures for the application
package models

import (
	"time"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Attendance statuses, used both for ledger rows and the user's daily flag
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// User represents a registered rider or admin account
type User struct {
	ID               string // PocketBase record id
	UserID           string // identity key, unique
	Name             string
	BusNumber        string
	Role             string
	PasswordHash     string
	QRCode           string // encoded QR payload, empty for admins
	AttendanceStatus string // "scanned today" cache, not a source of truth
	TelegramChatID   int64
}

// Public strips the credential hash and QR payload.
func (u *User) Public() PublicUser {
	return PublicUser{
		UserID:           u.UserID,
		Name:             u.Name,
		BusNumber:        u.BusNumber,
		Role:             u.Role,
		AttendanceStatus: u.AttendanceStatus,
	}
}

// PublicUser is the roster view of a user. It has no secret fields.
type PublicUser struct {
	UserID           string `json:"user_id"`
	Name             string `json:"name"`
	BusNumber        string `json:"bus_number"`
	Role             string `json:"role"`
	AttendanceStatus string `json:"attendance_status"`
}

// Attendance represents one day's attendance record for one user
type Attendance struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BusNumber string    `json:"bus_number"`
	Date      time.Time `json:"date"`
	Day       string    `json:"day"` // local calendar date, YYYY-MM-DD
	Status    string    `json:"status"`
}

// MonthlySummary aggregates a user's attendance records over one month
type MonthlySummary struct {
	UserID      string       `json:"user_id"`
	Month       int          `json:"month"`
	Year        int          `json:"year"`
	TotalDays   int          `json:"total_days"`
	PresentDays int          `json:"present_days"`
	AbsentDays  int          `json:"absent_days"`
	Records     []Attendance `json:"records"`
}

// ScanResult is returned to the scanning station after a successful scan
type ScanResult struct {
	Name      string `json:"name"`
	BusNumber string `json:"bus_number"`
}

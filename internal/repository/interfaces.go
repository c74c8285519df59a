// Package repository defines repository interfaces for data access
package repository

import (
	"context"
	"errors"
	"time"

	"bus-checkin/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a create violates a unique index.
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create stores a new user and fills in its record id
	Create(ctx context.Context, user *models.User) error
	// GetByUserID retrieves a user by identity key
	GetByUserID(ctx context.Context, userID string) (*models.User, error)
	// ListByRole returns all users with the given role
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	// ListByBus returns all users with the given role on a bus
	ListByBus(ctx context.Context, busNumber, role string) ([]models.User, error)
	// UpdateAttendanceStatus overwrites the user's daily attendance flag
	UpdateAttendanceStatus(ctx context.Context, userID, status string) error
}

// AttendanceRepository defines the interface for attendance ledger access
type AttendanceRepository interface {
	// FindInRange returns the first record for userID with start <= date < end,
	// or ErrNotFound
	FindInRange(ctx context.Context, userID string, start, end time.Time) (*models.Attendance, error)
	// ListBetween returns all records for userID with start <= date <= end
	ListBetween(ctx context.Context, userID string, start, end time.Time) ([]models.Attendance, error)
	// Create records a new ledger row. A second row for the same
	// (user, day) fails with ErrDuplicate.
	Create(ctx context.Context, attendance *models.Attendance) error
}

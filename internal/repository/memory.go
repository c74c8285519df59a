package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bus-checkin/internal/models"
)

// MemoryStore keeps members and attendance in process memory. It backs
// STORE_DRIVER=memory and the service tests.
type MemoryStore struct {
	mutex      sync.RWMutex
	seq        int
	users      map[string]*models.User // keyed by UserID
	attendance []models.Attendance
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*models.User)}
}

func (s *MemoryStore) nextID() string {
	s.seq++
	return fmt.Sprintf("mem%011d", s.seq)
}

// Users returns a UserRepository view of the store
func (s *MemoryStore) Users() UserRepository { return (*memoryUserRepository)(s) }

// Attendance returns an AttendanceRepository view of the store
func (s *MemoryStore) Attendance() AttendanceRepository { return (*memoryAttendanceRepository)(s) }

type memoryUserRepository MemoryStore

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.users[user.UserID]; ok {
		return ErrDuplicate
	}
	user.ID = (*MemoryStore)(r).nextID()
	stored := *user
	r.users[user.UserID] = &stored
	return nil
}

func (r *memoryUserRepository) GetByUserID(_ context.Context, userID string) (*models.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	usr, ok := r.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	found := *usr
	return &found, nil
}

func (r *memoryUserRepository) filter(keep func(*models.User) bool) []models.User {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]models.User, 0)
	for _, usr := range r.users {
		if keep(usr) {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (r *memoryUserRepository) ListByRole(_ context.Context, role string) ([]models.User, error) {
	return r.filter(func(u *models.User) bool { return u.Role == role }), nil
}

func (r *memoryUserRepository) ListByBus(_ context.Context, busNumber, role string) ([]models.User, error) {
	return r.filter(func(u *models.User) bool { return u.Role == role && u.BusNumber == busNumber }), nil
}

func (r *memoryUserRepository) UpdateAttendanceStatus(_ context.Context, userID, status string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	usr, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	usr.AttendanceStatus = status
	return nil
}

type memoryAttendanceRepository MemoryStore

func (r *memoryAttendanceRepository) FindInRange(_ context.Context, userID string, start, end time.Time) (*models.Attendance, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, att := range r.attendance {
		if att.UserID == userID && !att.Date.Before(start) && att.Date.Before(end) {
			found := att
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryAttendanceRepository) ListBetween(_ context.Context, userID string, start, end time.Time) ([]models.Attendance, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	records := make([]models.Attendance, 0)
	for _, att := range r.attendance {
		if att.UserID == userID && !att.Date.Before(start) && !att.Date.After(end) {
			records = append(records, att)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

func (r *memoryAttendanceRepository) Create(_ context.Context, attendance *models.Attendance) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// mirrors the (user_id, day) unique index of the attendance collection
	for _, att := range r.attendance {
		if att.UserID == attendance.UserID && att.Day == attendance.Day {
			return ErrDuplicate
		}
	}
	attendance.ID = (*MemoryStore)(r).nextID()
	r.attendance = append(r.attendance, *attendance)
	return nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"

	"bus-checkin/internal/models"
	"bus-checkin/internal/qrcode"
	"bus-checkin/internal/repository"
)

const qrImageSize = 256

// UserManager defines the interface for registration and roster access
type UserManager interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, userID, password string) (*models.PublicUser, error)
	ListByBus(ctx context.Context, busNumber string) ([]models.PublicUser, error)
	QRCodePNG(ctx context.Context, userID string) ([]byte, error)
}

// RegisterInput holds the fields needed to create a user
type RegisterInput struct {
	UserID         string
	Name           string
	BusNumber      string
	Role           string
	Password       string
	TelegramChatID int64
}

// UserService handles registration, login and roster listing
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register creates a user. Riders get a QR payload; admins do not.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Name = strings.TrimSpace(in.Name)
	in.BusNumber = strings.TrimSpace(in.BusNumber)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	if in.UserID == "" || in.Name == "" || in.BusNumber == "" || in.Password == "" {
		return nil, badRequest("user id, name, bus number and password are required")
	}
	if in.Role != models.RoleUser && in.Role != models.RoleAdmin {
		return nil, badRequest("unknown role %q", in.Role)
	}

	if _, err := s.userRepo.GetByUserID(ctx, in.UserID); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeFailure("find user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, badRequest("unusable password: %v", err)
	}

	user := &models.User{
		UserID:           in.UserID,
		Name:             in.Name,
		BusNumber:        in.BusNumber,
		Role:             in.Role,
		PasswordHash:     string(hash),
		AttendanceStatus: models.StatusAbsent,
		TelegramChatID:   in.TelegramChatID,
	}
	if user.Role == models.RoleUser {
		user.QRCode, err = qrcode.Encode(qrcode.Payload{
			UserID:    user.UserID,
			Name:      user.Name,
			BusNumber: user.BusNumber,
			Role:      user.Role,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, storeFailure("create user", err)
	}

	log.Infof("📝 Registered %s %s (%s) on bus %s", user.Role, user.Name, user.UserID, user.BusNumber)
	return user, nil
}

// Login checks a password. There is no session; callers get the public profile.
func (s *UserService) Login(ctx context.Context, userID, password string) (*models.PublicUser, error) {
	if strings.TrimSpace(userID) == "" || password == "" {
		return nil, badRequest("user id and password are required")
	}

	user, err := s.userRepo.GetByUserID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeFailure("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	public := user.Public()
	return &public, nil
}

// ListByBus returns the riders assigned to a bus without secrets.
func (s *UserService) ListByBus(ctx context.Context, busNumber string) ([]models.PublicUser, error) {
	busNumber = strings.TrimSpace(busNumber)
	if busNumber == "" {
		return nil, badRequest("bus number is required")
	}

	users, err := s.userRepo.ListByBus(ctx, busNumber, models.RoleUser)
	if err != nil {
		return nil, storeFailure("list users", err)
	}

	roster := make([]models.PublicUser, 0, len(users))
	for i := range users {
		roster = append(roster, users[i].Public())
	}
	return roster, nil
}

// QRCodePNG renders the stored QR payload of a rider.
func (s *UserService) QRCodePNG(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeFailure("find user", err)
	}
	if user.QRCode == "" {
		return nil, ErrNoQRCode
	}
	return qrcode.PNG(user.QRCode, qrImageSize)
}

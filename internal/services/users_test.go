package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bus-checkin/internal/models"
	"bus-checkin/internal/qrcode"
	"bus-checkin/internal/repository"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryStore().Users())

	usr, err := svc.Register(ctx, RegisterInput{
		UserID:    " U1 ",
		Name:      "Alice",
		BusNumber: "B1",
		Password:  "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "U1", usr.UserID)
	assert.Equal(t, models.RoleUser, usr.Role)
	assert.Equal(t, models.StatusAbsent, usr.AttendanceStatus)
	assert.NotEqual(t, "secret123", usr.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte("secret123")))

	payload, err := qrcode.Decode(usr.QRCode)
	require.NoError(t, err)
	assert.Equal(t, qrcode.Payload{UserID: "U1", Name: "Alice", BusNumber: "B1", Role: models.RoleUser}, payload)

	_, err = svc.Register(ctx, RegisterInput{UserID: "U1", Name: "Other", BusNumber: "B2", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterAdminHasNoQRCode(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryStore().Users())

	usr, err := svc.Register(ctx, RegisterInput{UserID: "A1", Name: "Admin", BusNumber: "B1", Role: "ADMIN", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, usr.Role)
	assert.Empty(t, usr.QRCode)

	_, err = svc.QRCodePNG(ctx, "A1")
	assert.ErrorIs(t, err, ErrNoQRCode)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(repository.NewMemoryStore().Users())

	inputs := map[string]RegisterInput{
		"missing user id":  {Name: "Alice", BusNumber: "B1", Password: "secret123"},
		"missing name":     {UserID: "U1", BusNumber: "B1", Password: "secret123"},
		"missing bus":      {UserID: "U1", Name: "Alice", Password: "secret123"},
		"missing password": {UserID: "U1", Name: "Alice", BusNumber: "B1"},
		"unknown role":     {UserID: "U1", Name: "Alice", BusNumber: "B1", Password: "secret123", Role: "driver"},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryStore().Users())
	_, err := svc.Register(ctx, RegisterInput{UserID: "U1", Name: "Alice", BusNumber: "B1", Password: "secret123"})
	require.NoError(t, err)

	usr, err := svc.Login(ctx, "U1", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", usr.Name)

	_, err = svc.Login(ctx, "U1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "U9", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestListByBus(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryStore().Users())
	for _, in := range []RegisterInput{
		{UserID: "U1", Name: "Alice", BusNumber: "B1", Password: "secret123"},
		{UserID: "U2", Name: "Bob", BusNumber: "B1", Password: "secret123"},
		{UserID: "U3", Name: "Carol", BusNumber: "B2", Password: "secret123"},
		{UserID: "A1", Name: "Admin", BusNumber: "B1", Role: models.RoleAdmin, Password: "secret123"},
	} {
		_, err := svc.Register(ctx, in)
		require.NoError(t, err)
	}

	roster, err := svc.ListByBus(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "U1", roster[0].UserID)
	assert.Equal(t, "U2", roster[1].UserID)

	roster, err = svc.ListByBus(ctx, "B9")
	require.NoError(t, err)
	assert.Empty(t, roster)

	_, err = svc.ListByBus(ctx, "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestQRCodePNG(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryStore().Users())
	_, err := svc.Register(ctx, RegisterInput{UserID: "U1", Name: "Alice", BusNumber: "B1", Password: "secret123"})
	require.NoError(t, err)

	img, err := svc.QRCodePNG(ctx, "U1")
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	_, err = svc.QRCodePNG(ctx, "U9")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-checkin/internal/models"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Auth   string
	Body   map[string]interface{}
}

// fakePocketBase answers with the handler's response and records every request.
type fakePocketBase struct {
	server   *httptest.Server
	requests []capturedRequest
}

func newFakePocketBase(t *testing.T, respond func(w http.ResponseWriter, req capturedRequest)) *fakePocketBase {
	t.Helper()
	f := &fakePocketBase{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured := capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  map[string]string{},
			Auth:   r.Header.Get("Authorization"),
		}
		for k := range r.URL.Query() {
			captured.Query[k] = r.URL.Query().Get(k)
		}
		if body, _ := io.ReadAll(r.Body); len(body) > 0 {
			_ = json.Unmarshal(body, &captured.Body)
		}
		f.requests = append(f.requests, captured)
		respond(w, captured)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func writeList(w http.ResponseWriter, page, totalPages int, items ...interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"page":       page,
		"totalPages": totalPages,
		"items":      items,
	})
}

func TestRESTGetByUserID(t *testing.T) {
	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		if req.Query["filter"] == "user_id='U1'" {
			writeList(w, 1, 1, memberRecord{ID: "rec1", UserID: "U1", Name: "Alice", BusNumber: "B1", Role: models.RoleUser})
			return
		}
		writeList(w, 1, 0)
	})
	repo := NewPocketBaseRESTUserRepository(fake.server.URL, "token-123", time.Second)

	usr, err := repo.GetByUserID(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "rec1", usr.ID)
	assert.Equal(t, "Alice", usr.Name)
	assert.Equal(t, models.StatusAbsent, usr.AttendanceStatus)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/api/collections/members/records", fake.requests[0].Path)
	assert.Equal(t, "token-123", fake.requests[0].Auth)

	_, err = repo.GetByUserID(context.Background(), "U9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRESTFilterQuoting(t *testing.T) {
	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		writeList(w, 1, 0)
	})
	repo := NewPocketBaseRESTUserRepository(fake.server.URL, "", time.Second)

	_, err := repo.GetByUserID(context.Background(), `x' || role='admin`)
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, `user_id='x\' || role=\'admin'`, fake.requests[0].Query["filter"])
	assert.Empty(t, fake.requests[0].Auth)
}

func TestRESTListByBusPaginates(t *testing.T) {
	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		page, _ := strconv.Atoi(req.Query["page"])
		writeList(w, page, 2, memberRecord{
			ID:               fmt.Sprintf("rec%d", page),
			UserID:           fmt.Sprintf("U%d", page),
			BusNumber:        "B1",
			Role:             models.RoleUser,
			AttendanceStatus: models.StatusPresent,
		})
	})
	repo := NewPocketBaseRESTUserRepository(fake.server.URL, "", time.Second)

	users, err := repo.ListByBus(context.Background(), "B1", models.RoleUser)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "U1", users[0].UserID)
	assert.Equal(t, "U2", users[1].UserID)
	assert.Equal(t, models.StatusPresent, users[1].AttendanceStatus)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, "bus_number='B1' && role='user'", fake.requests[0].Query["filter"])
	assert.Equal(t, "name", fake.requests[0].Query["sort"])
	assert.Equal(t, "200", fake.requests[0].Query["perPage"])
}

func TestRESTCreateAttendance(t *testing.T) {
	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "att1"})
	})
	repo := NewPocketBaseRESTAttendanceRepository(fake.server.URL, "", time.Second)

	att := &models.Attendance{
		UserID:    "U1",
		BusNumber: "B1",
		Date:      time.Date(2024, 2, 10, 8, 30, 0, 0, time.FixedZone("ICT", 7*3600)),
		Day:       "2024-02-10",
		Status:    models.StatusPresent,
	}
	require.NoError(t, repo.Create(context.Background(), att))
	assert.Equal(t, "att1", att.ID)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/collections/attendance/records", req.Path)
	assert.Equal(t, "2024-02-10 01:30:00.000Z", req.Body["date"])
	assert.Equal(t, "2024-02-10", req.Body["day"])
	assert.Equal(t, models.StatusPresent, req.Body["status"])
}

func TestRESTCreateDuplicate(t *testing.T) {
	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":400,"message":"Failed to create record.","data":{"day":{"code":"validation_not_unique","message":"Value must be unique."}}}`)
	})
	repo := NewPocketBaseRESTAttendanceRepository(fake.server.URL, "", time.Second)

	err := repo.Create(context.Background(), &models.Attendance{UserID: "U1", Day: "2024-02-10", Date: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRESTCreateServerError(t *testing.T) {
	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"boom"}`)
	})
	repo := NewPocketBaseRESTUserRepository(fake.server.URL, "", time.Second)

	err := repo.Create(context.Background(), &models.User{UserID: "U1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "500")
}

func TestRESTFindInRange(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	start := time.Date(2024, 2, 10, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		if strings.Contains(req.Query["filter"], "user_id='U1'") {
			writeList(w, 1, 1, attendanceRecord{
				ID: "att1", UserID: "U1", BusNumber: "B1",
				Date: "2024-02-10 01:30:00.000Z", Day: "2024-02-10", Status: models.StatusPresent,
			})
			return
		}
		writeList(w, 1, 0)
	})
	repo := NewPocketBaseRESTAttendanceRepository(fake.server.URL, "", time.Second)

	att, err := repo.FindInRange(context.Background(), "U1", start, end)
	require.NoError(t, err)
	assert.Equal(t, "att1", att.ID)
	assert.True(t, att.Date.Equal(time.Date(2024, 2, 10, 8, 30, 0, 0, loc)))
	assert.Equal(t,
		"user_id='U1' && date>='2024-02-09 17:00:00.000Z' && date<'2024-02-10 17:00:00.000Z'",
		fake.requests[0].Query["filter"])

	_, err = repo.FindInRange(context.Background(), "U2", start, end)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRESTUpdateAttendanceStatus(t *testing.T) {
	fake := newFakePocketBase(t, func(w http.ResponseWriter, req capturedRequest) {
		switch req.Method {
		case http.MethodGet:
			writeList(w, 1, 1, memberRecord{ID: "rec1", UserID: "U1"})
		case http.MethodPatch:
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"id":"rec1"}`)
		}
	})
	repo := NewPocketBaseRESTUserRepository(fake.server.URL, "", time.Second)

	require.NoError(t, repo.UpdateAttendanceStatus(context.Background(), "U1", models.StatusPresent))
	require.Len(t, fake.requests, 2)
	assert.Equal(t, http.MethodPatch, fake.requests[1].Method)
	assert.Equal(t, "/api/collections/members/records/rec1", fake.requests[1].Path)
	assert.Equal(t, models.StatusPresent, fake.requests[1].Body["attendance_status"])
}

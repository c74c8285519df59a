// Package repository provides PocketBase REST API implementations
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/pocketbase/pocketbase/tools/types"

	"bus-checkin/internal/models"
)

// Collection names used by the REST repositories and the migrations.
const (
	MembersCollection    = "members"
	AttendanceCollection = "attendance"
)

const listPerPage = 200

// pocketBaseClient is the thin REST transport shared by the repositories.
type pocketBaseClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func newPocketBaseClient(baseURL, authToken string, timeout time.Duration) *pocketBaseClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &pocketBaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *pocketBaseClient) addAuthHeader(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authToken)
	}
}

type listResponse struct {
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Items      []json.RawMessage `json:"items"`
}

// list fetches one page of records from a collection.
func (c *pocketBaseClient) list(ctx context.Context, collection, filter, sort string, page, perPage int) (*listResponse, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	q.Set("page", fmt.Sprint(page))
	q.Set("perPage", fmt.Sprint(perPage))
	apiURL := fmt.Sprintf("%s/api/collections/%s/records?%s", c.baseURL, collection, q.Encode())

	log.Debugf("🔍 PocketBase list %s: %s", collection, filter)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build list request")
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", collection)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list %s: %s - %s", collection, resp.Status, string(body))
	}

	var result listResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrapf(err, "decode %s list", collection)
	}
	return &result, nil
}

// listAll walks every page of a filtered listing.
func (c *pocketBaseClient) listAll(ctx context.Context, collection, filter, sort string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for page := 1; ; page++ {
		result, err := c.list(ctx, collection, filter, sort, page, listPerPage)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if page >= result.TotalPages || len(result.Items) == 0 {
			return items, nil
		}
	}
}

// send issues a create (POST) or update (PATCH) and decodes the stored record into out.
func (c *pocketBaseClient) send(ctx context.Context, method, apiURL string, data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, apiURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusBadRequest && isUniqueViolation(body) {
			return ErrDuplicate
		}
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to save record: %s - %s", resp.Status, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode record")
	}
	return nil
}

func (c *pocketBaseClient) create(ctx context.Context, collection string, data map[string]interface{}, out interface{}) error {
	apiURL := fmt.Sprintf("%s/api/collections/%s/records", c.baseURL, collection)
	return c.send(ctx, http.MethodPost, apiURL, data, out)
}

func (c *pocketBaseClient) update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	apiURL := fmt.Sprintf("%s/api/collections/%s/records/%s", c.baseURL, collection, url.PathEscape(id))
	return c.send(ctx, http.MethodPatch, apiURL, data, nil)
}

// isUniqueViolation reports whether a 400 body was caused by a unique index.
func isUniqueViolation(body []byte) bool {
	return bytes.Contains(body, []byte("validation_not_unique")) ||
		bytes.Contains(body, []byte("must be unique")) ||
		bytes.Contains(body, []byte("UNIQUE constraint failed"))
}

// quote renders a string literal for a PocketBase filter expression.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// formatDate renders t the way PocketBase stores date fields (UTC).
func formatDate(t time.Time) string {
	dt, err := types.ParseDateTime(t)
	if err != nil {
		return t.UTC().Format(types.DefaultDateLayout)
	}
	return dt.String()
}

func parseDate(s string) time.Time {
	dt, err := types.ParseDateTime(s)
	if err != nil {
		return time.Time{}
	}
	return dt.Time()
}

// PocketBaseRESTUserRepository implements UserRepository
type PocketBaseRESTUserRepository struct {
	client *pocketBaseClient
}

// NewPocketBaseRESTUserRepository creates repository
func NewPocketBaseRESTUserRepository(baseURL, authToken string, timeout time.Duration) *PocketBaseRESTUserRepository {
	return &PocketBaseRESTUserRepository{client: newPocketBaseClient(baseURL, authToken, timeout)}
}

type memberRecord struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	Name             string `json:"name"`
	BusNumber        string `json:"bus_number"`
	Role             string `json:"role"`
	PasswordHash     string `json:"password_hash"`
	QRCode           string `json:"qr_code"`
	AttendanceStatus string `json:"attendance_status"`
	TelegramChatID   int64  `json:"telegram_chat_id"`
}

func (r memberRecord) toModel() *models.User {
	status := r.AttendanceStatus
	if status == "" {
		status = models.StatusAbsent
	}
	return &models.User{
		ID:               r.ID,
		UserID:           r.UserID,
		Name:             r.Name,
		BusNumber:        r.BusNumber,
		Role:             r.Role,
		PasswordHash:     r.PasswordHash,
		QRCode:           r.QRCode,
		AttendanceStatus: status,
		TelegramChatID:   r.TelegramChatID,
	}
}

func decodeMembers(items []json.RawMessage) ([]models.User, error) {
	users := make([]models.User, 0, len(items))
	for _, item := range items {
		var rec memberRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, errors.Wrap(err, "decode member")
		}
		users = append(users, *rec.toModel())
	}
	return users, nil
}

func (r *PocketBaseRESTUserRepository) Create(ctx context.Context, user *models.User) error {
	data := map[string]interface{}{
		"user_id":           user.UserID,
		"name":              user.Name,
		"bus_number":        user.BusNumber,
		"role":              user.Role,
		"password_hash":     user.PasswordHash,
		"qr_code":           user.QRCode,
		"attendance_status": user.AttendanceStatus,
		"telegram_chat_id":  user.TelegramChatID,
	}

	var result memberRecord
	if err := r.client.create(ctx, MembersCollection, data, &result); err != nil {
		return err
	}
	user.ID = result.ID
	return nil
}

func (r *PocketBaseRESTUserRepository) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	filter := fmt.Sprintf("user_id=%s", quote(userID))
	result, err := r.client.list(ctx, MembersCollection, filter, "", 1, 1)
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var rec memberRecord
	if err := json.Unmarshal(result.Items[0], &rec); err != nil {
		return nil, errors.Wrap(err, "decode member")
	}
	return rec.toModel(), nil
}

func (r *PocketBaseRESTUserRepository) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	items, err := r.client.listAll(ctx, MembersCollection, fmt.Sprintf("role=%s", quote(role)), "user_id")
	if err != nil {
		return nil, err
	}
	return decodeMembers(items)
}

func (r *PocketBaseRESTUserRepository) ListByBus(ctx context.Context, busNumber, role string) ([]models.User, error) {
	filter := fmt.Sprintf("bus_number=%s && role=%s", quote(busNumber), quote(role))
	items, err := r.client.listAll(ctx, MembersCollection, filter, "name")
	if err != nil {
		return nil, err
	}
	return decodeMembers(items)
}

func (r *PocketBaseRESTUserRepository) UpdateAttendanceStatus(ctx context.Context, userID, status string) error {
	user, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return r.client.update(ctx, MembersCollection, user.ID, map[string]interface{}{
		"attendance_status": status,
	})
}

// PocketBaseRESTAttendanceRepository implements AttendanceRepository
type PocketBaseRESTAttendanceRepository struct {
	client *pocketBaseClient
}

func NewPocketBaseRESTAttendanceRepository(baseURL, authToken string, timeout time.Duration) *PocketBaseRESTAttendanceRepository {
	return &PocketBaseRESTAttendanceRepository{client: newPocketBaseClient(baseURL, authToken, timeout)}
}

type attendanceRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	BusNumber string `json:"bus_number"`
	Date      string `json:"date"`
	Day       string `json:"day"`
	Status    string `json:"status"`
}

func (r attendanceRecord) toModel() models.Attendance {
	return models.Attendance{
		ID:        r.ID,
		UserID:    r.UserID,
		BusNumber: r.BusNumber,
		Date:      parseDate(r.Date),
		Day:       r.Day,
		Status:    r.Status,
	}
}

func (r *PocketBaseRESTAttendanceRepository) FindInRange(ctx context.Context, userID string, start, end time.Time) (*models.Attendance, error) {
	filter := fmt.Sprintf("user_id=%s && date>=%s && date<%s",
		quote(userID), quote(formatDate(start)), quote(formatDate(end)))
	result, err := r.client.list(ctx, AttendanceCollection, filter, "date", 1, 1)
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var rec attendanceRecord
	if err := json.Unmarshal(result.Items[0], &rec); err != nil {
		return nil, errors.Wrap(err, "decode attendance")
	}
	att := rec.toModel()
	return &att, nil
}

func (r *PocketBaseRESTAttendanceRepository) ListBetween(ctx context.Context, userID string, start, end time.Time) ([]models.Attendance, error) {
	filter := fmt.Sprintf("user_id=%s && date>=%s && date<=%s",
		quote(userID), quote(formatDate(start)), quote(formatDate(end)))
	items, err := r.client.listAll(ctx, AttendanceCollection, filter, "date")
	if err != nil {
		return nil, err
	}

	records := make([]models.Attendance, 0, len(items))
	for _, item := range items {
		var rec attendanceRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, errors.Wrap(err, "decode attendance")
		}
		records = append(records, rec.toModel())
	}
	return records, nil
}

func (r *PocketBaseRESTAttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	data := map[string]interface{}{
		"user_id":    attendance.UserID,
		"bus_number": attendance.BusNumber,
		"date":       formatDate(attendance.Date),
		"day":        attendance.Day,
		"status":     attendance.Status,
	}

	var result attendanceRecord
	if err := r.client.create(ctx, AttendanceCollection, data, &result); err != nil {
		return err
	}

	attendance.ID = result.ID
	log.Infof("💾 Saved attendance for %s on %s: %s", attendance.UserID, attendance.Day, attendance.Status)
	return nil
}

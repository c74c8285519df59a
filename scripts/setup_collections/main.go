// Command setup_collections creates the members and attendance collections
// on an external PocketBase server through its REST API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"bus-checkin/internal/models"
	"bus-checkin/internal/repository"
)

const pocketbaseURL = "http://127.0.0.1:8090"

var httpClient = &http.Client{Timeout: 10 * time.Second}

func main() {
	fmt.Println("🚀 PocketBase Collection Setup Script")
	fmt.Println("=====================================")

	// Load .env file if exists
	godotenv.Load()

	var url, token string
	flagSet := pflag.NewFlagSet("setup_collections", pflag.ExitOnError)
	flagSet.StringVar(&url, "url", getEnv("POCKETBASE_URL", pocketbaseURL), "PocketBase server URL")
	flagSet.StringVar(&token, "token", getEnv("POCKETBASE_TOKEN", ""), "superuser auth token")
	flagSet.Parse(os.Args[1:])

	fmt.Printf("Connecting to: %s\n", url)

	// Check if PocketBase is running
	if err := checkHealth(url); err != nil {
		fmt.Printf("❌ Cannot connect to PocketBase: %v\n", err)
		fmt.Printf("\nCheck with: curl %s/api/health\n", url)
		os.Exit(1)
	}

	if token == "" {
		fmt.Println("❌ POCKETBASE_TOKEN not set")
		fmt.Println("\nTo get a token:")
		fmt.Printf("  curl -X POST %s/api/collections/_superusers/auth-with-password \\\n", url)
		fmt.Println("    -H \"Content-Type: application/json\" \\")
		fmt.Println("    -d '{\"identity\":\"admin@example.com\",\"password\":\"password123\"}'")
		os.Exit(1)
	}

	// Test auth first
	if err := testAuth(url, token); err != nil {
		fmt.Printf("❌ Auth test failed: %v\n", err)
		os.Exit(1)
	}

	collections := []struct {
		name   string
		create func(string, string) error
	}{
		{repository.MembersCollection, createMembersCollection},
		{repository.AttendanceCollection, createAttendanceCollection},
	}

	failed := false
	for _, col := range collections {
		fmt.Printf("\n📦 Creating collection: %s\n", col.name)
		if err := col.create(url, token); err != nil {
			fmt.Printf("   ⚠️  %v\n", err)
			failed = true
		} else {
			fmt.Printf("   ✅ Done\n")
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("\n🎉 Setup complete!")
	fmt.Printf("\nAccess Admin UI: %s/_/\n", url)
}

func testAuth(baseURL, token string) error {
	req, _ := http.NewRequest("GET", baseURL+"/api/collections", nil)
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	fmt.Println("✅ Authentication successful")
	return nil
}

func createCollection(baseURL, token, name string, fields []map[string]interface{}, indexes []string) error {
	createData := map[string]interface{}{
		"name":    name,
		"type":    "base",
		"fields":  fields,
		"indexes": indexes,
	}

	jsonData, _ := json.Marshal(createData)
	req, _ := http.NewRequest("POST", baseURL+"/api/collections", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// Check if already exists
	if resp.StatusCode == http.StatusBadRequest && (bytes.Contains(body, []byte("already exists")) || bytes.Contains(body, []byte("must be unique"))) {
		fmt.Printf("   Collection exists, attempting to update fields...\n")
		return updateCollection(baseURL, token, name, fields, indexes)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("create failed: %s - %s", resp.Status, string(body))
	}

	fmt.Printf("   Created with %d fields and %d indexes\n", len(fields), len(indexes))
	return nil
}

// updateCollection adds missing fields and indexes to an existing collection.
func updateCollection(baseURL, token, name string, fields []map[string]interface{}, indexes []string) error {
	getURL := fmt.Sprintf("%s/api/collections/%s", baseURL, name)
	req, _ := http.NewRequest("GET", getURL, nil)
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get collection: %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var existing struct {
		ID      string                   `json:"id"`
		Fields  []map[string]interface{} `json:"fields"`
		Indexes []string                 `json:"indexes"`
	}

	if err := json.Unmarshal(body, &existing); err != nil {
		return fmt.Errorf("failed to parse collection: %v", err)
	}

	existingFieldNames := make(map[string]bool)
	for _, f := range existing.Fields {
		if name, ok := f["name"].(string); ok {
			existingFieldNames[name] = true
		}
	}

	var newFields []map[string]interface{}
	for _, field := range fields {
		if name, ok := field["name"].(string); ok && !existingFieldNames[name] {
			newFields = append(newFields, field)
		}
	}

	existingIndexes := make(map[string]bool)
	for _, idx := range existing.Indexes {
		existingIndexes[idx] = true
	}
	var newIndexes []string
	for _, idx := range indexes {
		if !existingIndexes[idx] {
			newIndexes = append(newIndexes, idx)
		}
	}

	if len(newFields) == 0 && len(newIndexes) == 0 {
		fmt.Printf("   All fields and indexes already exist\n")
		return nil
	}

	updateData := map[string]interface{}{
		"fields":  append(existing.Fields, newFields...),
		"indexes": append(existing.Indexes, newIndexes...),
	}

	jsonData, _ := json.Marshal(updateData)
	req, _ = http.NewRequest("PATCH", getURL, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err = httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update: %v", err)
	}

	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update failed: %s - %s", resp.Status, string(body))
	}

	fmt.Printf("   Added %d fields and %d indexes\n", len(newFields), len(newIndexes))
	return nil
}

func textField(name string, required bool, max int) map[string]interface{} {
	return map[string]interface{}{
		"name":     name,
		"type":     "text",
		"required": required,
		"max":      max,
	}
}

func selectField(name string, required bool, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"name":      name,
		"type":      "select",
		"required":  required,
		"maxSelect": 1,
		"values":    values,
	}
}

func createMembersCollection(baseURL, token string) error {
	fields := []map[string]interface{}{
		textField("user_id", true, 100),
		textField("name", true, 255),
		textField("bus_number", true, 50),
		selectField("role", true, models.RoleUser, models.RoleAdmin),
		textField("password_hash", true, 0),
		textField("qr_code", false, 0),
		selectField("attendance_status", false, models.StatusPresent, models.StatusAbsent),
		{"name": "telegram_chat_id", "type": "number", "onlyInt": true},
	}
	indexes := []string{
		"CREATE UNIQUE INDEX `idx_members_user_id` ON `members` (`user_id`)",
		"CREATE INDEX `idx_members_bus_role` ON `members` (`bus_number`, `role`)",
	}
	return createCollection(baseURL, token, repository.MembersCollection, fields, indexes)
}

func createAttendanceCollection(baseURL, token string) error {
	fields := []map[string]interface{}{
		textField("user_id", true, 100),
		textField("bus_number", false, 50),
		{"name": "date", "type": "date", "required": true},
		textField("day", true, 10),
		selectField("status", true, models.StatusPresent, models.StatusAbsent),
	}
	indexes := []string{
		"CREATE UNIQUE INDEX `idx_attendance_user_day` ON `attendance` (`user_id`, `day`)",
		"CREATE INDEX `idx_attendance_user_date` ON `attendance` (`user_id`, `date`)",
	}
	return createCollection(baseURL, token, repository.AttendanceCollection, fields, indexes)
}

func checkHealth(baseURL string) error {
	resp, err := httpClient.Get(baseURL + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %s", resp.Status)
	}

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("✅ PocketBase is running: %s\n", string(body))
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

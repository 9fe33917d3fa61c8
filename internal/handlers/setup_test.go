package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/noteshare-io/noteshare/internal/config"
	"github.com/noteshare-io/noteshare/internal/handlers"
	"github.com/noteshare-io/noteshare/internal/middleware"
	"github.com/noteshare-io/noteshare/internal/models"
	"github.com/noteshare-io/noteshare/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// envelope mirrors the API response shape
type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type listEnvelope struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Data    []map[string]interface{} `json:"data"`
}

// stubBlobs is an in-memory blob store with minimal "bytes=A-B" range support
type stubBlobs struct {
	objects map[string][]byte
}

func newStubBlobs() *stubBlobs {
	return &stubBlobs{objects: make(map[string][]byte)}
}

func (s *stubBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *stubBlobs) Get(ctx context.Context, key, rangeHeader string) (io.ReadCloser, int64, string, string, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, 0, "", "", errors.New("not found")
	}
	total := int64(len(data))
	if strings.HasPrefix(rangeHeader, "bytes=") {
		parts := strings.SplitN(strings.TrimPrefix(rangeHeader, "bytes="), "-", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			a, err1 := strconv.ParseInt(parts[0], 10, 64)
			b, err2 := strconv.ParseInt(parts[1], 10, 64)
			if err1 == nil && err2 == nil && a >= 0 && b >= a && b < total {
				chunk := data[a : b+1]
				contentRange := fmt.Sprintf("bytes %d-%d/%d", a, b, total)
				return io.NopCloser(bytes.NewReader(chunk)), int64(len(chunk)), contentRange, "application/pdf", nil
			}
		}
	}
	return io.NopCloser(bytes.NewReader(data)), total, "", "application/pdf", nil
}

func (s *stubBlobs) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *stubBlobs) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// mailbox captures OTP mail so tests can read the code out of the body
type mailbox struct {
	bodies []string
}

func (m *mailbox) Send(to, subject, body string) error {
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *mailbox) lastCode(t *testing.T) string {
	t.Helper()
	if len(m.bodies) == 0 {
		t.Fatal("No mail captured")
	}
	code := regexp.MustCompile(`\d{6}`).FindString(m.bodies[len(m.bodies)-1])
	if code == "" {
		t.Fatal("No code found in mail body")
	}
	return code
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	sessions *fibersession.Store
	mail     *mailbox
	blobs    *stubBlobs
}

// setupTestEnv wires an in-memory app with the same routes as cmd/server
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Note{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	mail := &mailbox{}
	blobs := newStubBlobs()
	sessions := middleware.NewSessionStore(&config.Config{}, nil)
	otp := services.NewOTPService(db, services.NewMemoryCodeStore(), mail, 10*time.Minute)

	authHandler := &handlers.AuthHandler{DB: db, OTP: otp, Sessions: sessions}
	noteHandler := &handlers.NoteHandler{DB: db, Blobs: blobs}
	profileHandler := &handlers.ProfileHandler{DB: db, Sessions: sessions, Blobs: blobs}

	requireAuth := middleware.RequireAuth(sessions)
	optionalAuth := middleware.OptionalAuth(sessions)

	app := fiber.New()
	app.Post("/register", authHandler.Register)
	app.Post("/login", authHandler.Login)
	app.Post("/logout", authHandler.Logout)

	api := app.Group("/api")
	api.Post("/send-otp", authHandler.SendOTP)
	api.Post("/verify-otp", authHandler.VerifyOTP)
	api.Post("/password-reset/send-otp", authHandler.SendResetOTP)
	api.Post("/password-reset/verify-otp", authHandler.VerifyResetOTP)
	api.Post("/password-reset/confirm", authHandler.ConfirmReset)

	notes := api.Group("/notes")
	notes.Get("/", optionalAuth, noteHandler.List)
	notes.Get("/user/:username", optionalAuth, noteHandler.ListByUser)
	notes.Get("/download/:id", noteHandler.Download)
	notes.Post("/create", requireAuth, noteHandler.Create)
	notes.Get("/:id", optionalAuth, noteHandler.GetOne)
	notes.Delete("/:id", requireAuth, noteHandler.Delete)

	profile := api.Group("/profile", requireAuth)
	profile.Post("/", profileHandler.Update)
	profile.Post("/password", profileHandler.UpdatePassword)
	profile.Post("/delete-account", profileHandler.DeleteAccount)

	return &testEnv{app: app, db: db, sessions: sessions, mail: mail, blobs: blobs}
}

// registerUser runs the full OTP + register flow and returns the user id and
// the session cookie
func (e *testEnv) registerUser(t *testing.T, username, name, email, password string) (string, *http.Cookie) {
	t.Helper()

	resp := e.doJSON(t, "POST", "/api/send-otp", map[string]string{"email": email}, nil)
	assertStatus(t, resp, 200)

	code := e.mail.lastCode(t)
	resp = e.doJSON(t, "POST", "/api/verify-otp", map[string]string{"email": email, "otp": code}, nil)
	assertStatus(t, resp, 200)

	resp = e.doJSON(t, "POST", "/register", map[string]string{
		"name": name, "username": username, "email": email, "password": password,
	}, nil)
	assertStatus(t, resp, 201)

	var env envelope
	parseJSON(t, resp, &env)
	userID, _ := env.Data["id"].(string)
	if userID == "" {
		t.Fatal("Register response is missing the user id")
	}

	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("Register did not set a session cookie")
	}
	return userID, cookie
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Value != "" {
			return c
		}
	}
	return nil
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d. Body: %s", expected, resp.StatusCode, string(body))
	}
}

func parseJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	defer resp.Body.Close()

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("Failed to decode JSON: %v. Body: %s", err, string(body))
	}
}

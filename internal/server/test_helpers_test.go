package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sugarlabs-app/confessions/backend/internal/auth"
	"github.com/sugarlabs-app/confessions/backend/internal/confessions"
	"github.com/sugarlabs-app/confessions/backend/internal/users"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "open-sesame-1"
)

type testStack struct {
	handler     http.Handler
	confessions *confessions.Service
	accounts    *users.Service
	tokens      *auth.TokenIssuer
	dispatcher  *FeedDispatcher
	clock       time.Time
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&confessions.Confession{}, &users.Account{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	clock := time.Unix(1756700000, 0).UTC()

	confessionService, err := confessions.NewService(confessions.ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return clock },
		IDProvider: confessions.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to construct confession service: %v", err)
	}

	accountService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("failed to construct account service: %v", err)
	}

	tokens := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "confessions-auth",
		Audience:      "confessions-api",
		TokenTTL:      time.Hour,
	})

	adminHash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin password: %v", err)
	}
	adminGate, err := auth.NewAdminGate(testAdminEmail, string(adminHash))
	if err != nil {
		t.Fatalf("failed to construct admin gate: %v", err)
	}

	dispatcher := NewFeedDispatcher()

	handler, err := NewHTTPHandler(Dependencies{
		Confessions: confessionService,
		Accounts:    accountService,
		Tokens:      tokens,
		AdminGate:   adminGate,
		Dispatcher:  dispatcher,
		Clock:       func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	return &testStack{
		handler:     handler,
		confessions: confessionService,
		accounts:    accountService,
		tokens:      tokens,
		dispatcher:  dispatcher,
		clock:       clock,
	}
}

func (s *testStack) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response body %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func (s *testStack) submitConfession(t *testing.T, body string) string {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/confessions", map[string]any{"confession": body}, nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("failed to submit confession: %d %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	record, ok := payload["confession"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected submit payload: %v", payload)
	}
	id, ok := record["id"].(string)
	if !ok || id == "" {
		t.Fatalf("missing confession id in %v", record)
	}
	return id
}

func (s *testStack) adminToken(t *testing.T) string {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/admin/login", map[string]any{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("admin login failed: %d %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	token, ok := payload["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("missing admin token in %v", payload)
	}
	return token
}

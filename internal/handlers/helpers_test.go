package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vapex/internal/db/dbtest"
	"vapex/internal/metrics"
	"vapex/models"
)

const testPassword = "correct-horse"

var emailCounter atomic.Int64

// setupHandlers installs a fresh database and session manager for the
// duration of the test. Handlers share package state, so these tests do not
// run in parallel.
func setupHandlers(t *testing.T) (*scs.SessionManager, *gorm.DB) {
	t.Helper()

	origSM, origDB, origOpts := sessionManager, database, options
	sm := scs.New()
	db := dbtest.Open(t)
	Configure(sm, db, Options{
		FreeRecipeLimit:     models.FreeRecipeLimit,
		FreeIngredientLimit: models.FreeIngredientLimit,
		Metrics:             metrics.New(),
	})
	t.Cleanup(func() {
		Configure(origSM, origDB, origOpts)
	})
	return sm, db
}

func createTestUser(t *testing.T, db *gorm.DB, name string, premium bool) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Email:        fmt.Sprintf("user%d@vapex.test", emailCounter.Add(1)),
		PasswordHash: string(hash),
		Name:         name,
		IsPremium:    premium,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func withSession(t *testing.T, sm *scs.SessionManager, req *http.Request) *http.Request {
	t.Helper()
	ctx, err := sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	return req.WithContext(ctx)
}

func authenticateRequest(t *testing.T, sm *scs.SessionManager, req *http.Request, userID uint) *http.Request {
	t.Helper()
	req = withSession(t, sm, req)
	sm.Put(req.Context(), sessionUserIDKey, int(userID))
	sm.Put(req.Context(), sessionAuthenticatedKey, true)
	return req
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeResponse[map[string]string](t, rec)["error"]
}

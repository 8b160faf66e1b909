package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wisbric/shiftroster/internal/authtoken"
)

func TestRespondWritesJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Respond(rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %q, missing status field", rec.Body.String())
	}
}

func TestRespondErrorWritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, "bad_request", "nope")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"bad_request"`) {
		t.Fatalf("body = %q, missing error field", rec.Body.String())
	}
}

func TestDecodeRejectsUnknownFieldsAndTrailingData(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	if err := Decode(req, &dst); err == nil {
		t.Fatal("expected an error for an unknown field")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	if err := Decode(req, &dst); err == nil {
		t.Fatal("expected an error for trailing JSON data")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if err := Decode(req, &dst); err == nil {
		t.Fatal("expected an error for an empty body")
	}
}

func TestValidateReturnsFieldLevelErrors(t *testing.T) {
	type req struct {
		Name string `json:"name" validate:"required"`
	}
	errs := Validate(&req{})
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want 1 entry", errs)
	}
	if errs[0].Field != "name" {
		t.Fatalf("Field = %q, want name", errs[0].Field)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"StartDate": "start_date",
		"ID":        "i_d",
		"name":      "name",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestIDMiddlewarePreservesIncomingID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "fixed-id" {
		t.Fatalf("RequestIDFromContext = %q, want fixed-id", seen)
	}
	if rec.Header().Get("X-Request-ID") != "fixed-id" {
		t.Fatal("expected X-Request-ID echoed in the response header")
	}
}

func TestRequestIDMiddlewareGeneratesWhenMissing(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated X-Request-ID")
	}
}

func TestAuthenticateRejectsMissingAndInvalidTokens(t *testing.T) {
	mgr, err := authtoken.NewManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	h := Authenticate(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with no header = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", rec.Code)
	}
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	mgr, err := authtoken.NewManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, err := mgr.IssueToken("client-1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var clientID string
	h := Authenticate(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID = ClaimsFromContext(r.Context()).ClientID
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if clientID != "client-1" {
		t.Fatalf("clientID = %q, want client-1", clientID)
	}
}

func TestHandleHealthz(t *testing.T) {
	s := &Server{Router: nil}
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"status":"ok"`)) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/address-book/internal/middleware"
	"github.com/sakif/address-book/internal/validation"
)

// captureBody is a terminal handler that records the body it was handed.
func captureBody(called *bool, got *[]byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		schema      validation.Schema
		contentType string // defaults to application/json
		body        string
		wantStatus  int
		wantErrors  []string
		wantBody    string // sanitized body seen by the handler
	}{
		{
			name:       "valid create passes through",
			schema:     validation.CreateContact,
			body:       `{"firstName":"Jake","lastName":"Peralta","email":"jake.peralta@x.com"}`,
			wantStatus: http.StatusNoContent,
			wantBody:   `{"email":"jake.peralta@x.com","firstName":"Jake","lastName":"Peralta"}`,
		},
		{
			name:       "unknown keys are stripped",
			schema:     validation.UpdateContact,
			body:       `{"firstName":"Jacob","email":"new@x.com","id":9}`,
			wantStatus: http.StatusNoContent,
			wantBody:   `{"firstName":"Jacob"}`,
		},
		{
			name:       "three violations in field order",
			schema:     validation.CreateContact,
			body:       `{"firstName":"","lastName":"","email":"bad"}`,
			wantStatus: http.StatusBadRequest,
			wantErrors: []string{
				`"firstName" is not allowed to be empty`,
				`"lastName" is not allowed to be empty`,
				`"email" must be a valid email`,
			},
		},
		{
			name:       "empty body on create",
			schema:     validation.CreateContact,
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantErrors: []string{
				`"firstName" is required`,
				`"lastName" is required`,
				`"email" is required`,
			},
		},
		{
			name:       "empty body on update is an empty patch",
			schema:     validation.UpdateContact,
			body:       "",
			wantStatus: http.StatusNoContent,
			wantBody:   `{}`,
		},
		{
			name:       "empty first name on update",
			schema:     validation.UpdateContact,
			body:       `{"firstName":""}`,
			wantStatus: http.StatusBadRequest,
			wantErrors: []string{`"firstName" is not allowed to be empty`},
		},
		{
			name:       "malformed JSON",
			schema:     validation.CreateContact,
			body:       `{"firstName":`,
			wantStatus: http.StatusBadRequest,
			wantErrors: []string{`"value" must be valid JSON`},
		},
		{
			name:        "json with charset parameter",
			schema:      validation.UpdateContact,
			contentType: "application/json; charset=utf-8",
			body:        `{"lastName":"Diaz"}`,
			wantStatus:  http.StatusNoContent,
			wantBody:    `{"lastName":"Diaz"}`,
		},
		{
			name:        "non-JSON content type is not parsed",
			schema:      validation.CreateContact,
			contentType: "text/plain",
			body:        `{"firstName":"Jake","lastName":"Peralta","email":"jake.peralta@x.com"}`,
			wantStatus:  http.StatusBadRequest,
			wantErrors: []string{
				`"firstName" is required`,
				`"lastName" is required`,
				`"email" is required`,
			},
		},
		{
			name:        "non-JSON content type on update is an empty patch",
			schema:      validation.UpdateContact,
			contentType: "application/x-www-form-urlencoded",
			body:        `firstName=Jacob`,
			wantStatus:  http.StatusNoContent,
			wantBody:    `{}`,
		},
		{
			name:       "array body",
			schema:     validation.UpdateContact,
			body:       `[1,2]`,
			wantStatus: http.StatusBadRequest,
			wantErrors: []string{`"value" must be of type object`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			var got []byte
			h := middleware.Validate(tt.schema)(captureBody(&called, &got))

			contentType := tt.contentType
			if contentType == "" {
				contentType = "application/json"
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/contacts", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantErrors != nil {
				assert.False(t, called, "handler must not run on invalid input")

				var resp struct {
					Message string   `json:"message"`
					Errors  []string `json:"errors"`
				}
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "Bad Request", resp.Message)
				assert.Equal(t, tt.wantErrors, resp.Errors)
				return
			}

			assert.True(t, called)
			assert.JSONEq(t, tt.wantBody, string(got))
		})
	}
}

func TestValidate_BodyTooLarge(t *testing.T) {
	var called bool
	var got []byte
	h := middleware.Validate(validation.CreateContact)(captureBody(&called, &got))

	big := `{"firstName":"` + strings.Repeat("a", middleware.MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/contacts", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.False(t, called)
	assert.Contains(t, rr.Body.String(), "Request Entity Too Large")
}

func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestIDFromContext(r.Context())
	}))

	t.Run("generates an id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, seen, 20)
		assert.Equal(t, seen, rr.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("keeps a client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "trace-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, "trace-123", seen)
		assert.Equal(t, "trace-123", rr.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("replaces an oversized client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, strings.Repeat("x", 200))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Len(t, seen, 20)
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.RequestID(middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/contacts/829392", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/contacts/829392", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])
}

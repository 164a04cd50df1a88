package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/rollcall/internal/attendance"
	"github.com/dukerupert/rollcall/internal/auth"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWriteErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized},
		{"validation", &attendance.ValidationError{FieldErrors: map[string]string{"date": "required"}}, http.StatusBadRequest},
		{"not found", attendance.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", attendance.ErrNotFound), http.StatusNotFound},
		{"closed", attendance.ErrCheckInClosed, http.StatusForbidden},
		{"transient", &attendance.TransientError{Op: "list roster", Err: errors.New("disk I/O error")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, discard, "op", tc.err)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, discard, "op", errors.New("database is locked"))
	if strings.Contains(rec.Body.String(), "locked") {
		t.Errorf("body leaks internal error: %s", rec.Body.String())
	}
}

func TestWriteErrorValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, discard, "op", &attendance.ValidationError{FieldErrors: map[string]string{"time": "expected HH:MM"}})

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["time"] != "expected HH:MM" {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"A"}`))
	if !decodeJSON(httptest.NewRecorder(), r, &dst) || dst.Name != "A" {
		t.Fatalf("decode valid body: %+v", dst)
	}

	for _, body := range []string{`{"name":"A","extra":1}`, `not json`, ``} {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/", strings.NewReader(body))
		if decodeJSON(rec, r, &dst) {
			t.Errorf("decode %q succeeded", body)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("decode %q status = %d, want 400", body, rec.Code)
		}
	}
}

package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
)

type sampleRequest struct {
	TaskID  string   `json:"task_id" validate:"required,uuid"`
	Backups []string `json:"backups" validate:"omitempty,unique,dive,uuid"`
	Notes   string   `json:"notes" validate:"max=5"`
}

func jsonRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name      string
		body      string
		wantField string
		wantErr   bool
	}{
		{name: "valid", body: `{"task_id":"` + id + `"}`},
		{name: "empty body", body: ``, wantErr: true},
		{name: "unknown field", body: `{"task_id":"` + id + `","extra":1}`, wantErr: true},
		{name: "trailing object", body: `{"task_id":"` + id + `"}{}`, wantErr: true},
		{name: "missing task", body: `{}`, wantErr: true, wantField: "task_id"},
		{name: "bad backup", body: `{"task_id":"` + id + `","backups":["nope"]}`, wantErr: true, wantField: "backups[0]"},
		{name: "duplicate backup", body: `{"task_id":"` + id + `","backups":["` + id + `","` + id + `"]}`, wantErr: true, wantField: "backups"},
		{name: "notes too long", body: `{"task_id":"` + id + `","notes":"abcdefg"}`, wantErr: true, wantField: "notes"},
	}

	for _, tt := range tests {
		var dest sampleRequest
		err := DecodeJSONBody(jsonRequest(tt.body), &dest)
		if !tt.wantErr {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
		if tt.wantField == "" {
			continue
		}
		details, ok := typed.Details().(map[string]string)
		if !ok {
			t.Fatalf("%s: expected field details, got %#v", tt.name, typed.Details())
		}
		if _, ok := details[tt.wantField]; !ok {
			t.Fatalf("%s: expected detail for %s, got %v", tt.name, tt.wantField, details)
		}
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=500", nil)

	if v, err := ParseQueryInt(req, "limit", 25, 1, 100); err != nil || v != 10 {
		t.Fatalf("expected 10, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(req, "absent", 25, 1, 100); err != nil || v != 25 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 25, 1, 100); err == nil {
		t.Fatal("expected error for non numeric value")
	}
	if _, err := ParseQueryInt(req, "big", 25, 1, 100); err == nil {
		t.Fatal("expected error for out of range value")
	}
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("bookingId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	got, err := ParseURLUUID(withParam(id.String()), "bookingId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s %v", id, got, err)
	}
	if _, err := ParseURLUUID(withParam("nope"), "bookingId"); err == nil {
		t.Fatal("expected error for malformed id")
	}
	if _, err := ParseURLUUID(withParam(""), "bookingId"); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestSanitizeOptional(t *testing.T) {
	blank := "   "
	if SanitizeOptional(&blank, 10) != nil {
		t.Fatal("expected nil for blank input")
	}
	long := "  héllo wörld  "
	got := SanitizeOptional(&long, 5)
	if got == nil || *got != "héllo" {
		t.Fatalf("unexpected result %v", got)
	}
	if SanitizeOptional(nil, 5) != nil {
		t.Fatal("expected nil passthrough")
	}
}

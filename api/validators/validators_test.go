package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type bookPayload struct {
	Title string          `json:"title" validate:"required,notblank,max=255"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
	Phone string          `json:"phone" validate:"omitempty,phone"`
}

func decode(t *testing.T, body string) (*bookPayload, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var payload bookPayload
	err := DecodeJSONBody(req, &payload)
	return &payload, err
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyValid(t *testing.T) {
	payload, err := decode(t, `{"title":"Dune","price":"12.50","phone":"+15551234567"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !payload.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected price %s", payload.Price)
	}
}

func TestDecodeJSONBodyFieldErrors(t *testing.T) {
	_, err := decode(t, `{"title":"   ","price":0,"phone":"12"}`)
	details := detailsOf(t, err)
	if details["title"] != "is required" {
		t.Fatalf("expected title detail, got %v", details)
	}
	if details["price"] != "must be greater than 0" {
		t.Fatalf("expected price detail, got %v", details)
	}
	if details["phone"] != "must be a valid phone number" {
		t.Fatalf("expected phone detail, got %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownAndEmpty(t *testing.T) {
	if _, err := decode(t, `{"title":"Dune","price":1,"isbn":"x"}`); pkgerrors.As(err) == nil {
		t.Fatalf("expected unknown field to be rejected, got %v", err)
	}
	_, err := decode(t, ``)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body is required" {
		t.Fatalf("expected empty body error, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())
	got, err := ParseUUIDParam(req, "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope")
	if _, err := ParseUUIDParam(req, "id"); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	params, err := ParsePagination(req)
	if err != nil || params.Limit != 10 {
		t.Fatalf("unexpected params %+v err %v", params, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	if _, err := ParsePagination(req); err == nil {
		t.Fatal("expected out of range limit to fail")
	}

	req = httptest.NewRequest(http.MethodGet, "/?cursor=%25%25", nil)
	if _, err := ParsePagination(req); err == nil {
		t.Fatal("expected invalid cursor to fail")
	}
}

func TestSanitizeHelpers(t *testing.T) {
	if got := SanitizeString("  héllo world  ", 5); got != "héllo" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := NormalizeEmail("  Reader@Example.COM "); got != "reader@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
	if !IsPhone("+15551234567") || IsPhone("abc") {
		t.Fatal("unexpected phone validation result")
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

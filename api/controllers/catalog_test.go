package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/bookstore-backend/internal/books"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubBooksService struct {
	book     *books.BookDTO
	err      error
	created  books.CreateInput
	listed   books.ListInput
	topLimit int
}

func (s *stubBooksService) List(ctx context.Context, input books.ListInput) (*pagination.Page[books.BookDTO], error) {
	s.listed = input
	return &pagination.Page[books.BookDTO]{Items: []books.BookDTO{}}, s.err
}

func (s *stubBooksService) Get(ctx context.Context, id uuid.UUID) (*books.BookDTO, error) {
	return s.book, s.err
}

func (s *stubBooksService) Create(ctx context.Context, input books.CreateInput) (*books.BookDTO, error) {
	s.created = input
	return s.book, s.err
}

func (s *stubBooksService) Update(ctx context.Context, id uuid.UUID, input books.UpdateInput) (*books.BookDTO, error) {
	return s.book, s.err
}

func (s *stubBooksService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubBooksService) Top(ctx context.Context, limit int) ([]books.BookDTO, error) {
	s.topLimit = limit
	return []books.BookDTO{}, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestBookCreateDecodesPrice(t *testing.T) {
	svc := &stubBooksService{book: &books.BookDTO{ID: uuid.New()}}
	body := `{"title":"Dune","author":"Frank Herbert","price":18.5,"genre":"Science Fiction","year":1965}`

	resp := httptest.NewRecorder()
	BookCreate(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/books", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.created.Price.Equal(decimal.RequireFromString("18.5")) {
		t.Fatalf("unexpected price %s", svc.created.Price)
	}
}

func TestBookCreateDuplicateIsBadRequest(t *testing.T) {
	svc := &stubBooksService{err: pkgerrors.New(pkgerrors.CodeConflict, "book already exists")}
	body := `{"title":"Dune","author":"Frank Herbert","price":18,"genre":"Science Fiction","year":1965}`

	resp := httptest.NewRecorder()
	BookCreate(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/books", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBookListForwardsGenre(t *testing.T) {
	svc := &stubBooksService{}

	resp := httptest.NewRecorder()
	BookList(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/books?genre=Poetry&limit=3", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listed.Genre != "Poetry" || svc.listed.Limit != 3 {
		t.Fatalf("unexpected list input %+v", svc.listed)
	}
}

func TestBookTopDefaultsLimit(t *testing.T) {
	svc := &stubBooksService{}

	resp := httptest.NewRecorder()
	BookTop(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/books/top", ""))

	if resp.Code != http.StatusOK || svc.topLimit != books.DefaultTopLimit {
		t.Fatalf("expected default limit, got %d (%d)", svc.topLimit, resp.Code)
	}
}

func TestBookDeleteNoContent(t *testing.T) {
	req := withURLParam(newRequest(http.MethodDelete, "/api/v1/books/x", ""), "bookId", uuid.NewString())

	resp := httptest.NewRecorder()
	BookDelete(&stubBooksService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{}).ServeHTTP(resp, newRequest(http.MethodGet, "/health/ready", ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{err: errors.New("down")}).ServeHTTP(resp, newRequest(http.MethodGet, "/health/ready", ""))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

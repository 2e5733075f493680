package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bookstore-backend/api/responses"
	"github.com/angelmondragon/bookstore-backend/api/validators"
	"github.com/angelmondragon/bookstore-backend/internal/books"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type createBookRequest struct {
	Title       string          `json:"title" validate:"notblank,max=255"`
	Author      string          `json:"author" validate:"notblank,max=255"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Genre       string          `json:"genre" validate:"notblank,max=100"`
	Cover       *string         `json:"cover" validate:"omitempty,max=255"`
	Description *string         `json:"description"`
	Year        int             `json:"year" validate:"required,gte=1"`
}

func (b createBookRequest) toInput() books.CreateInput {
	return books.CreateInput{
		Title:       b.Title,
		Author:      b.Author,
		Price:       b.Price,
		Genre:       b.Genre,
		Cover:       b.Cover,
		Description: b.Description,
		Year:        b.Year,
	}
}

type updateBookRequest struct {
	Title       *string          `json:"title" validate:"omitempty,notblank,max=255"`
	Author      *string          `json:"author" validate:"omitempty,notblank,max=255"`
	Price       *decimal.Decimal `json:"price"`
	Genre       *string          `json:"genre" validate:"omitempty,notblank,max=100"`
	Cover       *string          `json:"cover" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	Year        *int             `json:"year" validate:"omitempty,gte=1"`
}

func (b updateBookRequest) toInput() books.UpdateInput {
	return books.UpdateInput{
		Title:       b.Title,
		Author:      b.Author,
		Price:       b.Price,
		Genre:       b.Genre,
		Cover:       b.Cover,
		Description: b.Description,
		Year:        b.Year,
	}
}

// BookList pages through the catalog, optionally filtered by genre name.
func BookList(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), books.ListInput{
			Genre:  strings.TrimSpace(r.URL.Query().Get("genre")),
			Limit:  params.Limit,
			Cursor: params.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func BookTop(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", books.DefaultTopLimit, 1, books.MaxTopLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.Top(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func BookCreate(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createBookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Create(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

func BookDetail(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func BookUpdate(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateBookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Update(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func BookDelete(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

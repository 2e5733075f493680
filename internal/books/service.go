package books

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/genres"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100

	minYear        = 1
	maxTitleLength = 255
)

func duplicateBookError() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "book with this title, author, and year already exists")
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog operations over books.
type Service interface {
	List(ctx context.Context, input ListInput) (*pagination.Page[BookDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*BookDTO, error)
	Create(ctx context.Context, input CreateInput) (*BookDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*BookDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Top(ctx context.Context, limit int) ([]BookDTO, error)
}

type service struct {
	repo   *Repository
	genres *genres.Repository
	tx     txRunner
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the book service.
func NewService(repo *Repository, genreRepo *genres.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("book repository required")
	}
	if genreRepo == nil {
		return nil, fmt.Errorf("genre repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   repo,
		genres: genreRepo,
		tx:     tx,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[BookDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	params := ListParams{Limit: input.Limit, Cursor: cursor}
	if name := strings.TrimSpace(input.Genre); name != "" {
		genre, err := s.genres.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &pagination.Page[BookDTO]{Items: []BookDTO{}}, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load genre")
		}
		params.GenreID = &genre.ID
	}

	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list books")
	}
	rows, next := pagination.Trim(rows, input.Limit, cursorOf)
	return &pagination.Page[BookDTO]{Items: fromModels(rows), NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BookDTO, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(book), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*BookDTO, error) {
	if err := validateCreate(&input, s.now()); err != nil {
		return nil, err
	}

	var created *models.Book
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dup, err := repo.ExistsDuplicate(ctx, input.Title, input.Author, input.Year, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check duplicate book")
		}
		if dup {
			return duplicateBookError()
		}

		genre, err := s.genres.WithTx(tx).FindOrCreateByName(ctx, input.Genre)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve genre")
		}

		book := &models.Book{
			Title:       input.Title,
			Author:      input.Author,
			Price:       input.Price,
			GenreID:     genre.ID,
			Cover:       input.Cover,
			Description: input.Description,
			Year:        input.Year,
		}
		if err := repo.Create(ctx, book); err != nil {
			return mapWriteError(err, "create book")
		}
		created, err = repo.FindByID(ctx, book.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload book")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*BookDTO, error) {
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}
	if err := validateUpdate(&input, s.now()); err != nil {
		return nil, err
	}

	var updated *models.Book
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		book, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupError(err)
		}

		if input.Title != nil {
			book.Title = *input.Title
		}
		if input.Author != nil {
			book.Author = *input.Author
		}
		if input.Price != nil {
			book.Price = *input.Price
		}
		if input.Cover != nil {
			book.Cover = input.Cover
		}
		if input.Description != nil {
			book.Description = input.Description
		}
		if input.Year != nil {
			book.Year = *input.Year
		}
		if input.Genre != nil {
			genre, err := s.genres.WithTx(tx).FindOrCreateByName(ctx, *input.Genre)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve genre")
			}
			book.GenreID = genre.ID
			book.Genre = nil
		}

		dup, err := repo.ExistsDuplicate(ctx, book.Title, book.Author, book.Year, &book.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check duplicate book")
		}
		if dup {
			return duplicateBookError()
		}

		if err := repo.SaveEditable(ctx, book); err != nil {
			return mapWriteError(err, "update book")
		}
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload book")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Delete removes the book, its reviews and any cart lines holding it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapLookupError(err)
		}
		if _, err := repo.DeleteCascade(ctx, []uuid.UUID{id}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete book")
		}
		return nil
	})
}

func (s *service) Top(ctx context.Context, limit int) ([]BookDTO, error) {
	if limit == 0 {
		limit = DefaultTopLimit
	}
	if limit < 0 || limit > MaxTopLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid limit").
			WithDetails(map[string]string{"limit": fmt.Sprintf("must be between 1 and %d", MaxTopLimit)})
	}
	rows, err := s.repo.Top(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list top books")
	}
	return fromModels(rows), nil
}

func validateCreate(input *CreateInput, now time.Time) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.Genre = strings.TrimSpace(input.Genre)

	details := map[string]string{}
	if input.Title == "" {
		details["title"] = "is required"
	} else if len([]rune(input.Title)) > maxTitleLength {
		details["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLength)
	}
	if input.Author == "" {
		details["author"] = "is required"
	}
	if input.Genre == "" {
		details["genre"] = "is required"
	}
	if !input.Price.IsPositive() {
		details["price"] = "must be greater than 0"
	}
	if msg := checkYear(input.Year, now); msg != "" {
		details["year"] = msg
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func validateUpdate(input *UpdateInput, now time.Time) error {
	details := map[string]string{}
	if input.Title != nil {
		v := strings.TrimSpace(*input.Title)
		input.Title = &v
		if v == "" {
			details["title"] = "must not be blank"
		} else if len([]rune(v)) > maxTitleLength {
			details["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLength)
		}
	}
	if input.Author != nil {
		v := strings.TrimSpace(*input.Author)
		input.Author = &v
		if v == "" {
			details["author"] = "must not be blank"
		}
	}
	if input.Genre != nil {
		v := strings.TrimSpace(*input.Genre)
		input.Genre = &v
		if v == "" {
			details["genre"] = "must not be blank"
		}
	}
	if input.Price != nil && !input.Price.IsPositive() {
		details["price"] = "must be greater than 0"
	}
	if input.Year != nil {
		if msg := checkYear(*input.Year, now); msg != "" {
			details["year"] = msg
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func checkYear(year int, now time.Time) string {
	if year < minYear || year > now.Year()+1 {
		return fmt.Sprintf("must be between %d and %d", minYear, now.Year()+1)
	}
	return ""
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return duplicateBookError()
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

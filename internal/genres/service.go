package genres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/bookstore-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxNameLength = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BookCascader removes every book in a genre along with the rows that
// reference those books. It must run inside the caller's transaction.
type BookCascader interface {
	DeleteByGenre(ctx context.Context, tx *gorm.DB, genreID uuid.UUID) (int64, error)
}

// Service exposes genre CRUD.
type Service interface {
	List(ctx context.Context) ([]GenreDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*GenreDTO, error)
	Create(ctx context.Context, name string) (*GenreDTO, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*GenreDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo  *Repository
	tx    txRunner
	books BookCascader
	logg  *logger.Logger
}

// NewService builds a genre service.
func NewService(repo *Repository, tx txRunner, books BookCascader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("genre repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if books == nil {
		return nil, fmt.Errorf("book cascader required")
	}
	return &service{repo: repo, tx: tx, books: books, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]GenreDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list genres")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	counts, err := s.repo.CountBooks(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count genre books")
	}
	out := make([]GenreDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], counts[rows[i].ID]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*GenreDTO, error) {
	genre, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	counts, err := s.repo.CountBooks(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count genre books")
	}
	return FromModel(genre, counts[id]), nil
}

func (s *service) Create(ctx context.Context, name string) (*GenreDTO, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	var genre *GenreDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).Create(ctx, name)
		if err != nil {
			return mapWriteError(err, "create genre")
		}
		genre = FromModel(created, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return genre, nil
}

func (s *service) Rename(ctx context.Context, id uuid.UUID, name string) (*GenreDTO, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	var genre *GenreDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updated, err := repo.Rename(ctx, id, name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return mapLookupError(err)
			}
			return mapWriteError(err, "rename genre")
		}
		counts, err := repo.CountBooks(ctx, []uuid.UUID{id})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count genre books")
		}
		genre = FromModel(updated, counts[id])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return genre, nil
}

// Delete removes the genre and cascades to its books, their reviews and any
// cart lines holding them.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapLookupError(err)
		}
		removed, err := s.books.DeleteByGenre(ctx, tx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete genre books")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return mapLookupError(err)
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"genre_id":      id.String(),
				"books_removed": removed,
			})
			s.logg.Info(logCtx, "genre.deleted")
		}
		return nil
	})
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "genre name is required").
			WithDetails(map[string]string{"name": "is required"})
	}
	if len([]rune(name)) > maxNameLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "genre name is too long").
			WithDetails(map[string]string{"name": fmt.Sprintf("must be at most %d characters", maxNameLength)})
	}
	return name, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "genre not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load genre")
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "genre with this name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

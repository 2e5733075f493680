package books

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/bookstore-backend/internal/genres"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

//go:embed catalog.json
var defaultCatalog []byte

// CatalogEntry is one book in a seed catalog file.
type CatalogEntry struct {
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Price       decimal.Decimal `json:"price"`
	Genre       string          `json:"genre"`
	Cover       string          `json:"cover"`
	Description string          `json:"description"`
	Year        int             `json:"year"`
}

// ParseCatalog decodes a catalog file. A nil payload yields the embedded
// default catalog.
func ParseCatalog(payload []byte) ([]CatalogEntry, error) {
	if payload == nil {
		payload = defaultCatalog
	}
	var entries []CatalogEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Genre) == "" {
			return nil, fmt.Errorf("catalog entry %d: title and genre are required", i)
		}
		if !e.Price.IsPositive() {
			return nil, fmt.Errorf("catalog entry %d: price must be positive", i)
		}
	}
	return entries, nil
}

// Seeder loads a catalog into an empty books table.
type Seeder struct {
	tx     txRunner
	books  *Repository
	genres *genres.Repository
	logg   *logger.Logger
}

func NewSeeder(tx txRunner, books *Repository, genreRepo *genres.Repository, logg *logger.Logger) *Seeder {
	return &Seeder{tx: tx, books: books, genres: genreRepo, logg: logg}
}

// Seed inserts genres then books when no book exists yet. It returns the
// number of books inserted; zero means the catalog was already populated.
func (s *Seeder) Seed(ctx context.Context, entries []CatalogEntry) (int, error) {
	inserted := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookRepo := s.books.WithTx(tx)
		count, err := bookRepo.Count(ctx)
		if err != nil {
			return fmt.Errorf("count books: %w", err)
		}
		if count > 0 {
			return nil
		}

		names := map[string]struct{}{}
		for _, e := range entries {
			names[strings.TrimSpace(e.Genre)] = struct{}{}
		}
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)

		genreRepo := s.genres.WithTx(tx)
		genreIDs := make(map[string]uuid.UUID, len(sorted))
		for _, name := range sorted {
			genre, err := genreRepo.FindOrCreateByName(ctx, name)
			if err != nil {
				return fmt.Errorf("genre %q: %w", name, err)
			}
			genreIDs[name] = genre.ID
		}

		rows := make([]models.Book, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, models.Book{
				Title:       strings.TrimSpace(e.Title),
				Author:      strings.TrimSpace(e.Author),
				Price:       e.Price,
				GenreID:     genreIDs[strings.TrimSpace(e.Genre)],
				Cover:       optional(e.Cover),
				Description: optional(e.Description),
				Year:        e.Year,
			})
		}
		if err := bookRepo.CreateBatch(ctx, rows); err != nil {
			return fmt.Errorf("insert books: %w", err)
		}
		inserted = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "books_inserted", inserted)
		s.logg.Info(logCtx, "catalog.seeded")
	}
	return inserted, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

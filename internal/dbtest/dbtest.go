// Package dbtest opens migrated SQLite databases for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"hash/crc32"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/migrate"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a private in-memory database with every migration applied.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.UpEmbedded(context.Background(), sqlDB, "sqlite3"))
	return conn
}

// Client wraps Open in a db.Client for services that need transactions.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromGorm(conn), conn
}

// SeedGenre inserts a genre with the given name.
func SeedGenre(t *testing.T, conn *gorm.DB, name string) models.Genre {
	t.Helper()
	genre := models.Genre{Name: name}
	require.NoError(t, conn.Create(&genre).Error)
	return genre
}

// SeedBook inserts a book priced at price in genre.
func SeedBook(t *testing.T, conn *gorm.DB, genreID uuid.UUID, title, price string) models.Book {
	t.Helper()
	book := models.Book{
		Title:   title,
		Author:  "Author of " + title,
		Price:   decimal.RequireFromString(price),
		GenreID: genreID,
		Year:    2001,
	}
	require.NoError(t, conn.Create(&book).Error)
	return book
}

// SeedUser inserts a user whose username, email and phone derive from handle.
func SeedUser(t *testing.T, conn *gorm.DB, handle string) models.User {
	t.Helper()
	user := models.User{
		Username:     handle,
		Email:        handle + "@example.com",
		Phone:        fmt.Sprintf("+1%010d", crc32.ChecksumIEEE([]byte(handle))),
		PasswordHash: "$argon2id$v=19$m=8,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5",
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var errMalformedCursor = errors.New("malformed cursor")

// Params carries the raw limit and cursor from a list request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (created_at, id) key of the last row on a page. Lists are
// ordered newest first with id as the tiebreaker.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer asks for one extra row so Trim can tell whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders the cursor as URL-safe text for query strings.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for a blank value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedCursor, err)
	}
	nanos, id, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, errMalformedCursor
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", errMalformedCursor, err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", errMalformedCursor, err)
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: parsedID}, nil
}

// Keyset orders q newest first and, given a cursor, skips everything up to
// and including the cursor row. The limit is left to the caller.
func Keyset(q *gorm.DB, c *Cursor) *gorm.DB {
	if c != nil {
		q = q.Where("((created_at < ?) OR (created_at = ? AND id < ?))", c.CreatedAt, c.CreatedAt, c.ID)
	}
	return q.Order("created_at DESC").Order("id DESC")
}

// Page is one page of a cursor-paginated list.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Trim drops the look-ahead row fetched by LimitWithBuffer and returns the
// cursor of the next page, or "" on the last page.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(cursorOf(rows[limit-1]))
}

package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the per-user cart operations. Every call creates the cart
// on first access.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, bookID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo CartRepository
	tx   txRunner
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo CartRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	return s.run(ctx, userID, func(*gorm.DB, CartRepository, *models.Cart) error { return nil })
}

// AddItem inserts a line or increments the existing one for the book.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if err := validateQuantity(input.Quantity); err != nil {
		return nil, err
	}
	return s.run(ctx, userID, func(tx *gorm.DB, repo CartRepository, record *models.Cart) error {
		if err := ensureBook(ctx, tx, input.BookID); err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, record.ID, input.BookID)
		switch {
		case err == nil:
			if err := repo.SetQuantity(ctx, item.ID, item.Quantity+input.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := repo.CreateItem(ctx, &models.CartItem{
				CartID:   record.ID,
				BookID:   input.BookID,
				Quantity: input.Quantity,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		return nil
	})
}

// UpdateItem sets an absolute quantity on an existing line.
func (s *service) UpdateItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	return s.run(ctx, userID, func(_ *gorm.DB, repo CartRepository, record *models.Cart) error {
		item, err := repo.FindItem(ctx, record.ID, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		if err := repo.SetQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, bookID uuid.UUID) (*CartDTO, error) {
	return s.run(ctx, userID, func(_ *gorm.DB, repo CartRepository, record *models.Cart) error {
		removed, err := repo.DeleteItem(ctx, record.ID, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	return s.run(ctx, userID, func(_ *gorm.DB, repo CartRepository, record *models.Cart) error {
		if err := repo.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
}

// run loads or creates the cart, applies mutate and returns the refreshed
// view, all in one transaction.
func (s *service) run(ctx context.Context, userID uuid.UUID, mutate func(*gorm.DB, CartRepository, *models.Cart) error) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if err := mutate(tx, repo, record); err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
		}
		out = BuildDTO(record, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ensureBook(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	return nil
}

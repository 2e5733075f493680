package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/bookstore-backend/internal/books"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the user-facing order operations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OrderDTO, error)
	Update(ctx context.Context, userID, orderID uuid.UUID, input UpdateInput) (*OrderDTO, error)
}

type service struct {
	repo  Repository
	books *books.Repository
	tx    txRunner
	logg  *logger.Logger
}

// NewService builds the order service.
func NewService(repo Repository, bookRepo *books.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if bookRepo == nil {
		return nil, fmt.Errorf("book repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, books: bookRepo, tx: tx, logg: logg}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	rows, next := pagination.Trim(rows, params.Limit, cursorOf)
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &pagination.Page[OrderDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(order), nil
}

// Create places an order directly from an item list, snapshotting current
// prices. A missing book aborts the whole order.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OrderDTO, error) {
	address, err := NormalizeShippingAddress(input.ShippingAddress)
	if err != nil {
		return nil, err
	}
	requested, order, err := mergeItems(input.Items)
	if err != nil {
		return nil, err
	}

	var out *OrderDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.books.WithTx(tx).FindByIDs(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load books")
		}
		lines := make([]Line, 0, len(order))
		for _, id := range order {
			book, ok := found[id]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found").
					WithDetails(map[string]string{"book_id": id.String()})
			}
			lines = append(lines, Line{Book: book, Quantity: requested[id]})
		}

		record := NewOrder(userID, address, lines)
		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		out = FromModel(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, out.ID.String()), map[string]any{
			"total_amount": out.TotalAmount.String(),
			"items":        len(out.Items),
		})
		s.logg.Info(logCtx, "order.created")
	}
	return out, nil
}

// Update applies a status transition and/or a new shipping address. A
// same-status update is a no-op.
func (s *service) Update(ctx context.Context, userID, orderID uuid.UUID, input UpdateInput) (*OrderDTO, error) {
	if input.Status == nil && input.ShippingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}

	var nextStatus enums.OrderStatus
	if input.Status != nil {
		parsed, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(*input.Status)))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
				WithDetails(map[string]string{"status": "must be one of pending, processing, shipped, delivered, cancelled"})
		}
		nextStatus = parsed
	}
	var address string
	if input.ShippingAddress != nil {
		normalized, err := NormalizeShippingAddress(*input.ShippingAddress)
		if err != nil {
			return nil, err
		}
		address = normalized
	}

	var out *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUser(ctx, orderID, userID)
		if err != nil {
			return mapLookupError(err)
		}

		updates := map[string]any{}
		if input.ShippingAddress != nil && address != order.ShippingAddress {
			if !order.Status.AllowsAddressChange() {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("shipping address cannot change once the order is %s", order.Status))
			}
			updates["shipping_address"] = address
		}
		if input.Status != nil && nextStatus != order.Status {
			if !order.Status.CanTransitionTo(nextStatus) {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("cannot change order status from %s to %s", order.Status, nextStatus)).
					WithDetails(map[string]any{
						"from":    order.Status,
						"to":      nextStatus,
						"allowed": order.Status.NextOrderStatuses(),
					})
			}
			updates["status"] = nextStatus
		}

		if len(updates) > 0 {
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
			}
			order, err = repo.FindForUser(ctx, orderID, userID)
			if err != nil {
				return mapLookupError(err)
			}
		}
		out = FromModel(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mergeItems validates the requested items and folds repeated books into a
// single line, preserving first-seen order.
func mergeItems(items []ItemInput) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	quantities := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for i, item := range items {
		if item.BookID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{fmt.Sprintf("items[%d].book_id", i): "is required"})
		}
		if item.Quantity < 1 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{fmt.Sprintf("items[%d].quantity", i): "must be at least 1"})
		}
		if _, seen := quantities[item.BookID]; !seen {
			order = append(order, item.BookID)
		}
		quantities[item.BookID] += item.Quantity
	}
	return quantities, order, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}

package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/bookstore-backend/internal/books"
	"github.com/angelmondragon/bookstore-backend/internal/cart"
	"github.com/angelmondragon/bookstore-backend/internal/orders"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type bookLoader interface {
	Load(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Book, error)
}

type catalogLoader struct{}

func (catalogLoader) Load(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Book, error) {
	return books.NewRepository(tx).FindByIDs(ctx, ids)
}

// Service converts a user's cart into an order.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, shippingAddress string) (*orders.OrderDTO, error)
}

type service struct {
	tx         txRunner
	cartRepo   cart.CartRepository
	ordersRepo orders.Repository
	books      bookLoader
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
}

// NewService builds the checkout service. A nil loader reads books from the
// catalog inside the checkout transaction.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	ordersRepo orders.Repository,
	loader bookLoader,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if loader == nil {
		loader = catalogLoader{}
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		books:      loader,
		metrics:    m,
		logg:       logg,
	}, nil
}

// Checkout locks the cart row, snapshots current prices into a pending
// order and empties the cart. Any failure leaves both untouched.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, shippingAddress string) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	address, err := orders.NormalizeShippingAddress(shippingAddress)
	if err != nil {
		return nil, err
	}

	var result *orders.OrderDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		record, err := cartRepo.LockByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return emptyCartError()
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
		}
		items, err := cartRepo.ListItems(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
		}
		if len(items) == 0 {
			return emptyCartError()
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.BookID)
		}
		found, err := s.books.Load(ctx, tx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load books")
		}

		lines := make([]orders.Line, 0, len(items))
		for _, item := range items {
			book, ok := found[item.BookID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeBookUnavailable, "book is no longer available").
					WithDetails(map[string]string{"book_id": item.BookID.String()})
			}
			lines = append(lines, orders.Line{Book: book, Quantity: item.Quantity})
		}

		order := orders.NewOrder(userID, address, lines)
		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := cartRepo.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		result = orders.FromModel(order)
		return nil
	})
	if err != nil {
		s.metrics.IncOutcome(outcomeFor(err))
		return nil, err
	}

	s.metrics.IncOutcome(metrics.CheckoutOutcomeSuccess)
	s.metrics.AddRevenue(result.TotalAmount)
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, result.ID.String()), map[string]any{
			"user_id":      userID.String(),
			"total_amount": result.TotalAmount.String(),
			"items":        len(result.Items),
		})
		s.logg.Info(logCtx, "checkout.completed")
	}
	return result, nil
}

func emptyCartError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeBookUnavailable):
		return metrics.CheckoutOutcomeBookUnavailable
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return metrics.CheckoutOutcomeEmptyCart
	default:
		return metrics.CheckoutOutcomeError
	}
}

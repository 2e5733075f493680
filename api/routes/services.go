package routes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bookstore-backend/internal/auth"
	"github.com/angelmondragon/bookstore-backend/internal/books"
	"github.com/angelmondragon/bookstore-backend/internal/cart"
	"github.com/angelmondragon/bookstore-backend/internal/checkout"
	"github.com/angelmondragon/bookstore-backend/internal/genres"
	"github.com/angelmondragon/bookstore-backend/internal/orders"
	"github.com/angelmondragon/bookstore-backend/internal/reviews"
	"github.com/angelmondragon/bookstore-backend/internal/users"
	"github.com/angelmondragon/bookstore-backend/pkg/auth/session"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/metrics"
)

// SessionStore creates, resolves and revokes login sessions.
type SessionStore interface {
	session.Resolver
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

// ServiceDeps carries the infrastructure the domain services are built on.
type ServiceDeps struct {
	Config   *config.Config
	DB       *db.Client
	Sessions SessionStore
	Sender   auth.SMSSender
	Registry prometheus.Registerer
	Logger   *logger.Logger
}

// BuildServices wires every domain service over a single database client.
func BuildServices(deps ServiceDeps) (Services, error) {
	if deps.Config == nil || deps.DB == nil || deps.Sessions == nil {
		return Services{}, fmt.Errorf("config, database and sessions are required")
	}
	conn := deps.DB.DB()
	logg := deps.Logger
	sender := deps.Sender
	if sender == nil {
		sender = auth.NewLogSender(logg)
	}

	userRepo := users.NewRepository(conn)
	bookRepo := books.NewRepository(conn)
	genreRepo := genres.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	var (
		out Services
		err error
	)
	if out.Auth, err = auth.NewService(auth.ServiceParams{
		DB:             deps.DB,
		Users:          userRepo,
		Sessions:       deps.Sessions,
		SessionConfig:  deps.Config.Session,
		PasswordConfig: deps.Config.Password,
		Logger:         logg,
	}); err != nil {
		return Services{}, fmt.Errorf("auth service: %w", err)
	}
	if out.Profile, err = auth.NewProfileService(deps.DB, userRepo, deps.Sessions, logg); err != nil {
		return Services{}, fmt.Errorf("profile service: %w", err)
	}
	if out.Verification, err = auth.NewVerificationService(auth.VerificationParams{
		DB:     deps.DB,
		Users:  userRepo,
		Sender: sender,
		Config: deps.Config.Verification,
		Logger: logg,
	}); err != nil {
		return Services{}, fmt.Errorf("verification service: %w", err)
	}
	if out.Books, err = books.NewService(bookRepo, genreRepo, deps.DB, logg); err != nil {
		return Services{}, fmt.Errorf("books service: %w", err)
	}
	if out.Genres, err = genres.NewService(genreRepo, deps.DB, bookRepo, logg); err != nil {
		return Services{}, fmt.Errorf("genres service: %w", err)
	}
	if out.Reviews, err = reviews.NewService(reviews.NewRepository(conn), deps.DB, logg); err != nil {
		return Services{}, fmt.Errorf("reviews service: %w", err)
	}
	if out.Cart, err = cart.NewService(cartRepo, deps.DB); err != nil {
		return Services{}, fmt.Errorf("cart service: %w", err)
	}
	if out.Checkout, err = checkout.NewService(deps.DB, cartRepo, orderRepo, nil, metrics.NewCheckoutMetrics(deps.Registry), logg); err != nil {
		return Services{}, fmt.Errorf("checkout service: %w", err)
	}
	if out.Orders, err = orders.NewService(orderRepo, bookRepo, deps.DB, logg); err != nil {
		return Services{}, fmt.Errorf("orders service: %w", err)
	}
	return out, nil
}

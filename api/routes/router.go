package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bookstore-backend/api/controllers"
	"github.com/angelmondragon/bookstore-backend/api/middleware"
	"github.com/angelmondragon/bookstore-backend/internal/auth"
	"github.com/angelmondragon/bookstore-backend/internal/books"
	"github.com/angelmondragon/bookstore-backend/internal/cart"
	"github.com/angelmondragon/bookstore-backend/internal/checkout"
	"github.com/angelmondragon/bookstore-backend/internal/genres"
	"github.com/angelmondragon/bookstore-backend/internal/orders"
	"github.com/angelmondragon/bookstore-backend/internal/reviews"
	"github.com/angelmondragon/bookstore-backend/pkg/auth/session"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/metrics"
)

// counterStore backs the rate limiters and is pinged for readiness.
type counterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	TTL(context.Context, string) (time.Duration, error)
	Ping(context.Context) error
}

// Services groups the domain services mounted on the router.
type Services struct {
	Auth         auth.Service
	Profile      auth.ProfileService
	Verification auth.VerificationService
	Books        books.Service
	Genres       genres.Service
	Reviews      reviews.Service
	Cart         cart.Service
	Checkout     checkout.Service
	Orders       orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient counterStore,
	registry *prometheus.Registry,
	sessions session.Resolver,
	userChecker middleware.UserChecker,
	svc Services,
) http.Handler {
	var reg prometheus.Registerer
	if registry != nil {
		reg = registry
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(metrics.NewHTTPMetrics(reg)),
		middleware.CORS(cfg.CORS),
	)

	limits := cfg.AuthRateLimit
	loginPolicy := middleware.EmailPolicy("login", limits.LoginWindow, limits.LoginIPLimit, limits.LoginEmailLimit)
	registerPolicy := middleware.EmailPolicy("register", limits.RegisterWindow, limits.RegisterIPLimit, limits.RegisterEmailLimit)
	sendCodePolicy := middleware.RateLimitPolicy{
		Name:        "send_code",
		Window:      limits.SendCodeWindow,
		PerIP:       limits.SendCodeIPLimit,
		PerSubject:  limits.SendCodeUserLimit,
		SubjectKind: "user",
		Subject:     middleware.UserSubject,
	}
	requireSession := middleware.Auth(cfg.Session, sessions, userChecker, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.BookList(svc.Books, logg))
			r.Post("/", controllers.BookCreate(svc.Books, logg))
			r.Get("/top", controllers.BookTop(svc.Books, logg))
			r.Route("/{bookId}", func(r chi.Router) {
				r.Get("/", controllers.BookDetail(svc.Books, logg))
				r.Put("/", controllers.BookUpdate(svc.Books, logg))
				r.Delete("/", controllers.BookDelete(svc.Books, logg))
				r.Get("/reviews", controllers.ReviewList(svc.Reviews, logg))
				r.With(requireSession).Post("/review", controllers.ReviewUpsert(svc.Reviews, logg))
				r.With(requireSession).Delete("/review", controllers.ReviewDelete(svc.Reviews, logg))
			})
		})

		r.Route("/genres", func(r chi.Router) {
			r.Get("/", controllers.GenreList(svc.Genres, logg))
			r.Post("/", controllers.GenreCreate(svc.Genres, logg))
			r.Get("/{genreId}", controllers.GenreDetail(svc.Genres, logg))
			r.Put("/{genreId}", controllers.GenreRename(svc.Genres, logg))
			r.Delete("/{genreId}", controllers.GenreDelete(svc.Genres, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.UserRegister(svc.Auth, logg))
			r.With(middleware.RateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.UserLogin(svc.Auth, cfg.Session, logg))
			r.With(requireSession).Post("/logout", controllers.UserLogout(svc.Auth, cfg.Session, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", controllers.MeProfile(svc.Profile, logg))
				r.Put("/", controllers.MeUpdate(svc.Profile, logg))
				r.Delete("/", controllers.MeDelete(svc.Profile, cfg.Session, logg))
			})

			r.Route("/auth", func(r chi.Router) {
				r.With(middleware.RateLimit(sendCodePolicy, redisClient, logg)).Post("/send-code", controllers.SendVerificationCode(svc.Verification, logg))
				r.Post("/verify", controllers.VerifyPhone(svc.Verification, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svc.Cart, logg))
				r.Post("/", controllers.CartAddItem(svc.Cart, logg))
				r.Delete("/", controllers.CartClear(svc.Cart, logg))
				r.Put("/", controllers.CartCheckout(svc.Checkout, logg))
				r.Put("/items/{bookId}", controllers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{bookId}", controllers.CartRemoveItem(svc.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(svc.Orders, logg))
				r.Post("/", controllers.OrderCreate(svc.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svc.Orders, logg))
				r.Put("/{orderId}", controllers.OrderUpdate(svc.Orders, logg))
			})
		})
	})

	return r
}

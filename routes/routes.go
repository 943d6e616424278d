package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/texperia/registration/docs"
	"github.com/texperia/registration/handlers"
	"github.com/texperia/registration/middleware"
)

const requestTimeout = 30 * time.Second

// Handlers собирает все HTTP-обработчики приложения.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Team      *handlers.TeamHandler
	Payment   *handlers.PaymentHandler
	Admin     *handlers.AdminHandler
	Contact   *handlers.ContactHandler
	WebSocket *handlers.WebSocketHandler
	Health    *handlers.HealthHandler
}

type Options struct {
	AllowedOrigins []string
	Tokens         middleware.TokenValidator
	Resolver       middleware.ScopeResolver
	// Instrument и Metrics необязательны.
	Instrument func(http.Handler) http.Handler
	Metrics    http.Handler
	Logger     *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	if opts.Instrument != nil {
		router.Use(opts.Instrument)
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/", h.Health.Root)
	router.Get("/health", h.Health.Health)
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	router.Get("/swagger/doc.json", docs.Handler)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	authenticate := middleware.Authenticate(opts.Tokens)

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Post("/contact", h.Contact.Submit)

			r.Route("/teams", func(r chi.Router) {
				r.Post("/register", h.Auth.Register)
				r.Post("/login", h.Auth.Login)
				r.Get("/registration-status", h.Team.RegistrationStatus)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Post("/create", h.Team.CreateTeam)
					r.Put("/update", h.Team.UpdateTeam)
					r.Get("/me", h.Team.GetMyTeam)
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/info", h.Payment.Info)
				r.Post("/initiate", h.Payment.Initiate)
				r.Post("/submit", h.Payment.Submit)
				r.Get("/status", h.Payment.Status)
				r.Post("/receipt", h.Payment.UploadReceipt)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			// Токен вебсокета приходит в query, проверка внутри обработчика.
			r.Get("/ws", h.WebSocket.ServeWs)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(requestTimeout))
				r.Use(authenticate)
				r.Use(middleware.RequireAdmin(opts.Resolver))

				r.Get("/stats", h.Admin.Stats)
				r.Get("/departments", h.Admin.Departments)
				r.Get("/revenue-chart", h.Admin.RevenueChart)
				r.Get("/year-wise-stats", h.Admin.YearStats)
				r.Get("/event-stats", h.Admin.EventStats)

				r.Get("/teams", h.Admin.ListTeams)
				r.Put("/teams/{teamID}/verify", h.Admin.ToggleTeamVerification)
				r.Delete("/teams/{teamID}", h.Admin.DeleteTeam)

				r.Put("/payments/{teamID}/verify", h.Admin.VerifyPayment)
				r.Put("/payments/{teamID}/reject", h.Admin.RejectPayment)

				r.Get("/contacts", h.Admin.ListContacts)
				r.Put("/contacts/{contactID}/read", h.Admin.MarkContactRead)

				r.Get("/export/csv", h.Admin.ExportCSV)
				r.Get("/export/csv/all", h.Admin.ExportAll)
			})
		})
	})
}

package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/tournament-arena/docs"
	"github.com/Dosada05/tournament-arena/handlers"
	"github.com/Dosada05/tournament-arena/metrics"
	"github.com/Dosada05/tournament-arena/middleware"
	"github.com/Dosada05/tournament-arena/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Admin      *handlers.AdminHandler
	Dashboard  *handlers.DashboardHandler
	Wallet     *handlers.WalletHandler
	Category   *handlers.CategoryHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Invite     *handlers.InviteHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	Authenticator  *middleware.Authenticator
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	AllowedOrigins []string
}

func SetupRoutes(r chi.Router, h Handlers, opts Options) {
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger, opts.Metrics))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	auth := opts.Authenticator
	staff := middleware.Authorize(models.RoleStaff, models.RoleAdmin)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", opts.Metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// websocket соединения живут дольше requestTimeout
	r.With(auth.Optional).Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
		})

		r.Get("/categories", h.Category.List)
		r.With(auth.Authenticate, staff).Post("/categories", h.Category.Create)

		r.Route("/tournaments", func(r chi.Router) {
			// Публичные маршруты для просмотра турниров
			r.With(auth.Optional).Get("/", h.Tournament.List)
			r.With(auth.Optional).Get("/{tournamentID}", h.Tournament.Get)
			r.Get("/{tournamentID}/points", h.Tournament.Points)
			r.Get("/{tournamentID}/points/export", h.Tournament.ExportPoints)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)
				r.Post("/{tournamentID}/join", h.Tournament.Join)

				// Только персонал
				r.Group(func(r chi.Router) {
					r.Use(staff)
					r.Post("/", h.Tournament.Create)
					r.Put("/{tournamentID}", h.Tournament.Update)
					r.Post("/{tournamentID}/live", h.Tournament.GoLive)
					r.Post("/{tournamentID}/cancel", h.Tournament.Cancel)
					r.Post("/{tournamentID}/finalize", h.Tournament.Finalize)
					r.Post("/{tournamentID}/banner", h.Tournament.UploadBanner)
					r.Put("/{tournamentID}/points", h.Tournament.UpdatePoints)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.User.Me)
				r.Patch("/", h.User.UpdateMe)
				r.Get("/dashboard", h.Dashboard.Get)
				r.Get("/tournaments", h.User.MyTournaments)
				r.Get("/wins", h.User.MyWins)
				r.Get("/coin-requests", h.Wallet.MyRequests)
				r.Post("/coin-requests", h.Wallet.CreateRequest)
				r.Get("/invitations", h.Invite.ListMine)
			})

			r.With(staff).Get("/coin-requests", h.Wallet.ListRequests)
			r.With(staff).Post("/coin-requests/{requestID}/decision", h.Wallet.Decide)

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", h.Team.ListMine)
				r.Post("/", h.Team.Create)
				r.Post("/{teamID}/invitations", h.Team.Invite)
				r.Post("/{teamID}/leave", h.Team.Leave)
				r.Post("/{teamID}/logo", h.Team.UploadLogo)
			})
			r.Post("/invitations/{invitationID}/respond", h.Invite.Respond)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.Authorize(models.RoleAdmin))
				r.Get("/users", h.Admin.ListUsers)
				r.Post("/users/{userID}/status", h.Admin.SetUserStatus)
			})
		})
	})
}

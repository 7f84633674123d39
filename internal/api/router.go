package api

import (
	"net/http"
	"time"

	"data_quest/internal/api/handler"
	"data_quest/internal/api/middleware"
	"data_quest/internal/app/service"
	"data_quest/internal/common/security"
	"data_quest/internal/domain/model"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

type Services struct {
	Auth          *service.AuthService
	Submissions   *service.SubmissionService
	PvP           *service.PvPService
	Achievements  *service.AchievementService
	Streaks       *service.StreakService
	Notifications *service.NotificationService
	Leaderboard   *service.LeaderboardService
	Users         *service.UserService
}

// DefaultRequestTimeout applies when NewRouter is given no timeout.
const DefaultRequestTimeout = 60 * time.Second

// NewRouter mounts every route. requestTimeout bounds each request's
// context; it must cover a full grading call including retries.
func NewRouter(s Services, requestTimeout time.Duration) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(requestTimeout))

	// Verifier only parses "Authorization: Bearer T"; RequireCaller enforces it per group.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(s.Auth)
	challengeHandler := handler.NewChallengeHandler(s.Submissions)
	pvpHandler := handler.NewPvPHandler(s.PvP)
	gamificationHandler := handler.NewGamificationHandler(s.Achievements, s.Streaks, s.Notifications)
	leaderboardHandler := handler.NewLeaderboardHandler(s.Leaderboard, s.PvP)
	userHandler := handler.NewUserHandler(s.Users)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", authHandler.RegisterRoutes)

		v1.Group(func(private chi.Router) {
			private.Use(middleware.RequireCaller)

			private.Route("/challenges", challengeHandler.RegisterRoutes)
			private.Route("/pvp", pvpHandler.RegisterRoutes)
			private.Route("/me", gamificationHandler.RegisterRoutes)
			private.Get("/achievements", gamificationHandler.ListAchievements)
			private.Route("/leaderboard", leaderboardHandler.RegisterRoutes)
			private.Route("/users", userHandler.RegisterRoutes)

			private.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.RequireRole(model.RoleAdmin))
				leaderboardHandler.RegisterAdminRoutes(admin)
			})
		})
	})

	return r
}

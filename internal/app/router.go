package app

import (
	"database/sql"
	"net/http"
	"time"

	"englearn/internal/app/observability"
	"englearn/internal/auth"
	"englearn/internal/logger"
	"englearn/internal/quiz"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps carries the shared resources the router wires into services.
// DetailCache may be nil.
type Deps struct {
	DB          *sql.DB
	Log         *logger.Logger
	DetailCache quiz.DetailCache
}

func NewRouter(cfg Config, deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	metrics := observability.NewCollector(deps.DB, log)
	r.Use(metrics.Middleware)

	authSvc := auth.NewService(deps.DB, auth.ServiceConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL(),
	})
	authHandler := auth.NewHandler(authSvc, log)

	quizSvc := quiz.NewService(deps.DB, log)
	if deps.DetailCache != nil {
		quizSvc.WithCache(deps.DetailCache)
	}
	quizHandler := quiz.NewHandler(quizSvc, log)

	loginLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", metrics.MetricsHandler)

	r.Route("/api", func(api chi.Router) {
		api.With(RateLimitMiddleware(loginLimiter)).Post("/auth/login", authHandler.Login)

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)

			secure.Route("/admin", func(admin chi.Router) {
				admin.Use(authHandler.RequireRoles(auth.RoleAdmin))
				mountQuizRoutes(admin, quizHandler)
			})

			secure.Route("/teacher/courses/{courseId}", func(teacher chi.Router) {
				teacher.Use(authHandler.RequireRoles(auth.RoleTeacher, auth.RoleAdmin))
				mountQuizRoutes(teacher, quizHandler)
			})
		})
	})

	return r
}

// mountQuizRoutes registers the quiz subtree. The scope comes from whether
// the mount point carries {courseId}.
func mountQuizRoutes(r chi.Router, h *quiz.Handler) {
	r.Route("/quiz", func(q chi.Router) {
		q.Get("/", h.ListQuizzes)
		q.Post("/", h.CreateQuiz)

		q.Post("/assets", h.AddAsset)
		q.Put("/assets/{assetId}", h.UpdateAsset)
		q.Delete("/assets/{assetId}", h.DeleteAsset)

		q.Put("/groups/{groupId}", h.UpdateGroup)
		q.Delete("/groups/{groupId}", h.DeleteGroup)
		q.Post("/groups/{groupId}/questions", h.AddQuestion)

		q.Put("/questions/{questionId}", h.UpdateQuestion)
		q.Delete("/questions/{questionId}", h.DeleteQuestion)
		q.Post("/questions/{questionId}/options", h.AddOption)

		q.Put("/options/{optionId}", h.UpdateOption)
		q.Delete("/options/{optionId}", h.DeleteOption)

		q.Get("/{quizId}", h.GetQuiz)
		q.Put("/{quizId}", h.UpdateQuiz)
		q.Delete("/{quizId}", h.DeleteQuiz)
		q.Post("/{quizId}/import", h.ImportQuiz)
		q.Get("/{quizId}/export", h.ExportQuiz)
		q.Post("/{quizId}/groups", h.AddGroup)
	})
}

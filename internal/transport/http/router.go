package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"locus-quiz-service/internal/app"
)

// RouterConfig wires the services behind the HTTP API.
type RouterConfig struct {
	Quizzes        *app.QuizService
	Live           *app.LiveService
	Analytics      *app.AnalyticsService
	Convert        *app.ConvertService
	Auth           *Authenticator
	AllowedOrigins []string
	// Health reports backend readiness; nil means always healthy.
	Health func(r *http.Request) error
}

// NewRouter builds the REST and websocket routes.
func NewRouter(cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	quizzes := &quizHandler{quizzes: cfg.Quizzes, analytics: cfg.Analytics, convert: cfg.Convert}
	live := &liveHandler{live: cfg.Live}

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Optional)
			r.Get("/quizzes", quizzes.list)
			r.Get("/quizzes/{id}", quizzes.get)
			r.Get("/live/{id}/leaderboard", live.leaderboard)
		})
		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Required)
			r.Post("/quizzes", quizzes.create)
			r.Post("/quizzes/import", quizzes.importQuiz)
			r.Post("/quizzes/convert", quizzes.convertText)
			r.Get("/quizzes/mine", quizzes.mine)
			r.Put("/quizzes/{id}", quizzes.update)
			r.Delete("/quizzes/{id}", quizzes.remove)
			r.Post("/quizzes/{id}/publish", quizzes.publish)
			r.Post("/quizzes/{id}/attempts", quizzes.attempt)
			r.Get("/quizzes/{id}/analytics", quizzes.quizAnalytics)
			r.Get("/dashboard", quizzes.dashboard)

			r.Post("/live/{id}/register", live.register)
			r.Post("/live/{id}/start", live.start)
			r.Post("/live/{id}/stop", live.stop)
			r.Post("/live/{id}/answers", live.answer)
		})
	})

	router.Get("/ws", NewWSHandler(cfg.Live, cfg.Auth).ServeWS)
	return router
}

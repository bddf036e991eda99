package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// NewRouter собирает роутер целиком. RealIP сюда не ставим: httprate считает
// лимит по RemoteAddr, а X-Forwarded-For клиент подделывает как угодно.
func NewRouter(h *ConsultHandler, log *logger.ZapLogger, ratePerMinute int, debug bool) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}))
	if debug {
		r.Use(middleware.Logger)
	}

	RegisterRoutes(r, h, log, ratePerMinute)
	return r
}

func RegisterRoutes(
	r chi.Router,
	h *ConsultHandler,
	log *logger.ZapLogger,
	ratePerMinute int,
) {
	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Get("/", LandingPage)

	r.Group(func(pr chi.Router) {
		pr.Use(
			RequestID,
			RecoverJSON(log),
		)
		if ratePerMinute > 0 {
			pr.Use(httprate.Limit(
				ratePerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "Demasiadas solicitudes, intenta más tarde", nil)
				}),
			))
		}

		pr.Post("/consultar", h.Consult)
	})
}

package delivery

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/google/uuid"
)

type ctxKey struct{}

const requestIDHeader = "X-Request-ID"

// RequestID берёт id из заголовка клиента или генерирует новый.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RecoverJSON ловит панику хендлера: клиенту 500 без деталей, в лог всё.
func RecoverJSON(log *logger.ZapLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Log(logger.LogEntry{
					Level:   "error",
					Message: fmt.Sprintf("panic %s %s [%s]: %v\n%s", r.Method, r.URL.Path, RequestIDFrom(r.Context()), rec, debug.Stack()),
					Service: "delivery",
				})
				writeError(w, http.StatusInternalServerError, "Error interno del servidor", nil)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Vovarama1992/asistente_imss/internal/consult"
	"github.com/Vovarama1992/asistente_imss/internal/relay"
	"github.com/Vovarama1992/go-utils/logger"
	json "github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// ошибки разбора запроса, текст уходит клиенту как есть
type requestError string

func (e requestError) Error() string { return string(e) }

const (
	errContentType = requestError("Content-Type debe ser application/json o text/plain")
	errReadBody    = requestError("No se pudo leer el cuerpo de la solicitud")
	errEncoding    = requestError("El mensaje debe estar codificado en UTF-8")
)

type Consulter interface {
	Consult(ctx context.Context, message string) (*consult.Result, error)
}

type Notifier interface {
	NotifyAsync(err error, details string) <-chan struct{}
}

type ConsultHandler struct {
	consult  Consulter
	notifier Notifier
	log      *logger.ZapLogger
}

func NewConsultHandler(c Consulter, notifier Notifier, log *logger.ZapLogger) *ConsultHandler {
	return &ConsultHandler{
		consult:  c,
		notifier: notifier,
		log:      log,
	}
}

func (h *ConsultHandler) Consult(w http.ResponseWriter, r *http.Request) {
	message, err := readMessage(w, r)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "bad request " + RequestIDFrom(r.Context()), Service: "delivery", Error: err})
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res, err := h.consult.Consult(r.Context(), message)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *ConsultHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *consult.ValidationError
	if errors.As(err, &vErr) {
		var extra map[string]any
		if vErr.Length > 0 {
			extra = map[string]any{"longitud_actual": vErr.Length}
		}
		h.log.Log(logger.LogEntry{Level: "warn", Message: "validation failed " + RequestIDFrom(r.Context()), Service: "delivery", Error: err})
		writeError(w, http.StatusBadRequest, vErr.Message, extra)
		return
	}

	status, msg := statusFor(err)
	h.log.Log(logger.LogEntry{
		Level:   "error",
		Message: fmt.Sprintf("consult failed %s: %d", RequestIDFrom(r.Context()), status),
		Service: "delivery",
		Error:   err,
	})
	if h.notifier != nil {
		h.notifier.NotifyAsync(err, fmt.Sprintf("%s %s -> %d (request %s)", r.Method, r.URL.Path, status, RequestIDFrom(r.Context())))
	}
	writeError(w, status, msg, nil)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, relay.ErrTimeout):
		return http.StatusGatewayTimeout, "El servicio tardó demasiado en responder"
	case errors.Is(err, relay.ErrInvalidJSON):
		return http.StatusBadGateway, "Respuesta inválida del servicio"
	case errors.Is(err, relay.ErrUnavailable):
		return http.StatusBadGateway, "Error de conexión con servicios externos"
	case errors.Is(err, relay.ErrBadStatus), errors.Is(err, relay.ErrEmptyAnswer):
		return http.StatusBadGateway, "Error procesando la respuesta"
	default:
		return http.StatusInternalServerError, "Error interno del servidor"
	}
}

// application/json -> поле "mensaje", text/plain -> всё тело
func readMessage(w http.ResponseWriter, r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	mediaType = strings.ToLower(mediaType)

	if mediaType != "application/json" && mediaType != "text/plain" {
		return "", errContentType
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", errReadBody
	}
	if !utf8.Valid(body) {
		return "", errEncoding
	}

	if mediaType == "text/plain" {
		return string(body), nil
	}

	// битый JSON считаем пустым сообщением
	var req struct {
		Mensaje string `json:"mensaje"`
	}
	_ = json.Unmarshal(body, &req)
	return req.Mensaje, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := map[string]any{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

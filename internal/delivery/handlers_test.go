package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vovarama1992/asistente_imss/internal/consult"
	"github.com/Vovarama1992/asistente_imss/internal/relay"
	"github.com/Vovarama1992/asistente_imss/internal/speech"
	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTTS struct {
	err error
}

func (f fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3"), nil
}

type recordingNotifier struct {
	errs []error
}

func (n *recordingNotifier) NotifyAsync(err error, details string) <-chan struct{} {
	n.errs = append(n.errs, err)
	done := make(chan struct{})
	close(done)
	return done
}

type panicConsulter struct{}

func (panicConsulter) Consult(context.Context, string) (*consult.Result, error) {
	panic("unexpected nil")
}

type env struct {
	router   chi.Router
	notifier *recordingNotifier
}

func newEnv(t *testing.T, webhook http.HandlerFunc, tts speech.TTSClient, timeout time.Duration) *env {
	t.Helper()

	srv := httptest.NewServer(webhook)
	t.Cleanup(srv.Close)

	return newEnvWithURL(srv.URL, tts, timeout)
}

func newEnvWithURL(webhookURL string, tts speech.TTSClient, timeout time.Duration) *env {
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	svc := consult.NewService(
		relay.NewN8NClient(webhookURL, timeout),
		speech.NewService(tts, time.Second, zl),
		nil,
		500,
		zl,
	)

	n := &recordingNotifier{}
	r := chi.NewRouter()
	RegisterRoutes(r, NewConsultHandler(svc, n, zl), zl, 0)
	return &env{router: r, notifier: n}
}

func answering(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (e *env) post(contentType, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/consultar", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestConsult_Success(t *testing.T) {
	e := newEnv(t, answering(`{"respuesta": "Hola, ¿en qué puedo ayudarte?"}`), fakeTTS{}, time.Second)

	rec, out := e.post("application/json", `{"mensaje": "hola"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	assert.Equal(t, "Hola, ¿en qué puedo ayudarte?", out["texto"])
	assert.Equal(t, "bXAz", out["audio"])

	meta := out["metadata"].(map[string]any)
	assert.EqualValues(t, 29, meta["longitud_texto"])
	assert.Equal(t, true, meta["audio_generado"])
	assert.Equal(t, "n8n", meta["origen"])
	assert.NotContains(t, meta, "audio_url")
}

func TestConsult_TextPlainAndCharset(t *testing.T) {
	var got string
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		var p struct {
			Mensaje string `json:"mensaje"`
		}
		_ = json.NewDecoder(r.Body).Decode(&p)
		got = p.Mensaje
		_, _ = w.Write([]byte(`{"texto": "ok"}`))
	}, fakeTTS{}, time.Second)

	rec, out := e.post("text/plain", "  ¿Cómo tramito mi NSS?\n")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "¿Cómo tramito mi NSS?", got)
	assert.Equal(t, "ok", out["texto"])

	rec, _ = e.post("Application/JSON; charset=utf-8", `{"mensaje": "hola"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConsult_BadRequests(t *testing.T) {
	e := newEnv(t, answering(`{"respuesta": "x"}`), fakeTTS{}, time.Second)

	cases := []struct {
		name        string
		contentType string
		body        string
		wantError   string
	}{
		{"form content type", "application/x-www-form-urlencoded", "mensaje=hola", "Content-Type debe ser application/json o text/plain"},
		{"no content type", "", `{"mensaje": "hola"}`, "Content-Type debe ser application/json o text/plain"},
		{"empty json", "application/json", `{"mensaje": ""}`, "El mensaje no puede estar vacío"},
		{"whitespace json", "application/json", `{"mensaje": "  \n\t "}`, "El mensaje no puede estar vacío"},
		{"missing field", "application/json", `{}`, "El mensaje no puede estar vacío"},
		{"broken json", "application/json", `{"mensaje": `, "El mensaje no puede estar vacío"},
		{"non string", "application/json", `{"mensaje": 12}`, "El mensaje no puede estar vacío"},
		{"empty text", "text/plain", "   ", "El mensaje no puede estar vacío"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := e.post(tc.contentType, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.wantError, out["error"])
			assert.NotContains(t, out, "longitud_actual")
		})
	}
	assert.Empty(t, e.notifier.errs)
}

func TestConsult_TooLong(t *testing.T) {
	e := newEnv(t, answering(`{"respuesta": "x"}`), fakeTTS{}, time.Second)

	rec, out := e.post("text/plain", strings.Repeat("á", 501))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "El mensaje excede el límite de 500 caracteres", out["error"])
	assert.EqualValues(t, 501, out["longitud_actual"])
}

func TestConsult_UpstreamFailures(t *testing.T) {
	cases := []struct {
		name      string
		webhook   http.HandlerFunc
		timeout   time.Duration
		wantCode  int
		wantError string
	}{
		{
			name: "timeout",
			webhook: func(w http.ResponseWriter, r *http.Request) {
				// без чтения тела сервер не заметит, что клиент отвалился
				_, _ = io.ReadAll(r.Body)
				<-r.Context().Done()
			},
			timeout:   50 * time.Millisecond,
			wantCode:  http.StatusGatewayTimeout,
			wantError: "El servicio tardó demasiado en responder",
		},
		{
			name:      "invalid json",
			webhook:   answering(`no soy json`),
			wantCode:  http.StatusBadGateway,
			wantError: "Respuesta inválida del servicio",
		},
		{
			name:      "empty answer",
			webhook:   answering(`{"respuesta": ""}`),
			wantCode:  http.StatusBadGateway,
			wantError: "Error procesando la respuesta",
		},
		{
			name: "upstream 500",
			webhook: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "workflow crashed", http.StatusInternalServerError)
			},
			wantCode:  http.StatusBadGateway,
			wantError: "Error procesando la respuesta",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			timeout := tc.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			e := newEnv(t, tc.webhook, fakeTTS{}, timeout)

			rec, out := e.post("application/json", `{"mensaje": "hola"}`)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, map[string]any{"error": tc.wantError}, out)
			assert.Len(t, e.notifier.errs, 1)
		})
	}
}

func TestConsult_WebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := newEnvWithURL(url, fakeTTS{}, time.Second)

	rec, out := e.post("application/json", `{"mensaje": "hola"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, map[string]any{"error": "Error de conexión con servicios externos"}, out)
	assert.Len(t, e.notifier.errs, 1)
}

func TestConsult_RejectsInvalidUTF8(t *testing.T) {
	called := false
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte(`{"respuesta": "x"}`))
	}, fakeTTS{}, time.Second)

	for _, tc := range []struct{ contentType, body string }{
		{"text/plain", "hola \xff\xfe"},
		{"application/json", "{\"mensaje\": \"hola \xff\"}"},
	} {
		rec, out := e.post(tc.contentType, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.contentType)
		assert.Equal(t, "El mensaje debe estar codificado en UTF-8", out["error"], tc.contentType)
	}
	assert.False(t, called)
}

func TestConsult_AudioFailureStillAnswers(t *testing.T) {
	e := newEnv(t, answering(`{"texto": "Acude a tu UMF."}`), fakeTTS{err: errors.New("429 from google")}, time.Second)

	rec, out := e.post("application/json", `{"mensaje": "hola"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Acude a tu UMF.", out["texto"])
	assert.Contains(t, out, "audio")
	assert.Nil(t, out["audio"])
	meta := out["metadata"].(map[string]any)
	assert.Equal(t, false, meta["audio_generado"])
	assert.EqualValues(t, 15, meta["longitud_texto"])
}

func TestConsult_PanicBecomes500(t *testing.T) {
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	r := chi.NewRouter()
	RegisterRoutes(r, NewConsultHandler(panicConsulter{}, nil, zl), zl, 0)

	req := httptest.NewRequest(http.MethodPost, "/consultar", strings.NewReader("hola"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Error interno del servidor"}`, rec.Body.String())
}

func TestStatusFor_Unknown(t *testing.T) {
	code, msg := statusFor(errors.New("something else"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Error interno del servidor", msg)
}

func TestRateLimit(t *testing.T) {
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	r := chi.NewRouter()
	RegisterRoutes(r, NewConsultHandler(panicConsulter{}, nil, zl), zl, 1)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/consultar", strings.NewReader("<mensaje/>"))
		req.Header.Set("Content-Type", "application/xml")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Demasiadas solicitudes")
}

func TestNewRouter_RateLimitIgnoresForwardedFor(t *testing.T) {
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	r := NewRouter(NewConsultHandler(panicConsulter{}, nil, zl), zl, 1, false)

	var codes []int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/consultar", strings.NewReader("<mensaje/>"))
		req.Header.Set("Content-Type", "application/xml")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{400, 429, 429, 429, 429}, codes)
}

func TestNewRouter_CORS(t *testing.T) {
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	r := NewRouter(NewConsultHandler(panicConsulter{}, nil, zl), zl, 0, false)

	req := httptest.NewRequest(http.MethodOptions, "/consultar", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPingAndLanding(t *testing.T) {
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	r := chi.NewRouter()
	RegisterRoutes(r, NewConsultHandler(panicConsulter{}, nil, zl), zl, 0)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/consultar")
}

func TestRequestID_KeepsValidClientID(t *testing.T) {
	id := "3f2b8c1e-7d4a-4e2b-9a6f-1c0d5e8b7a90"
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, id, seen)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", seen)
}

package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	Origin    = "asistente-imss-web"
	Version   = "1.0"
	UserAgent = "AsistenteIMSS/1.0"
)

type N8NClient struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewN8NClient(url string, timeout time.Duration) *N8NClient {
	return &N8NClient{
		url:     url,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type payloadMetadata struct {
	Origen        string `json:"origen"`
	Version       string `json:"version"`
	RequiereAudio bool   `json:"requiere_audio"`
}

type payload struct {
	Mensaje  string          `json:"mensaje"`
	Metadata payloadMetadata `json:"metadata"`
}

func (c *N8NClient) Ask(ctx context.Context, message string) (string, error) {
	b, err := json.Marshal(payload{
		Mensaje: message,
		Metadata: payloadMetadata{
			Origen:        Origin,
			Version:       Version,
			RequiereAudio: true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s: %s", ErrBadStatus, resp.Status, snippet(body))
	}

	return extractAnswer(body)
}

// ответ лежит в "respuesta" или, в старых воркфлоу, в "texto"
func extractAnswer(body []byte) (string, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidJSON, snippet(body))
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: body is not an object", ErrEmptyAnswer)
	}

	for _, key := range []string{"respuesta", "texto"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", ErrEmptyAnswer
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	r := []rune(s)
	if len(r) > 200 {
		return string(r[:200])
	}
	return s
}

package relay

import (
	"context"
	"errors"
)

// Client пересылает сообщение пользователя во внешний webhook и возвращает текст ответа.
type Client interface {
	Ask(ctx context.Context, message string) (string, error)
}

var (
	ErrTimeout     = errors.New("webhook timeout")
	ErrUnavailable = errors.New("webhook unavailable")
	ErrBadStatus   = errors.New("webhook bad status")
	ErrInvalidJSON = errors.New("webhook returned invalid json")
	ErrEmptyAnswer = errors.New("webhook returned empty answer")
)

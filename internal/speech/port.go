package speech

import "context"

// TTSClient возвращает синтезированную речь (mp3) целиком в памяти.
type TTSClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

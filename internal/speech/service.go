package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/dustin/go-humanize"
)

type Service struct {
	tts     TTSClient
	timeout time.Duration
	log     *logger.ZapLogger
}

func NewService(tts TTSClient, timeout time.Duration, log *logger.ZapLogger) *Service {
	return &Service{
		tts:     tts,
		timeout: timeout,
		log:     log,
	}
}

// SynthesizeBase64 никогда не валит запрос: при любой ошибке отдаёт nil,
// и пользователь получает хотя бы текст.
func (s *Service) SynthesizeBase64(ctx context.Context, text string) ([]byte, *string) {
	if text == "" {
		return nil, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	audio, err := s.synthesize(ctx, text)
	if err != nil {
		s.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "audio generation failed",
			Service: "speech",
			Error:   err,
		})
		return nil, nil
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("audio ready: %s in %.2fs", humanize.Bytes(uint64(len(audio))), time.Since(start).Seconds()),
		Service: "speech",
	})

	encoded := base64.StdEncoding.EncodeToString(audio)
	return audio, &encoded
}

// провайдеры иногда паникуют на кривых ответах, это тоже просто "нет аудио"
func (s *Service) synthesize(ctx context.Context, text string) (audio []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tts panic: %v", r)
		}
	}()

	audio, err = s.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts returned empty audio")
	}
	return audio, nil
}

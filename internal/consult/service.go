package consult

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/Vovarama1992/go-utils/logger"
)

type Service struct {
	relay     Relay
	speech    Speech
	archive   Archiver
	maxLength int
	log       *logger.ZapLogger
}

// archive может быть nil: аудио тогда просто не сохраняется.
func NewService(relay Relay, speech Speech, archive Archiver, maxLength int, log *logger.ZapLogger) *Service {
	return &Service{
		relay:     relay,
		speech:    speech,
		archive:   archive,
		maxLength: maxLength,
		log:       log,
	}
}

func (s *Service) Consult(ctx context.Context, message string) (*Result, error) {
	msg, err := Validate(message, s.maxLength)
	if err != nil {
		return nil, err
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("consulta recibida: %s...", preview(msg, 100)),
		Service: "consult",
	})

	answer, err := s.relay.Ask(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}

	audio, encoded := s.speech.SynthesizeBase64(ctx, answer)

	res := &Result{
		Texto: answer,
		Audio: encoded,
		Metadata: Metadata{
			LongitudTexto: utf8.RuneCountInString(answer),
			AudioGenerado: encoded != nil,
			Origen:        ResponseOrigin,
		},
	}

	if audio != nil && s.archive != nil {
		url, err := s.archive.SaveAudio(ctx, audio)
		if err != nil {
			s.log.Log(logger.LogEntry{Level: "warn", Message: "audio archive failed", Service: "consult", Error: err})
		} else {
			res.Metadata.AudioURL = url
		}
	}

	return res, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

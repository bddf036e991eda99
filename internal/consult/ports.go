package consult

import "context"

type Relay interface {
	Ask(ctx context.Context, message string) (string, error)
}

type Speech interface {
	SynthesizeBase64(ctx context.Context, text string) (audio []byte, encoded *string)
}

type Archiver interface {
	SaveAudio(ctx context.Context, audio []byte) (string, error)
}

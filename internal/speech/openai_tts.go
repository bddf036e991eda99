package speech

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAITTS struct {
	client *openai.Client
	voice  openai.SpeechVoice
}

func NewOpenAITTS(apiKey, voice string) *OpenAITTS {
	return &OpenAITTS{
		client: openai.NewClient(apiKey),
		voice:  openai.SpeechVoice(voice),
	}
}

func NewOpenAITTSWithConfig(cfg openai.ClientConfig, voice string) *OpenAITTS {
	return &OpenAITTS{
		client: openai.NewClientWithConfig(cfg),
		voice:  openai.SpeechVoice(voice),
	}
}

func (t *OpenAITTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := t.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          t.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	return io.ReadAll(resp)
}

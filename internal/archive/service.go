package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
)

type Service struct {
	client S3Client
	now    func() time.Time
}

func NewService(client S3Client) *Service {
	return &Service{client: client, now: time.Now}
}

// ObjectKey путь в бакете: consultas/<дата>/<xid>.mp3
func (s *Service) ObjectKey() string {
	return fmt.Sprintf("consultas/%s/%s.mp3", s.now().Format("2006-01-02"), xid.New().String())
}

func (s *Service) SaveAudio(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}
	return s.client.PutObject(ctx, s.ObjectKey(), bytes.NewReader(audio), int64(len(audio)), "audio/mpeg")
}

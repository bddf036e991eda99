package notificator

import (
	"context"
	"log"
	"time"
)

type Service struct {
	infra   Notificator
	timeout time.Duration
}

func NewService(infra Notificator) *Service {
	return &Service{infra: infra, timeout: 10 * time.Second}
}

// NotifyAsync не держит HTTP-ответ: уведомление уходит в фоне со своим таймаутом.
func (s *Service) NotifyAsync(err error, details string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if nErr := s.infra.Notify(ctx, err, details); nErr != nil {
			log.Printf("[notificator] notify failed: %v", nErr)
		}
	}()
	return done
}

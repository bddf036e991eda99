package notificator

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramInfra struct {
	bot     sender
	service string
	admins  []int64
}

func NewTelegramInfra(token, service string, admins []int64) (*TelegramInfra, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramInfra{bot: bot, service: service, admins: admins}, nil
}

func (i *TelegramInfra) Notify(ctx context.Context, err error, details string) error {
	text := fmt.Sprintf(
		"❗ Ошибка в сервисе (%s)\n\nОшибка: %v\n\nДетали: %s",
		i.service,
		err,
		details,
	)

	for _, chatID := range i.admins {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, sendErr := i.bot.Send(tgbotapi.NewMessage(chatID, text)); sendErr != nil {
			log.Printf("[notificator] send fail to %d: %v", chatID, sendErr)
			return sendErr
		}
	}

	return nil
}

// NopInfra когда TELEGRAM_BOT_TOKEN не задан
type NopInfra struct{}

func (NopInfra) Notify(context.Context, error, string) error { return nil }

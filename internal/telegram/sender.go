package telegram

import (
	"context"

	"github.com/PaulSonOfLars/gotgbot/v2"
)

// BotSender delivers worker replies through the bot API.
type BotSender struct {
	Bot *gotgbot.Bot
}

func (s BotSender) SendText(ctx context.Context, chatID int64, text string, replyTo int64) error {
	opts := &gotgbot.SendMessageOpts{}
	if replyTo > 0 {
		opts.ReplyParameters = &gotgbot.ReplyParameters{MessageId: replyTo, AllowSendingWithoutReply: true}
	}
	_, err := s.Bot.SendMessageWithContext(ctx, chatID, text, opts)
	return err
}

package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
)

type CommandUpdate struct {
	ChatID  int64
	User    model.User
	Command string
	Args    string
}

// MessageUpdate is any non-command message. DocumentFileID and PhotoFileID
// are empty unless the message carries that kind of file; for photos the
// largest size is kept.
type MessageUpdate struct {
	ChatID         int64
	MessageID      int
	User           model.User
	Text           string
	DocumentFileID string
	PhotoFileID    string
}

type CallbackUpdate struct {
	CallbackID string
	ChatID     int64
	MessageID  int
	User       model.User
	Data       string
}

type Handlers struct {
	OnCommand  func(context.Context, CommandUpdate) error
	OnMessage  func(context.Context, MessageUpdate) error
	OnCallback func(context.Context, CallbackUpdate) error
}

func userFrom(from *tgbotapi.User) model.User {
	if from == nil {
		return model.User{}
	}
	return model.User{
		ID:        from.ID,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
	}
}

// route converts one raw update and calls the matching handler.
func route(ctx context.Context, update tgbotapi.Update, handlers Handlers) error {
	if message := update.Message; message != nil && message.From != nil {
		if message.IsCommand() {
			if handlers.OnCommand == nil {
				return nil
			}
			return handlers.OnCommand(ctx, CommandUpdate{
				ChatID:  message.Chat.ID,
				User:    userFrom(message.From),
				Command: message.Command(),
				Args:    message.CommandArguments(),
			})
		}

		if handlers.OnMessage == nil {
			return nil
		}
		msg := MessageUpdate{
			ChatID:    message.Chat.ID,
			MessageID: message.MessageID,
			User:      userFrom(message.From),
			Text:      message.Text,
		}
		if message.Document != nil {
			msg.DocumentFileID = message.Document.FileID
		}
		if len(message.Photo) > 0 {
			msg.PhotoFileID = message.Photo[len(message.Photo)-1].FileID
		}
		return handlers.OnMessage(ctx, msg)
	}

	if query := update.CallbackQuery; query != nil && query.From != nil && handlers.OnCallback != nil {
		callback := CallbackUpdate{
			CallbackID: query.ID,
			User:       userFrom(query.From),
			Data:       query.Data,
		}
		if query.Message != nil {
			callback.ChatID = query.Message.Chat.ID
			callback.MessageID = query.Message.MessageID
		}
		return handlers.OnCallback(ctx, callback)
	}

	return nil
}

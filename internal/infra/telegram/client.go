package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flor-ldlse/feedback-bot/internal/errs"
)

const defaultMaxInFlight = 64

// Client is the messaging gateway. With an empty token it runs dry: calls
// are logged and reported as delivered.
type Client struct {
	api         *tgbotapi.BotAPI
	logger      *zap.Logger
	pollTimeout int
	maxInFlight int
	dryRun      bool
}

func NewClient(token string, pollTimeout, maxInFlight int, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}

	client := &Client{
		logger:      logger,
		pollTimeout: pollTimeout,
		maxInFlight: maxInFlight,
	}

	if strings.TrimSpace(token) == "" {
		client.dryRun = true
		return client, nil
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}
	client.api = api
	return client, nil
}

// Listen polls updates until ctx is done. Every update runs on its own
// goroutine, at most maxInFlight at a time; handler errors and panics are
// logged and never stop the loop.
func (c *Client) Listen(ctx context.Context, handlers Handlers) error {
	if c.dryRun {
		c.logger.Warn("BOT_TOKEN is empty, running in dry mode")
		<-ctx.Done()
		return nil
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(updateConfig)

	group := new(errgroup.Group)
	group.SetLimit(c.maxInFlight)
	defer func() {
		_ = group.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			group.Go(func() error {
				c.dispatch(ctx, update, handlers)
				return nil
			})
		}
	}
}

func (c *Client) dispatch(ctx context.Context, update tgbotapi.Update, handlers Handlers) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("update handler panicked",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", recovered),
			)
		}
	}()

	if err := route(ctx, update, handlers); err != nil {
		c.logger.Warn("handle update", zap.Error(err), zap.Int("update_id", update.UpdateID))
	}
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, keyboard [][]InlineButton) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(keyboard) > 0 {
		msg.ReplyMarkup = BuildInlineKeyboard(keyboard)
	}
	return c.send(ctx, "send message", chatID, msg)
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	return c.send(ctx, "send document", chatID, doc)
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	return c.send(ctx, "send photo", chatID, photo)
}

func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, keyboard [][]InlineButton) error {
	if messageID == 0 {
		return c.SendText(ctx, chatID, text, keyboard)
	}
	var edit tgbotapi.EditMessageTextConfig
	if len(keyboard) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, BuildInlineKeyboard(keyboard))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	return c.send(ctx, "edit message", chatID, edit)
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}
	if c.dryRun {
		c.logger.Debug("dry run: answer callback", zap.String("callback_id", callbackID))
		return nil
	}
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("%w: answer callback query: %v", errs.ErrDelivery, err)
	}
	_ = ctx
	return nil
}

func (c *Client) send(ctx context.Context, op string, chatID int64, msg tgbotapi.Chattable) error {
	if chatID == 0 {
		return fmt.Errorf("%w: %s: chat id is required", errs.ErrDelivery, op)
	}
	if c.dryRun {
		c.logger.Debug("dry run: "+op, zap.Int64("chat_id", chatID))
		return nil
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrDelivery, op, err)
	}
	_ = ctx
	return nil
}

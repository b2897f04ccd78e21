// Package telegram sends campaign messages through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot"

	"herald/internal/core/port"
)

// Options configure the transport.
type Options struct {
	// APIURL overrides the Bot API server, e.g. a local bot-api instance.
	// Empty means api.telegram.org.
	APIURL string
}

// Transport is the outbound message channel backed by go-telegram/bot. One
// client is kept per bot token; clients are created lazily because bots are
// registered at runtime.
type Transport struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	clients map[string]*bot.Bot
}

func New(opts Options, log *slog.Logger) *Transport {
	return &Transport{
		opts:    opts,
		log:     log,
		clients: make(map[string]*bot.Bot),
	}
}

func (t *Transport) client(token string) (*bot.Bot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.clients[token]; ok {
		return b, nil
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if t.opts.APIURL != "" {
		opts = append(opts, bot.WithServerURL(t.opts.APIURL))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	t.clients[token] = b
	t.log.Debug("telegram client created", slog.Int("clients", len(t.clients)))
	return b, nil
}

// Send delivers one message to the recipient, classifying Bot API failures
// into permanent and retryable ones for the dispatcher.
func (t *Transport) Send(ctx context.Context, token string, telegramID int64, message string) error {
	b, err := t.client(token)
	if err != nil {
		return port.RetryableSendError(err)
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: telegramID,
		Text:   message,
	})
	if err == nil {
		return nil
	}
	return classify(err)
}

// classify follows the Bot API semantics: a blocked bot, a dead chat or a
// bad token will never succeed on retry, while throttling and transport
// failures will.
func classify(err error) error {
	switch {
	case errors.Is(err, bot.ErrorForbidden),
		errors.Is(err, bot.ErrorBadRequest),
		errors.Is(err, bot.ErrorUnauthorized),
		errors.Is(err, bot.ErrorNotFound):
		return port.PermanentSendError(err)
	default:
		return port.RetryableSendError(err)
	}
}

// Package bot — транспорт Telegram: long polling, фильтрация, анти-флуд
// и передача апдейтов диалогу.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"fair-bot/internal/bot/filters"
	"fair-bot/internal/bot/middleware"
	"fair-bot/internal/config"
	"fair-bot/internal/dialog"
)

const defaultMaxInflight = 64

// Client — Bot API вместе с получением апдейтов.
type Client interface {
	API
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
}

// Dispatcher обрабатывает апдейт диалога.
type Dispatcher interface {
	Dispatch(ctx context.Context, u dialog.Update) error
}

// ThrottleObserver считает апдейты, отброшенные анти-флудом.
type ThrottleObserver interface {
	Throttled()
}

// Bot — главная структура транспорта.
type Bot struct {
	client     Client
	cfg        *config.Config
	converter  *Converter
	dispatcher Dispatcher
	replier    *Replier
	limiter    *middleware.RateLimiter
	obs        ThrottleObserver
	floodText  string

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота. floodText отправляется один раз при превышении лимита.
func New(
	client Client,
	cfg *config.Config,
	dispatcher Dispatcher,
	replier *Replier,
	obs ThrottleObserver,
	floodText string,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInflight
	}

	return &Bot{
		client:     client,
		cfg:        cfg,
		converter:  NewConverter(filters.NewChatFilter(), cfg.IsOwner),
		dispatcher: dispatcher,
		replier:    replier,
		limiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		obs:        obs,
		floodText:  floodText,
		inflight:   make(chan struct{}, maxInFlight),
	}
}

// Run получает апдейты до отмены ctx. Перед возвратом дожидается
// обработчиков, которые уже начали работу.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.client.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        b.cfg.BotUpdateTimeoutSeconds,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("запуск long polling: %w", err)
	}

	go b.limiter.Run(ctx)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	// начатые обработчики доводят транзакции до конца даже после остановки
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается, ждём активные обработчики...")
			b.wg.Wait()
			return nil

		case upd, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.wg.Wait()
				return nil
			}
			b.spawn(handlerCtx, upd)
		}
	}
}

func (b *Bot) spawn(ctx context.Context, upd telego.Update) {
	b.inflight <- struct{}{}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.inflight }()
		b.HandleUpdate(ctx, upd)
	}()
}

// HandleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) HandleUpdate(ctx context.Context, upd telego.Update) {
	u, ok := b.converter.Convert(upd)
	if !ok {
		return
	}
	defer middleware.Recover(u)

	middleware.LogUpdate(u)

	switch b.limiter.Allow(u.SubjectID) {
	case middleware.Throttled:
		b.throttled(u)
		b.warnFlood(ctx, u)
		return
	case middleware.Dropped:
		b.throttled(u)
		b.replier.AnswerCallback(ctx, u.CallbackID)
		return
	}

	start := time.Now()
	err := b.dispatcher.Dispatch(ctx, u)
	b.replier.AnswerCallback(ctx, u.CallbackID)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"trace":   u.TraceID,
			"subject": u.SubjectID,
			"elapsed": time.Since(start),
		}).Debug("Апдейт обработан с ошибкой")
	}
}

func (b *Bot) throttled(u dialog.Update) {
	log.WithField("subject", u.SubjectID).Debug("rate limited")
	if b.obs != nil {
		b.obs.Throttled()
	}
}

func (b *Bot) warnFlood(ctx context.Context, u dialog.Update) {
	b.replier.AnswerCallback(ctx, u.CallbackID)
	if b.floodText == "" {
		return
	}
	if err := b.replier.Send(ctx, dialog.Reply{ChatID: u.ChatID, Text: b.floodText}); err != nil {
		log.WithError(err).WithField("chat_id", u.ChatID).Warn("Не удалось предупредить о флуде")
	}
}

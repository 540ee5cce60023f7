// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: открывает хранилище, создаёт ledger, сценарии диалога,
// транспорт Telegram, служебный HTTP и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"fair-bot/internal/bot"
	"fair-bot/internal/config"
	"fair-bot/internal/db"
	"fair-bot/internal/db/postgres"
	"fair-bot/internal/db/sqlite"
	"fair-bot/internal/dialog"
	"fair-bot/internal/features/admin"
	"fair-bot/internal/features/flow"
	"fair-bot/internal/features/manager"
	"fair-bot/internal/features/player"
	"fair-bot/internal/features/registration"
	"fair-bot/internal/features/transfer"
	"fair-bot/internal/jobs"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/ledger"
	"fair-bot/internal/metrics"
	"fair-bot/internal/ops"
	"fair-bot/internal/texts"
)

// States — хранилище состояний, которое умеет и стирать subject при сбросе.
type States interface {
	dialog.StateStore
	admin.SubjectWiper
}

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Ops       *ops.Server // nil, если OPS_ADDR пуст
	DB        db.Driver
	Metrics   *metrics.Metrics
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Тексты ===
	tx, err := texts.Load(cfg.MessagesPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки текстов: %w", err)
	}

	// === 2. База данных ===
	drv, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 3. Telegram Bot API ===
	api, err := telego.NewBot(cfg.TelegramBotToken, telego.WithLogger(log.StandardLogger()))
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := api.GetMe(ctx)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	// === 4. Ledger, состояния, метрики ===
	m := metrics.New()
	store := db.NewStore(drv)
	l := ledger.New(store, m)

	states := NewStates(cfg, drv)

	// === 5. Диалог ===
	replier := bot.NewReplier(api, cfg.BotSendRate, cfg.BotSendBurst, m)
	machine, err := NewMachine(cfg, tx, l, states, replier, m)
	if err != nil {
		drv.Close()
		return nil, err
	}

	// === 6. Транспорт и фоновые задачи ===
	b := bot.New(api, cfg, machine, replier, m, tx.Messages.AntiFlood)
	scheduler := jobs.NewScheduler(cfg.Location(), states, l, cfg.StateTTL, m)

	var opsServer *ops.Server
	if cfg.OpsAddr != "" {
		opsServer = ops.NewServer(cfg.OpsAddr, ops.Router(l, m.Handler()))
	}

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Ops:       opsServer,
		DB:        drv,
		Metrics:   m,
	}, nil
}

// OpenDatabase подключается к СУБД из DB_DRIVER.
func OpenDatabase(ctx context.Context, cfg *config.Config) (db.Driver, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		drv, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		return drv, nil
	case config.DriverPostgres:
		drv, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		return drv, nil
	}
	return nil, fmt.Errorf("неизвестный DB_DRIVER %q", cfg.DBDriver)
}

// Migrate применяет схему своей СУБД.
func Migrate(ctx context.Context, drv db.Driver) error {
	if drv.Name() == config.DriverSQLite {
		return sqlite.Migrate(ctx, drv)
	}
	return postgres.Migrate(ctx, drv)
}

// NewStates выбирает хранилище состояний по STATE_STORAGE.
func NewStates(cfg *config.Config, drv db.Driver) States {
	if cfg.StateStorage == config.StateStorageMemory {
		log.Warn("Состояния диалога хранятся в памяти и потеряются при перезапуске")
		return dialog.NewMemoryStore(cfg.StateTTL)
	}
	return db.NewStateStore(drv)
}

// NewMachine собирает диспетчер со всеми сценариями.
// Порядок регистрации задаёт приоритет маршрутов.
func NewMachine(
	cfg *config.Config,
	tx *texts.Texts,
	l *ledger.Ledger,
	states States,
	replier dialog.Replier,
	obs dialog.Observer,
) (*dialog.Machine, error) {
	password, err := admin.NewService(cfg.ManagerPasswordHash)
	if err != nil {
		return nil, err
	}

	deps := &flow.Deps{
		Ledger:    l,
		Texts:     tx,
		Keyboards: keyboards.New(tx.Buttons),
		PageSize:  cfg.PageSize,
	}

	machine := dialog.NewMachine(states, replier, obs, tx.Messages.UnknownError)
	machine.Register(admin.NewHandler(deps, password, states).Routes()...)
	machine.Register(registration.NewHandler(deps, password).Routes()...)
	machine.Register(player.NewHandler(deps).Routes()...)
	machine.Register(transfer.NewHandler(deps).Routes()...)
	machine.Register(manager.NewHandler(deps).Routes()...)
	return machine, nil
}

// Run запускает бота, планировщик и служебный HTTP до отмены ctx
// или до первой ошибки любого из них.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Bot.Run(ctx) })
	g.Go(func() error { return a.Scheduler.Run(ctx) })
	if a.Ops != nil {
		g.Go(func() error { return a.Ops.Run(ctx) })
	}

	return g.Wait()
}

// Close освобождает подключение к БД.
func (a *App) Close() {
	a.DB.Close()
}

// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: очистка забытых состояний диалога
// и сверка флага активности локаций.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	purgeSpec   = "0 * * * *"
	refreshSpec = "*/10 * * * *"
)

// StatePurger удаляет состояния диалога, не менявшиеся с момента before.
type StatePurger interface {
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

// LocationRefresher пересчитывает is_active локаций.
type LocationRefresher interface {
	RefreshAllLocations(ctx context.Context) (int64, error)
}

// PurgeObserver считает удалённые состояния.
type PurgeObserver interface {
	StatesPurged(n int64)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	states    StatePurger
	locations LocationRefresher
	obs       PurgeObserver
	ttl       time.Duration
	now       func() time.Time
}

// NewScheduler создаёт планировщик в часовом поясе loc.
func NewScheduler(loc *time.Location, states StatePurger, locations LocationRefresher, ttl time.Duration, obs PurgeObserver) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		states:    states,
		locations: locations,
		obs:       obs,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	// Раз в час — забытые диалоги
	if _, err := s.cron.AddFunc(purgeSpec, func() { s.PurgeStates(ctx) }); err != nil {
		return fmt.Errorf("cron %q: %w", purgeSpec, err)
	}

	// Каждые 10 минут — сверка локаций
	if _, err := s.cron.AddFunc(refreshSpec, func() { s.RefreshLocations(ctx) }); err != nil {
		return fmt.Errorf("cron %q: %w", refreshSpec, err)
	}

	s.cron.Start()
	log.WithField("state_ttl", s.ttl).Info("Планировщик задач запущен")
	return nil
}

// Run запускает планировщик и останавливает его по отмене ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// PurgeStates удаляет состояния старше TTL.
func (s *Scheduler) PurgeStates(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	n, err := s.states.PurgeStale(ctx, s.now().Add(-s.ttl))
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки состояний диалога")
		return
	}
	if s.obs != nil {
		s.obs.StatesPurged(n)
	}
	if n > 0 {
		log.WithField("purged", n).Info("[CRON] Удалены забытые состояния диалога")
	}
}

// RefreshLocations сверяет is_active локаций.
func (s *Scheduler) RefreshLocations(ctx context.Context) {
	n, err := s.locations.RefreshAllLocations(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сверки локаций")
		return
	}
	if n > 0 {
		log.WithField("changed", n).Warn("[CRON] Флаг активности локаций исправлен")
	}
}

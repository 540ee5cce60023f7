package dialog

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Исходы обработки апдейта
const (
	OutcomeHandled = "handled"
	OutcomeIgnored = "ignored"
	OutcomeFailed  = "failed"
)

// Replier доставляет ответы в транспорт.
type Replier interface {
	Send(ctx context.Context, r Reply) error
}

// Observer получает исходы обработки (метрики). Может быть nil.
type Observer interface {
	UpdateHandled(shape, outcome string, elapsed time.Duration)
}

// Machine — диспетчер диалога.
//
// Порядок обработки: загрузить сессию → найти первый подходящий маршрут →
// выполнить обработчик → сохранить состояние → отправить ответы.
// Состояние сохраняется отдельно от транзакций ledger: при сбое между ними
// следующий апдейт просто продолжит с последнего сохранённого состояния.
type Machine struct {
	store     StateStore
	replier   Replier
	obs       Observer
	faultText string
	routes    []Route
}

// NewMachine создаёт диспетчер. faultText — ответ пользователю при сбое.
func NewMachine(store StateStore, replier Replier, obs Observer, faultText string) *Machine {
	return &Machine{
		store:     store,
		replier:   replier,
		obs:       obs,
		faultText: faultText,
	}
}

// Register добавляет маршруты в конец таблицы.
func (m *Machine) Register(routes ...Route) {
	for _, r := range routes {
		if r.Handle == nil {
			panic(fmt.Sprintf("маршрут %q без обработчика", r.Name))
		}
		m.routes = append(m.routes, r)
	}
}

// Dispatch обрабатывает один апдейт. Несовпавший апдейт молча игнорируется.
// Возвращённая ошибка уже залогирована и доведена до пользователя.
func (m *Machine) Dispatch(ctx context.Context, u Update) error {
	start := time.Now()
	logger := log.WithFields(log.Fields{
		"trace":   u.TraceID,
		"subject": u.SubjectID,
		"chat":    u.ChatID,
		"shape":   u.Shape.String(),
	})

	sess, _, err := m.store.Load(ctx, u.Key())
	if err != nil {
		logger.WithError(err).Error("Не удалось загрузить состояние диалога")
		m.fail(ctx, u, start)
		return err
	}

	call := newCall(u, sess)
	route, err := m.match(ctx, call)
	if err != nil {
		logger.WithError(err).Error("Ошибка проверки маршрута")
		m.fail(ctx, u, start)
		return err
	}
	if route == nil {
		logger.WithField("state", string(sess.State)).Debug("Апдейт не совпал ни с одним маршрутом")
		m.observe(u, OutcomeIgnored, start)
		return nil
	}

	logger = logger.WithFields(log.Fields{
		"route": route.Name,
		"state": string(sess.State),
	})
	if err := route.Handle(ctx, call); err != nil {
		logger.WithError(err).Error("Ошибка обработчика")
		m.fail(ctx, u, start)
		return err
	}

	if err := m.persist(ctx, u.Key(), sess, call); err != nil {
		logger.WithError(err).Error("Не удалось сохранить состояние диалога")
		m.fail(ctx, u, start)
		return err
	}

	if call.Next() != sess.State {
		logger.WithField("next", string(call.Next())).Debug("Переход состояния")
	}
	m.deliver(ctx, logger, call.Replies())
	m.observe(u, OutcomeHandled, start)
	return nil
}

func (m *Machine) match(ctx context.Context, c *Call) (*Route, error) {
	for i := range m.routes {
		r := &m.routes[i]
		if !r.matches(c) {
			continue
		}
		if r.Guard != nil {
			ok, err := r.Guard(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("guard %s: %w", r.Name, err)
			}
			if !ok {
				continue
			}
		}
		return r, nil
	}
	return nil, nil
}

func (m *Machine) persist(ctx context.Context, key Key, prev Session, c *Call) error {
	if c.cleared {
		return m.store.Delete(ctx, key)
	}
	// Неизменённую пустую сессию не создаём
	if !c.changed && prev.State == NoState {
		return nil
	}
	return m.store.Save(ctx, key, Session{
		State:     c.next,
		Payload:   c.payload,
		UpdatedAt: time.Now(),
	})
}

func (m *Machine) deliver(ctx context.Context, logger *log.Entry, replies []Reply) {
	for _, r := range replies {
		if err := m.replier.Send(ctx, r); err != nil {
			// Состояние уже сохранено, ответ не критичен
			logger.WithError(err).WithField("to", r.ChatID).Warn("Не удалось отправить ответ")
		}
	}
}

func (m *Machine) fail(ctx context.Context, u Update, start time.Time) {
	if m.faultText != "" {
		if err := m.replier.Send(ctx, Reply{ChatID: u.ChatID, Text: m.faultText}); err != nil {
			log.WithError(err).WithField("chat", u.ChatID).Warn("Не удалось отправить сообщение об ошибке")
		}
	}
	m.observe(u, OutcomeFailed, start)
}

func (m *Machine) observe(u Update, outcome string, start time.Time) {
	if m.obs != nil {
		m.obs.UpdateHandled(u.Shape.String(), outcome, time.Since(start))
	}
}

// Package featuretest — стенд для тестов сценариев: диспетчер диалога поверх
// SQLite, встроенные тексты и запись всех ответов вместо Telegram.
package featuretest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fair-bot/internal/db"
	"fair-bot/internal/db/dbtest"
	"fair-bot/internal/dialog"
	"fair-bot/internal/features/flow"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/ledger"
	"fair-bot/internal/texts"
)

// MessageID — id сообщения с кнопками у всех callback-апдейтов стенда.
const MessageID = 500

// Recorder запоминает отправленные ответы.
type Recorder struct {
	mu      sync.Mutex
	replies []dialog.Reply
}

func (r *Recorder) Send(_ context.Context, reply dialog.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
	return nil
}

// Take возвращает накопленные ответы и очищает запись.
func (r *Recorder) Take() []dialog.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.replies
	r.replies = nil
	return out
}

// Harness — собранный диспетчер со всеми зависимостями.
type Harness struct {
	t       testing.TB
	Ctx     context.Context
	Store   *db.Store
	Ledger  *ledger.Ledger
	Texts   *texts.Texts
	Deps    *flow.Deps
	States  *dialog.MemoryStore
	Sent    *Recorder
	Machine *dialog.Machine
	Owners  map[int64]bool

	nextSubject int64
}

// New собирает стенд с размером страницы pageSize. Маршруты добавляются Register.
func New(t testing.TB, pageSize int) *Harness {
	t.Helper()
	tx, err := texts.Default()
	require.NoError(t, err)

	store := dbtest.Store(t)
	l := ledger.New(store, nil)
	states := dialog.NewMemoryStore(time.Hour)
	rec := &Recorder{}

	return &Harness{
		t:      t,
		Ctx:    context.Background(),
		Store:  store,
		Ledger: l,
		Texts:  tx,
		Deps: &flow.Deps{
			Ledger:    l,
			Texts:     tx,
			Keyboards: keyboards.New(tx.Buttons),
			PageSize:  pageSize,
		},
		States:      states,
		Sent:        rec,
		Machine:     dialog.NewMachine(states, rec, nil, tx.Messages.UnknownError),
		Owners:      map[int64]bool{},
		nextSubject: 1000,
	}
}

// Register добавляет маршруты в диспетчер.
func (h *Harness) Register(routes ...dialog.Route) {
	h.Machine.Register(routes...)
}

// Subject выдаёт новый свободный subject_id.
func (h *Harness) Subject() int64 {
	h.nextSubject++
	return h.nextSubject
}

func (h *Harness) update(subject int64, shape dialog.Shape) dialog.Update {
	u := dialog.Update{
		SubjectID: subject,
		ChatID:    subject,
		Shape:     shape,
		Timestamp: time.Now(),
		TraceID:   "test",
	}
	if h.Owners[subject] {
		u.RoleHint = dialog.RoleOwner
	}
	return u
}

// Dispatch отправляет апдейт и возвращает ответы на него.
func (h *Harness) Dispatch(u dialog.Update) []dialog.Reply {
	h.t.Helper()
	_ = h.Machine.Dispatch(h.Ctx, u)
	return h.Sent.Take()
}

// Command — команда /name args.
func (h *Harness) Command(subject int64, name, args string) []dialog.Reply {
	u := h.update(subject, dialog.ShapeCommand)
	u.Command, u.Args = name, args
	return h.Dispatch(u)
}

// Text — текст или нажатие reply-кнопки.
func (h *Harness) Text(subject int64, text string) []dialog.Reply {
	u := h.update(subject, dialog.ShapeText)
	u.Text = text
	return h.Dispatch(u)
}

// Callback — нажатие inline-кнопки.
func (h *Harness) Callback(subject int64, data string) []dialog.Reply {
	u := h.update(subject, dialog.ShapeCallback)
	u.Callback = data
	u.CallbackID = "cb"
	u.MessageID = MessageID
	return h.Dispatch(u)
}

// State — сохранённое состояние subject в его личном чате.
func (h *Harness) State(subject int64) dialog.State {
	h.t.Helper()
	sess, _, err := h.States.Load(h.Ctx, dialog.Key{SubjectID: subject, ChatID: subject})
	require.NoError(h.t, err)
	return sess.State
}

// Payload — сохранённые временные данные subject.
func (h *Harness) Payload(subject int64) dialog.Payload {
	h.t.Helper()
	sess, _, err := h.States.Load(h.Ctx, dialog.Key{SubjectID: subject, ChatID: subject})
	require.NoError(h.t, err)
	return sess.Payload
}

// SetState кладёт состояние напрямую, минуя обработчики.
func (h *Harness) SetState(subject int64, state dialog.State, payload dialog.Payload) {
	h.t.Helper()
	require.NoError(h.t, h.States.Save(h.Ctx, dialog.Key{SubjectID: subject, ChatID: subject}, dialog.Session{
		State:     state,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}))
}

// Player регистрирует игрока с балансом и ставит его в главное меню.
func (h *Harness) Player(name string, balance int64) (int64, *ledger.Player) {
	h.t.Helper()
	subject := h.Subject()
	outcome, err := h.Ledger.RegisterPlayer(h.Ctx, ledger.NewUser{SubjectID: subject, ChatID: subject, Name: name})
	require.NoError(h.t, err)
	require.Equal(h.t, ledger.Registered, outcome)

	p, err := h.Ledger.PlayerBySubject(h.Ctx, subject)
	require.NoError(h.t, err)
	require.NotNil(h.t, p)
	if balance > 0 {
		ok, err := h.Store.AdjustBalance(h.Ctx, p.ID, balance)
		require.NoError(h.t, err)
		require.True(h.t, ok)
		p.Balance = balance
	}
	h.SetState(subject, dialog.PlayerMainMenu, nil)
	return subject, p
}

// Manager регистрирует менеджера и ставит его в главное меню.
func (h *Harness) Manager(name string) (int64, *ledger.Manager) {
	h.t.Helper()
	subject := h.Subject()
	outcome, err := h.Ledger.RegisterManager(h.Ctx, ledger.NewUser{SubjectID: subject, ChatID: subject, Name: name})
	require.NoError(h.t, err)
	require.Equal(h.t, ledger.Registered, outcome)

	m, err := h.Ledger.ManagerBySubject(h.Ctx, subject)
	require.NoError(h.t, err)
	require.NotNil(h.t, m)
	h.SetState(subject, dialog.ManagerMainMenu, nil)
	return subject, m
}

// Location создаёт локацию.
func (h *Harness) Location(name string, maxReward int64, onetime bool) *ledger.Location {
	h.t.Helper()
	ok, err := h.Ledger.AddLocation(h.Ctx, name, maxReward, onetime)
	require.NoError(h.t, err)
	require.True(h.t, ok)
	loc, err := h.Store.LocationByName(h.Ctx, name)
	require.NoError(h.t, err)
	require.NotNil(h.t, loc)
	return loc
}

// Station ставит менеджера на локацию.
func (h *Harness) Station(managerID, locationID int64) {
	h.t.Helper()
	ok, err := h.Ledger.SetManagerLocation(h.Ctx, managerID, &locationID)
	require.NoError(h.t, err)
	require.True(h.t, ok)
}

// Balance — текущий баланс игрока.
func (h *Harness) Balance(playerID int64) int64 {
	h.t.Helper()
	p, err := h.Store.PlayerByID(h.Ctx, playerID)
	require.NoError(h.t, err)
	require.NotNil(h.t, p)
	return p.Balance
}

// Rows — число строк в таблице.
func (h *Harness) Rows(table string) int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.Store.Driver().QueryRow(h.Ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// Texts собирает тексты ответов.
func Texts(replies []dialog.Reply) []string {
	out := make([]string, 0, len(replies))
	for _, r := range replies {
		out = append(out, r.Text)
	}
	return out
}

// Last — последний ответ (тест падает, если ответов нет).
func Last(t testing.TB, replies []dialog.Reply) dialog.Reply {
	t.Helper()
	require.NotEmpty(t, replies)
	return replies[len(replies)-1]
}

package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/pagination"
)

type recorder struct {
	mu      sync.Mutex
	replies []Reply
}

func (r *recorder) Send(_ context.Context, reply Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
	return nil
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.replies))
	for _, reply := range r.replies {
		out = append(out, reply.Text)
	}
	return out
}

func command(name string) Update {
	return Update{SubjectID: 1, ChatID: 10, Shape: ShapeCommand, Command: name}
}

func text(s string) Update {
	return Update{SubjectID: 1, ChatID: 10, Shape: ShapeText, Text: s}
}

func callback(data string) Update {
	return Update{SubjectID: 1, ChatID: 10, Shape: ShapeCallback, Callback: data, MessageID: 77}
}

func reply(text string) Handler {
	return func(_ context.Context, c *Call) error {
		c.Reply(text, nil)
		return nil
	}
}

func TestFirstMatchWins(t *testing.T) {
	rec := &recorder{}
	m := NewMachine(NewMemoryStore(0), rec, nil, "fault")
	m.Register(
		Route{Name: "first", Shape: ShapeCommand, Command: "start", Handle: reply("first")},
		Route{Name: "second", Shape: ShapeCommand, Command: "start", Handle: reply("second")},
	)

	require.NoError(t, m.Dispatch(context.Background(), command("start")))
	assert.Equal(t, []string{"first"}, rec.texts())
}

func TestUnmatchedIsSilent(t *testing.T) {
	rec := &recorder{}
	store := NewMemoryStore(0)
	m := NewMachine(store, rec, nil, "fault")
	m.Register(Route{Name: "menu", States: []State{PlayerMainMenu}, Shape: ShapeText, Text: "Баланс", Handle: reply("ok")})

	require.NoError(t, m.Dispatch(context.Background(), text("Баланс")))
	assert.Empty(t, rec.texts())

	_, ok, err := store.Load(context.Background(), Key{SubjectID: 1, ChatID: 10})
	require.NoError(t, err)
	assert.False(t, ok, "пустая сессия не создаётся")
}

func TestStateAndGroupMatching(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	store := NewMemoryStore(0)
	m := NewMachine(store, rec, nil, "fault")
	m.Register(
		Route{Name: "exact", States: []State{PlayerChooseAmount}, Shape: ShapeText, Text: "x", Handle: reply("exact")},
		Route{Name: "group", Groups: []Group{GroupPlayer}, Shape: ShapeText, Text: "x", Handle: reply("group")},
		Route{Name: "none", States: []State{NoState}, Shape: ShapeText, Text: "x", Handle: reply("none")},
	)

	require.NoError(t, m.Dispatch(ctx, text("x")))
	require.NoError(t, store.Save(ctx, Key{SubjectID: 1, ChatID: 10}, Session{State: PlayerMainMenu}))
	require.NoError(t, m.Dispatch(ctx, text("x")))
	require.NoError(t, store.Save(ctx, Key{SubjectID: 1, ChatID: 10}, Session{State: PlayerChooseAmount}))
	require.NoError(t, m.Dispatch(ctx, text("x")))

	assert.Equal(t, []string{"none", "group", "exact"}, rec.texts())
}

func TestInputShapes(t *testing.T) {
	rec := &recorder{}
	m := NewMachine(NewMemoryStore(0), rec, nil, "fault")
	m.Register(
		Route{Name: "digits", Shape: ShapeText, Input: InputDigits, Handle: reply("digits")},
		Route{
			Name:    "letters",
			Shape:   ShapeText,
			Input:   InputCharset,
			Charset: unicode.IsLetter,
			MaxLen:  5,
			Handle:  reply("letters"),
		},
	)

	for _, in := range []string{"42", "abc", "12a", "-5", "", "abcdef", "1234567890123"} {
		require.NoError(t, m.Dispatch(context.Background(), text(in)))
	}
	assert.Equal(t, []string{"digits", "letters"}, rec.texts())
}

func TestOwnerOnlyAndGuard(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	m := NewMachine(NewMemoryStore(0), rec, nil, "fault")
	blocked := true
	m.Register(
		Route{Name: "admin", Shape: ShapeCommand, Command: "reset", OwnerOnly: true, Handle: reply("admin")},
		Route{
			Name:    "guarded",
			Shape:   ShapeCommand,
			Command: "reset",
			Guard: func(context.Context, *Call) (bool, error) {
				return !blocked, nil
			},
			Handle: reply("guarded"),
		},
	)

	require.NoError(t, m.Dispatch(ctx, command("reset")))
	owner := command("reset")
	owner.RoleHint = RoleOwner
	require.NoError(t, m.Dispatch(ctx, owner))
	blocked = false
	require.NoError(t, m.Dispatch(ctx, command("reset")))

	assert.Equal(t, []string{"admin", "guarded"}, rec.texts())
}

func TestCallbackCollections(t *testing.T) {
	rec := &recorder{}
	m := NewMachine(NewMemoryStore(0), rec, nil, "fault")
	var got pagination.Token
	m.Register(
		Route{Name: "exact", Shape: ShapeCallback, Callback: "register_player", Handle: reply("exact")},
		Route{
			Name:       "page",
			Shape:      ShapeCallback,
			Collection: "locations",
			Kind:       pagination.Page,
			Handle:     reply("page"),
		},
		Route{
			Name:       "entry",
			Shape:      ShapeCallback,
			Collection: "locations",
			Kind:       pagination.Entry,
			Handle: func(_ context.Context, c *Call) error {
				got = c.Token
				c.Edit("entry", nil)
				return nil
			},
		},
	)

	ctx := context.Background()
	require.NoError(t, m.Dispatch(ctx, callback("register_player")))
	require.NoError(t, m.Dispatch(ctx, callback("locations_page#2")))
	require.NoError(t, m.Dispatch(ctx, callback("locations#15")))
	require.NoError(t, m.Dispatch(ctx, callback("players#15")))
	require.NoError(t, m.Dispatch(ctx, callback("locations_cancel")))

	assert.Equal(t, []string{"exact", "page", "entry"}, rec.texts())
	assert.Equal(t, pagination.Token{Collection: "locations", Kind: pagination.Entry, Value: 15}, got)
	assert.Equal(t, 77, rec.replies[2].EditMessageID)
}

func TestHandlerErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	store := NewMemoryStore(0)
	key := Key{SubjectID: 1, ChatID: 10}
	require.NoError(t, store.Save(ctx, key, Session{State: PlayerMainMenu, Payload: Payload{"a": "1"}}))

	m := NewMachine(store, rec, nil, "Попробуйте позже")
	m.Register(Route{
		Name:  "broken",
		Shape: ShapeText,
		Handle: func(_ context.Context, c *Call) error {
			c.SetState(PlayerChooseAmount)
			c.Set("a", "2")
			c.Reply("не дойдёт", nil)
			return errors.New("storage down")
		},
	})

	require.Error(t, m.Dispatch(ctx, text("hi")))
	assert.Equal(t, []string{"Попробуйте позже"}, rec.texts())

	sess, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PlayerMainMenu, sess.State)
	assert.Equal(t, "1", sess.Payload["a"])
}

func TestTransitionsPersist(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	key := Key{SubjectID: 1, ChatID: 10}
	m := NewMachine(store, &recorder{}, nil, "fault")
	m.Register(
		Route{Name: "go", Shape: ShapeCommand, Command: "go", Handle: func(_ context.Context, c *Call) error {
			c.SetState(ManagerRewardAmount)
			c.SetInt64(KeyCurrentPlayer, 5)
			return nil
		}},
		Route{Name: "reset", Shape: ShapeCommand, Command: "reset", Handle: func(_ context.Context, c *Call) error {
			c.Clear()
			return nil
		}},
	)

	require.NoError(t, m.Dispatch(ctx, command("go")))
	sess, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ManagerRewardAmount, sess.State)
	assert.Equal(t, GroupManager, sess.State.Group())
	id, ok := sess.Payload.Int64(KeyCurrentPlayer)
	require.True(t, ok)
	assert.Equal(t, int64(5), id)

	require.NoError(t, m.Dispatch(ctx, command("reset")))
	_, ok, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, Key{SubjectID: 1, ChatID: 1}, Session{State: PlayerMainMenu}))
	require.NoError(t, store.Save(ctx, Key{SubjectID: 1, ChatID: 2}, Session{State: PlayerMainMenu}))
	require.NoError(t, store.Save(ctx, Key{SubjectID: 2, ChatID: 2}, Session{State: ManagerMainMenu}))

	now = now.Add(2 * time.Hour)
	_, ok, err := store.Load(ctx, Key{SubjectID: 1, ChatID: 1})
	require.NoError(t, err)
	assert.False(t, ok, "истекшая сессия не видна")

	require.NoError(t, store.Save(ctx, Key{SubjectID: 2, ChatID: 2}, Session{State: ManagerMainMenu}))
	purged, err := store.PurgeStale(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	require.NoError(t, store.DeleteSubject(ctx, 2))
	_, ok, err = store.Load(ctx, Key{SubjectID: 2, ChatID: 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

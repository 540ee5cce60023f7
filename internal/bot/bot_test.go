package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/config"
	"fair-bot/internal/dialog"
)

type fakeClient struct {
	fakeAPI
	updates chan telego.Update
}

func (f *fakeClient) UpdatesViaLongPolling(context.Context, *telego.GetUpdatesParams, ...telego.LongPollingOption) (<-chan telego.Update, error) {
	return f.updates, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	updates []dialog.Update
}

func (d *recordingDispatcher) Dispatch(_ context.Context, u dialog.Update) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, u)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.updates)
}

type throttleCounter struct {
	mu sync.Mutex
	n  int
}

func (c *throttleCounter) Throttled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func testConfig() *config.Config {
	return &config.Config{
		AdminIDs:          []int64{1},
		BotMaxInflight:    4,
		RateLimitRequests: 3,
		RateLimitWindow:   time.Minute,
	}
}

func newTestBot() (*Bot, *fakeClient, *recordingDispatcher, *throttleCounter) {
	client := &fakeClient{updates: make(chan telego.Update)}
	dispatcher := &recordingDispatcher{}
	throttled := &throttleCounter{}
	b := New(client, testConfig(), dispatcher, NewReplier(client, 0, 0, nil), throttled, "Слишком много сообщений")
	return b, client, dispatcher, throttled
}

func TestHandleUpdateDispatchesAndAnswers(t *testing.T) {
	b, client, dispatcher, _ := newTestBot()
	ctx := context.Background()

	b.HandleUpdate(ctx, telego.Update{CallbackQuery: &telego.CallbackQuery{
		ID:      "cb-1",
		From:    telego.User{ID: 1},
		Message: privateMessage(1, "Список"),
		Data:    "locations#3",
	}})

	require.Equal(t, 1, dispatcher.count())
	assert.True(t, dispatcher.updates[0].IsOwner())
	assert.Equal(t, []string{"cb-1"}, client.answered)
}

func TestHandleUpdateAntiFlood(t *testing.T) {
	b, client, dispatcher, throttled := newTestBot()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		b.HandleUpdate(ctx, telego.Update{Message: privateMessage(7, "Баланс")})
	}

	assert.Equal(t, 3, dispatcher.count())
	assert.Equal(t, 3, throttled.n)
	// предупреждение отправляется один раз за серию
	require.Len(t, client.sent, 1)
	assert.Equal(t, "Слишком много сообщений", client.sent[0].Text)

	// другой subject не затронут
	b.HandleUpdate(ctx, telego.Update{Message: privateMessage(8, "Баланс")})
	assert.Equal(t, 4, dispatcher.count())
}

func TestHandleUpdateRecoversPanic(t *testing.T) {
	client := &fakeClient{}
	b := New(client, testConfig(), panicDispatcher{}, NewReplier(client, 0, 0, nil), nil, "")

	assert.NotPanics(t, func() {
		b.HandleUpdate(context.Background(), telego.Update{Message: privateMessage(7, "/start")})
	})
}

type panicDispatcher struct{}

func (panicDispatcher) Dispatch(context.Context, dialog.Update) error {
	panic("boom")
}

func TestRunStopsOnCancel(t *testing.T) {
	b, client, dispatcher, _ := newTestBot()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	client.updates <- telego.Update{Message: privateMessage(7, "/start")}
	client.updates <- telego.Update{Message: privateMessage(8, "/start")}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run не остановился")
	}
	// Run дожидается уже запущенных обработчиков
	assert.Equal(t, 2, dispatcher.count())
}

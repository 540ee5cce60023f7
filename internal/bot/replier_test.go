package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/dialog"
)

// fakeAPI запоминает вызовы Bot API.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []*telego.SendMessageParams
	edited   []*telego.EditMessageTextParams
	markups  []*telego.EditMessageReplyMarkupParams
	answered []string

	editErr error
	sendErr error
}

func (f *fakeAPI) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, p)
	return &telego.Message{}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, p *telego.EditMessageTextParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edited = append(f.edited, p)
	return &telego.Message{}, nil
}

func (f *fakeAPI) EditMessageReplyMarkup(_ context.Context, p *telego.EditMessageReplyMarkupParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.markups = append(f.markups, p)
	return &telego.Message{}, nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, p *telego.AnswerCallbackQueryParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, p.CallbackQueryID)
	return nil
}

type sendCounter struct {
	mu      sync.Mutex
	methods []string
}

func (s *sendCounter) SendFailed(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = append(s.methods, method)
}

func TestSendInlineKeyboard(t *testing.T) {
	api := &fakeAPI{}
	r := NewReplier(api, 0, 0, nil)

	err := r.Send(context.Background(), dialog.Reply{
		ChatID: 7,
		Text:   "Выберите локацию",
		Keyboard: &dialog.Keyboard{Inline: true, Rows: [][]dialog.Button{
			{{Text: "Тир", Data: "locations#1"}},
			{{Text: "❌", Data: "locations_cancel"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, api.sent, 1)

	p := api.sent[0]
	assert.Equal(t, int64(7), p.ChatID.ID)
	assert.Equal(t, "Выберите локацию", p.Text)

	markup, ok := p.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "Тир", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "locations#1", markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "locations_cancel", markup.InlineKeyboard[1][0].CallbackData)
}

func TestSendReplyKeyboard(t *testing.T) {
	api := &fakeAPI{}
	r := NewReplier(api, 0, 0, nil)

	err := r.Send(context.Background(), dialog.Reply{
		ChatID: 7,
		Text:   "Меню",
		Keyboard: &dialog.Keyboard{Rows: [][]dialog.Button{
			{{Text: "Баланс"}, {Text: "Перевод"}},
		}},
	})
	require.NoError(t, err)

	markup, ok := api.sent[0].ReplyMarkup.(*telego.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.Keyboard[0], 2)
	assert.Equal(t, "Перевод", markup.Keyboard[0][1].Text)

	require.NoError(t, r.Send(context.Background(), dialog.Reply{ChatID: 7, Text: "Готово", RemoveKeyboard: true}))
	_, ok = api.sent[1].ReplyMarkup.(*telego.ReplyKeyboardRemove)
	assert.True(t, ok)
}

func TestEditMessage(t *testing.T) {
	api := &fakeAPI{}
	r := NewReplier(api, 0, 0, nil)
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, dialog.Reply{ChatID: 7, Text: "Список закрыт", EditMessageID: 500}))
	require.Len(t, api.edited, 1)
	assert.Equal(t, 500, api.edited[0].MessageID)
	assert.Nil(t, api.edited[0].ReplyMarkup)

	require.NoError(t, r.Send(ctx, dialog.Reply{ChatID: 7, EditMessageID: 500, MarkupOnly: true}))
	require.Len(t, api.markups, 1)
	assert.Empty(t, api.sent)
}

func TestEditNotModifiedIsIgnored(t *testing.T) {
	api := &fakeAPI{editErr: errors.New("telego: editMessageText: api: 400 \"Bad Request: message is not modified\"")}
	obs := &sendCounter{}
	r := NewReplier(api, 0, 0, obs)

	require.NoError(t, r.Send(context.Background(), dialog.Reply{ChatID: 7, Text: "то же", EditMessageID: 500}))
	assert.Empty(t, api.sent)
	assert.Empty(t, obs.methods)
}

func TestEditFailureFallsBackToSend(t *testing.T) {
	api := &fakeAPI{editErr: errors.New("Bad Request: message to edit not found")}
	obs := &sendCounter{}
	r := NewReplier(api, 0, 0, obs)
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, dialog.Reply{ChatID: 7, Text: "Страница 2", EditMessageID: 500}))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "Страница 2", api.sent[0].Text)
	assert.Equal(t, []string{"editMessageText"}, obs.methods)

	// только кнопки: новое сообщение без текста не отправляется
	require.NoError(t, r.Send(ctx, dialog.Reply{ChatID: 7, EditMessageID: 500, MarkupOnly: true}))
	assert.Len(t, api.sent, 1)
}

func TestSendFailureIsCounted(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("Forbidden: bot was blocked by the user")}
	obs := &sendCounter{}
	r := NewReplier(api, 0, 0, obs)

	err := r.Send(context.Background(), dialog.Reply{ChatID: 7, Text: "привет"})
	assert.Error(t, err)
	assert.Equal(t, []string{"sendMessage"}, obs.methods)
}

func TestAnswerCallback(t *testing.T) {
	api := &fakeAPI{}
	r := NewReplier(api, 0, 0, nil)

	r.AnswerCallback(context.Background(), "")
	r.AnswerCallback(context.Background(), "cb-1")
	assert.Equal(t, []string{"cb-1"}, api.answered)
}

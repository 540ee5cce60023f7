package player_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/common"
	"fair-bot/internal/dialog"
	"fair-bot/internal/features/featuretest"
	"fair-bot/internal/features/player"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/pagination"
)

func setup(t *testing.T) *featuretest.Harness {
	t.Helper()
	h := featuretest.New(t, 5)
	h.Register(player.NewHandler(h.Deps).Routes()...)
	return h
}

func TestBalance(t *testing.T) {
	h := setup(t)
	subject, _ := h.Player("Вася", 1500)

	replies := h.Text(subject, h.Texts.Buttons.MyBalance)
	require.Len(t, replies, 1)
	assert.Equal(t, fmt.Sprintf(h.Texts.Messages.PlayerBalance, common.FormatBalance(1500)), replies[0].Text)
}

func TestJoinQueue(t *testing.T) {
	h := setup(t)
	msg := h.Texts.Messages

	open := h.Location("Тир", 50, false)
	closed := h.Location("Пустая", 50, false)
	_, m := h.Manager("Ведущий")
	h.Station(m.ID, open.ID)

	_, first := h.Player("Петя", 0)
	ok, err := h.Ledger.JoinQueue(h.Ctx, first.ID, open.ID)
	require.NoError(t, err)
	require.True(t, ok)

	subject, p := h.Player("Вася", 0)
	replies := h.Text(subject, h.Texts.Buttons.NewQueue)
	require.Len(t, replies, 1)
	assert.Equal(t, msg.ChooseQueueLocation, replies[0].Text)
	assert.Equal(t, dialog.PlayerChooseLocation, h.State(subject))

	// Только открытые локации: одна запись и отмена
	kb := replies[0].Keyboard
	require.NotNil(t, kb)
	require.Len(t, kb.Rows, 2)
	assert.Equal(t, pagination.MustEncode(keyboards.QueueLocations, pagination.Entry, open.ID), kb.Rows[0][0].Data)

	t.Run("closed location", func(t *testing.T) {
		replies := h.Callback(subject, pagination.MustEncode(keyboards.QueueLocations, pagination.Entry, closed.ID))
		require.Len(t, replies, 1)
		assert.Equal(t, msg.QueueJoinFailed, replies[0].Text)
		assert.Equal(t, dialog.PlayerChooseLocation, h.State(subject))
	})

	replies = h.Callback(subject, pagination.MustEncode(keyboards.QueueLocations, pagination.Entry, open.ID))
	require.Len(t, replies, 2)
	assert.True(t, replies[0].MarkupOnly)
	assert.Nil(t, replies[0].Keyboard)
	assert.Equal(t, fmt.Sprintf(msg.QueueJoined, "Тир", 2), replies[1].Text)
	assert.Equal(t, dialog.PlayerMainMenu, h.State(subject))

	// В очереди меню меняется на «моя очередь / покинуть»
	require.NotNil(t, replies[1].Keyboard)
	assert.Equal(t, h.Texts.Buttons.MyQueue, replies[1].Keyboard.Rows[0][0].Text)

	replies = h.Text(subject, h.Texts.Buttons.MyQueue)
	require.Len(t, replies, 1)
	assert.Equal(t, fmt.Sprintf(msg.PlayerQueue, "Тир", 2, 2), replies[0].Text)

	t.Run("second queue rejected", func(t *testing.T) {
		ok, err := h.Ledger.JoinQueue(h.Ctx, p.ID, open.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	replies = h.Text(subject, h.Texts.Buttons.LeaveQueue)
	assert.Equal(t, msg.LeftQueue, featuretest.Last(t, replies).Text)
	q, err := h.Ledger.QueueOf(h.Ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, q)

	replies = h.Text(subject, h.Texts.Buttons.LeaveQueue)
	assert.Equal(t, msg.NotInQueue, featuretest.Last(t, replies).Text)
}

func TestChooseLocationCancel(t *testing.T) {
	h := setup(t)
	subject, _ := h.Player("Вася", 0)

	h.Text(subject, h.Texts.Buttons.NewQueue)
	replies := h.Callback(subject, keyboards.QueueLocations+"_cancel")
	require.Len(t, replies, 2)
	assert.Equal(t, h.Texts.Messages.ChooseLocationCancelled, replies[0].Text)
	assert.Equal(t, featuretest.MessageID, replies[0].EditMessageID)
	assert.Equal(t, dialog.PlayerMainMenu, h.State(subject))
}

func TestLocationsPaging(t *testing.T) {
	h := setup(t)
	for i := 0; i < 7; i++ {
		loc := h.Location(fmt.Sprintf("Локация %d", i), 10, false)
		_, m := h.Manager(fmt.Sprintf("Ведущий %c", 'А'+rune(i)))
		h.Station(m.ID, loc.ID)
	}
	subject, _ := h.Player("Вася", 0)

	h.Text(subject, h.Texts.Buttons.NewQueue)
	replies := h.Callback(subject, pagination.MustEncode(keyboards.QueueLocations, pagination.Page, 1))
	require.Len(t, replies, 1)
	assert.True(t, replies[0].MarkupOnly)
	// 2 локации, «назад», отмена
	assert.Len(t, replies[0].Keyboard.Rows, 4)

	// Номер страницы за пределами прижимается к последней
	replies = h.Callback(subject, pagination.MustEncode(keyboards.QueueLocations, pagination.Page, 40))
	require.Len(t, replies, 1)
	assert.Len(t, replies[0].Keyboard.Rows, 4)
}

func TestUnregisteredPlayerReset(t *testing.T) {
	h := setup(t)
	subject, _ := h.Player("Вася", 0)

	wiped, err := h.Ledger.ResetSubject(h.Ctx, subject)
	require.NoError(t, err)
	require.True(t, wiped)

	replies := h.Text(subject, h.Texts.Buttons.MyBalance)
	require.Len(t, replies, 1)
	assert.Equal(t, h.Texts.Messages.PlayerNotFound, replies[0].Text)
	assert.True(t, replies[0].RemoveKeyboard)
	assert.Equal(t, dialog.NoState, h.State(subject))
}

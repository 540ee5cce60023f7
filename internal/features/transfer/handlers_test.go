package transfer_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/common"
	"fair-bot/internal/dialog"
	"fair-bot/internal/features/featuretest"
	"fair-bot/internal/features/transfer"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/pagination"
)

func setup(t *testing.T) *featuretest.Harness {
	t.Helper()
	h := featuretest.New(t, 5)
	h.Register(transfer.NewHandler(h.Deps).Routes()...)
	return h
}

func recipient(id int64) string {
	return pagination.MustEncode(keyboards.TransferRecipients, pagination.Entry, id)
}

func TestTransfer(t *testing.T) {
	h := setup(t)
	msg := h.Texts.Messages

	aSubject, a := h.Player("Аня", 100)
	bSubject, b := h.Player("Боря", 0)

	replies := h.Text(aSubject, h.Texts.Buttons.TransferMoney)
	require.Len(t, replies, 1)
	assert.Equal(t, msg.ChooseTransferRecipient, replies[0].Text)
	assert.Equal(t, dialog.PlayerChooseRecipient, h.State(aSubject))

	replies = h.Callback(aSubject, recipient(b.ID))
	require.Len(t, replies, 2)
	assert.True(t, replies[0].MarkupOnly)
	assert.Equal(t, fmt.Sprintf(msg.ChooseTransferAmount, "Боря"), replies[1].Text)
	assert.Equal(t, dialog.PlayerChooseAmount, h.State(aSubject))

	t.Run("insufficient funds", func(t *testing.T) {
		replies := h.Text(aSubject, "150")
		require.Len(t, replies, 1)
		assert.Equal(t, msg.TransferFailed, replies[0].Text)
		assert.Equal(t, dialog.PlayerChooseAmount, h.State(aSubject))
		assert.Equal(t, int64(100), h.Balance(a.ID))
		assert.Equal(t, int64(0), h.Balance(b.ID))
	})

	t.Run("not a number", func(t *testing.T) {
		replies := h.Text(aSubject, "сорок")
		require.Len(t, replies, 1)
		assert.Equal(t, msg.EnterNumber, replies[0].Text)
	})

	replies = h.Text(aSubject, "40")
	assert.Equal(t, int64(60), h.Balance(a.ID))
	assert.Equal(t, int64(40), h.Balance(b.ID))
	assert.Equal(t, dialog.PlayerMainMenu, h.State(aSubject))
	assert.Equal(t, int64(1), h.Rows("transfers_history"))

	require.Len(t, replies, 2)
	assert.Equal(t, bSubject, replies[0].ChatID)
	assert.Equal(t, fmt.Sprintf(msg.TransferReceived, common.FormatBalance(40), "Аня"), replies[0].Text)
	assert.Equal(t, aSubject, replies[1].ChatID)
	assert.Equal(t, fmt.Sprintf(msg.TransferSuccess, common.FormatBalance(40), "Боря"), replies[1].Text)

	_, hasRecipient := h.Payload(aSubject)[dialog.KeyRecipient]
	assert.False(t, hasRecipient)
}

func TestTransferWholeBalance(t *testing.T) {
	h := setup(t)
	aSubject, a := h.Player("Аня", 30)
	_, b := h.Player("Боря", 0)

	h.Text(aSubject, h.Texts.Buttons.TransferMoney)
	h.Callback(aSubject, recipient(b.ID))
	h.Text(aSubject, "30")

	assert.Equal(t, int64(0), h.Balance(a.ID))
	assert.Equal(t, int64(30), h.Balance(b.ID))
}

func TestTransferToSelf(t *testing.T) {
	h := setup(t)
	aSubject, a := h.Player("Аня", 100)

	h.Text(aSubject, h.Texts.Buttons.TransferMoney)
	replies := h.Callback(aSubject, recipient(a.ID))
	require.Len(t, replies, 1)
	assert.Equal(t, h.Texts.Messages.SelfTransfer, replies[0].Text)
	assert.Equal(t, dialog.PlayerChooseRecipient, h.State(aSubject))

	// Подделанные данные диалога тоже не проходят
	h.SetState(aSubject, dialog.PlayerChooseAmount, dialog.Payload{dialog.KeyRecipient: fmt.Sprint(a.ID)})
	replies = h.Text(aSubject, "10")
	assert.Equal(t, h.Texts.Messages.SelfTransfer, featuretest.Last(t, replies).Text)
	assert.Equal(t, int64(100), h.Balance(a.ID))
	assert.Equal(t, int64(0), h.Rows("transfers_history"))
}

func TestTransferCancel(t *testing.T) {
	h := setup(t)
	aSubject, _ := h.Player("Аня", 100)
	_, b := h.Player("Боря", 0)

	t.Run("from list", func(t *testing.T) {
		h.Text(aSubject, h.Texts.Buttons.TransferMoney)
		replies := h.Callback(aSubject, keyboards.TransferRecipients+"_cancel")
		require.Len(t, replies, 2)
		assert.Equal(t, h.Texts.Messages.TransferCancelled, replies[0].Text)
		assert.Equal(t, dialog.PlayerMainMenu, h.State(aSubject))
	})

	t.Run("from amount", func(t *testing.T) {
		h.Text(aSubject, h.Texts.Buttons.TransferMoney)
		h.Callback(aSubject, recipient(b.ID))
		replies := h.Text(aSubject, h.Texts.Buttons.Cancel)
		require.Len(t, replies, 1)
		assert.Equal(t, h.Texts.Messages.TransferCancelled, replies[0].Text)
		assert.Equal(t, dialog.PlayerMainMenu, h.State(aSubject))
		assert.Equal(t, int64(0), h.Balance(b.ID))
	})
}

func TestTransferWithoutRecipient(t *testing.T) {
	h := setup(t)
	aSubject, _ := h.Player("Аня", 100)

	h.SetState(aSubject, dialog.PlayerChooseAmount, nil)
	replies := h.Text(aSubject, "10")
	assert.Equal(t, h.Texts.Messages.NothingChosen, featuretest.Last(t, replies).Text)
	assert.Equal(t, dialog.PlayerMainMenu, h.State(aSubject))
}

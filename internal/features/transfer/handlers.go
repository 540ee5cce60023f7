// Package transfer — перевод монет между игроками:
// выбор получателя из списка → сумма → перевод и уведомление получателя.
package transfer

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/common"
	"fair-bot/internal/dialog"
	"fair-bot/internal/features/flow"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/pagination"
)

// Handler обрабатывает переводы.
type Handler struct {
	*flow.Deps
}

// NewHandler создаёт обработчик переводов.
func NewHandler(deps *flow.Deps) *Handler {
	return &Handler{Deps: deps}
}

func (h *Handler) Routes() []dialog.Route {
	choosing := []dialog.State{dialog.PlayerChooseRecipient}
	amount := []dialog.State{dialog.PlayerChooseAmount}

	return []dialog.Route{
		{
			Name:   "transfer_money",
			Groups: []dialog.Group{dialog.GroupPlayer},
			Shape:  dialog.ShapeText,
			Text:   h.Btn().TransferMoney,
			Handle: h.start,
		},
		{
			Name:       "transfer_recipients_page",
			States:     choosing,
			Shape:      dialog.ShapeCallback,
			Collection: keyboards.TransferRecipients,
			Kind:       pagination.Page,
			Handle:     h.page,
		},
		{
			Name:       "transfer_recipients_cancel",
			States:     choosing,
			Shape:      dialog.ShapeCallback,
			Collection: keyboards.TransferRecipients,
			Kind:       pagination.Cancel,
			Handle:     h.cancelList,
		},
		{
			Name:       "transfer_recipient_chosen",
			States:     choosing,
			Shape:      dialog.ShapeCallback,
			Collection: keyboards.TransferRecipients,
			Kind:       pagination.Entry,
			Handle:     h.recipient,
		},
		{
			Name:   "transfer_amount_cancel",
			States: amount,
			Shape:  dialog.ShapeText,
			Text:   h.Btn().Cancel,
			Handle: h.cancel,
		},
		{
			Name:   "transfer_amount",
			States: amount,
			Shape:  dialog.ShapeText,
			Input:  dialog.InputDigits,
			Handle: h.amount,
		},
		{
			Name:   "transfer_amount_not_number",
			States: amount,
			Shape:  dialog.ShapeText,
			Handle: h.notNumber,
		},
	}
}

func (h *Handler) start(ctx context.Context, c *dialog.Call) error {
	kb, err := h.Page(ctx, keyboards.TransferRecipients, 0, h.Players)
	if err != nil {
		return err
	}
	c.Del(dialog.KeyRecipient)
	c.SetState(dialog.PlayerChooseRecipient)
	c.Reply(h.Msg().ChooseTransferRecipient, kb)
	return nil
}

func (h *Handler) page(ctx context.Context, c *dialog.Call) error {
	kb, err := h.Page(ctx, keyboards.TransferRecipients, int(c.Token.Value), h.Players)
	if err != nil {
		return err
	}
	c.EditMarkup(kb)
	return nil
}

func (h *Handler) cancelList(ctx context.Context, c *dialog.Call) error {
	c.Edit(h.Msg().TransferCancelled, nil)
	return h.toMenu(ctx, c, h.Msg().MainMenu)
}

func (h *Handler) cancel(ctx context.Context, c *dialog.Call) error {
	return h.toMenu(ctx, c, h.Msg().TransferCancelled)
}

// recipient запоминает получателя. Себя выбрать нельзя: проверка до ledger.
func (h *Handler) recipient(ctx context.Context, c *dialog.Call) error {
	sender, err := h.Player(ctx, c)
	if err != nil || sender == nil {
		return err
	}
	if c.Token.Value == sender.ID {
		c.Reply(h.Msg().SelfTransfer, nil)
		return nil
	}

	recipient, err := h.Ledger.PlayerByID(ctx, c.Token.Value)
	if err != nil {
		return err
	}
	if recipient == nil {
		c.Reply(h.Msg().PlayerNotFound, nil)
		return nil
	}

	c.SetInt64(dialog.KeyRecipient, recipient.ID)
	c.SetState(dialog.PlayerChooseAmount)
	c.EditMarkup(nil)
	c.Reply(fmt.Sprintf(h.Msg().ChooseTransferAmount, recipient.Name), h.Keyboards.Amounts(keyboards.TransferAmounts))
	return nil
}

func (h *Handler) amount(ctx context.Context, c *dialog.Call) error {
	recipientID, ok := c.Int64(dialog.KeyRecipient)
	if !ok {
		return h.NothingChosen(ctx, c)
	}
	amount, ok := flow.ParseAmount(c.Update.Text)
	if !ok {
		c.Reply(h.Msg().EnterNumber, nil)
		return nil
	}
	sender, err := h.Player(ctx, c)
	if err != nil || sender == nil {
		return err
	}
	if sender.ID == recipientID {
		return h.ToPlayerMenu(ctx, c, sender.ID, h.Msg().SelfTransfer)
	}

	done, err := h.Ledger.Transfer(ctx, sender.ID, recipientID, amount)
	if err != nil {
		return err
	}
	if !done {
		c.Reply(h.Msg().TransferFailed, nil)
		return nil
	}

	recipient, err := h.Ledger.PlayerByID(ctx, recipientID)
	if err != nil {
		// Перевод уже зафиксирован: без имени получателя обойдёмся
		log.WithError(err).WithField("recipient", recipientID).Warn("Не удалось прочитать получателя после перевода")
	}
	name := ""
	if recipient != nil {
		name = recipient.Name
		c.Notify(recipient.ChatID, fmt.Sprintf(h.Msg().TransferReceived, common.FormatBalance(amount), sender.Name))
	}
	return h.ToPlayerMenu(ctx, c, sender.ID, fmt.Sprintf(h.Msg().TransferSuccess, common.FormatBalance(amount), name))
}

func (h *Handler) notNumber(_ context.Context, c *dialog.Call) error {
	c.Reply(h.Msg().EnterNumber, nil)
	return nil
}

func (h *Handler) toMenu(ctx context.Context, c *dialog.Call, text string) error {
	p, err := h.Player(ctx, c)
	if err != nil || p == nil {
		return err
	}
	return h.ToPlayerMenu(ctx, c, p.ID, text)
}

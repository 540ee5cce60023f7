package manager

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/common"
	"fair-bot/internal/dialog"
	"fair-bot/internal/features/flow"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/ledger"
)

// adjustment — ручное изменение баланса: начисление или списание.
type adjustment struct {
	name       string
	collection string
	recipient  dialog.State
	amount     dialog.State
	sign       int64
}

var (
	adjustAdd = adjustment{
		name:       "add",
		collection: keyboards.AddRecipients,
		recipient:  dialog.ManagerAddRecipient,
		amount:     dialog.ManagerAddAmount,
		sign:       1,
	}
	adjustSubtract = adjustment{
		name:       "subtract",
		collection: keyboards.SubtractRecipients,
		recipient:  dialog.ManagerSubtractRecipient,
		amount:     dialog.ManagerSubtractAmount,
		sign:       -1,
	}
)

func (h *Handler) adjustRoutes() []dialog.Route {
	var routes []dialog.Route
	for _, a := range []adjustment{adjustAdd, adjustSubtract} {
		amount := []dialog.State{a.amount}
		routes = append(routes, list(a.collection, []dialog.State{a.recipient},
			h.pageOf(a.collection, h.Players), h.cancelAdjustList, h.adjustRecipient(a))...)
		routes = append(routes,
			dialog.Route{Name: a.name + "_amount_cancel", States: amount, Shape: dialog.ShapeText, Text: h.Btn().Cancel, Handle: h.cancelAdjust},
			dialog.Route{Name: a.name + "_amount", States: amount, Shape: dialog.ShapeText, Input: dialog.InputDigits, Handle: h.adjust(a)},
			dialog.Route{Name: a.name + "_amount_not_number", States: amount, Shape: dialog.ShapeText, Handle: h.notNumber},
		)
	}
	return routes
}

func (h *Handler) startAdjust(a adjustment) dialog.Handler {
	return func(ctx context.Context, c *dialog.Call) error {
		kb, err := h.Page(ctx, a.collection, 0, h.Players)
		if err != nil {
			return err
		}
		text := h.Msg().ChooseAddRecipient
		if a.sign < 0 {
			text = h.Msg().ChooseSubtractRecipient
		}
		c.Del(dialog.KeyRecipient)
		c.SetState(a.recipient)
		c.Reply(text, kb)
		return nil
	}
}

func (h *Handler) cancelAdjustList(ctx context.Context, c *dialog.Call) error {
	c.Edit(h.Msg().AdjustCancelled, nil)
	return h.ToManagerMenu(ctx, c, h.Msg().MainMenu)
}

func (h *Handler) cancelAdjust(ctx context.Context, c *dialog.Call) error {
	return h.ToManagerMenu(ctx, c, h.Msg().AdjustCancelled)
}

func (h *Handler) adjustRecipient(a adjustment) dialog.Handler {
	return func(ctx context.Context, c *dialog.Call) error {
		p, err := h.Ledger.PlayerByID(ctx, c.Token.Value)
		if err != nil {
			return err
		}
		if p == nil {
			c.Reply(h.Msg().PlayerNotFound, nil)
			return nil
		}

		text := h.Msg().ChooseAddAmount
		if a.sign < 0 {
			text = h.Msg().ChooseSubtractAmount
		}
		c.SetInt64(dialog.KeyRecipient, p.ID)
		c.SetState(a.amount)
		c.EditMarkup(nil)
		c.Reply(fmt.Sprintf(text, p.Name), h.Keyboards.Amounts(keyboards.TransferAmounts))
		return nil
	}
}

func (h *Handler) adjust(a adjustment) dialog.Handler {
	return func(ctx context.Context, c *dialog.Call) error {
		playerID, ok := c.Int64(dialog.KeyRecipient)
		if !ok {
			return h.NothingChosen(ctx, c)
		}
		amount, ok := flow.ParseAmount(c.Update.Text)
		if !ok {
			c.Reply(h.Msg().EnterNumber, nil)
			return nil
		}
		m, err := h.Manager(ctx, c)
		if err != nil || m == nil {
			return err
		}
		p, err := h.Ledger.PlayerByID(ctx, playerID)
		if err != nil {
			return err
		}
		if p == nil {
			return h.ToManagerMenu(ctx, c, h.Msg().PlayerNotFound)
		}

		apply, success := h.Ledger.AddBalance, h.Msg().AddSuccess
		if a.sign < 0 {
			apply, success = h.Ledger.SubtractBalance, h.Msg().SubtractSuccess
		}
		done, err := apply(ctx, p.ID, m.ID, amount)
		if err != nil {
			return err
		}
		if !done && a.sign > 0 {
			return h.ToManagerMenu(ctx, c, h.Msg().PlayerNotFound)
		}
		if !done {
			c.Reply(h.Msg().SubtractFailed, nil)
			return nil
		}

		logAdjustment(m, p, a.sign*amount)
		c.Notify(p.ChatID, fmt.Sprintf(h.Msg().BalanceChangedNotice, common.FormatCoinsAmount(a.sign*amount)))
		return h.ToManagerMenu(ctx, c, fmt.Sprintf(success, common.FormatBalance(amount), p.Name))
	}
}

func logAdjustment(m *ledger.Manager, p *ledger.Player, delta int64) {
	log.WithFields(log.Fields{
		"manager": m.ID,
		"player":  p.ID,
		"delta":   delta,
	}).Info("Баланс изменён вручную")
}

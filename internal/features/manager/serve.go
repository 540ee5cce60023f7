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

// serveRoutes — обслуживание очереди своей локации:
// выбор игрока → награда (или покупка, если на локации магазин) → сумма.
func (h *Handler) serveRoutes() []dialog.Route {
	options := []dialog.State{dialog.ManagerPlayerOptions}
	reward := []dialog.State{dialog.ManagerRewardAmount}
	purchase := []dialog.State{dialog.ManagerPurchaseAmount}
	amounts := []dialog.State{dialog.ManagerRewardAmount, dialog.ManagerPurchaseAmount}

	routes := list(keyboards.MyLocationQueue, []dialog.State{dialog.ManagerChooseFromQueue},
		h.queuePage, h.closeQueue, h.playerChosen)

	return append(routes,
		dialog.Route{Name: "reward_player", States: options, Shape: dialog.ShapeCallback, Callback: keyboards.CallbackRewardPlayer, Handle: h.chooseReward},
		dialog.Route{Name: "purchase", States: options, Shape: dialog.ShapeCallback, Callback: keyboards.CallbackPurchase, Handle: h.choosePurchase},
		dialog.Route{Name: "serve_cancel", States: options, Shape: dialog.ShapeCallback, Callback: keyboards.CallbackServeCancel, Handle: h.serveCancel},

		dialog.Route{Name: "serve_amount_cancel", States: amounts, Shape: dialog.ShapeText, Text: h.Btn().Cancel, Handle: h.serveCancelText},
		dialog.Route{Name: "reward_amount", States: reward, Shape: dialog.ShapeText, Input: dialog.InputDigits, Handle: h.reward},
		dialog.Route{Name: "purchase_amount", States: purchase, Shape: dialog.ShapeText, Input: dialog.InputDigits, Handle: h.purchase},
		dialog.Route{Name: "serve_amount_not_number", States: amounts, Shape: dialog.ShapeText, Handle: h.notNumber},
	)
}

// myLocationQueue открывает очередь своей локации. Срабатывает из любого
// состояния менеджера: кнопка есть и под «Моей локацией», и под карточкой игрока.
func (h *Handler) myLocationQueue(ctx context.Context, c *dialog.Call) error {
	_, loc, _, err := h.station(ctx, c)
	if err != nil || loc == nil {
		return err
	}
	kb, err := h.Page(ctx, keyboards.MyLocationQueue, 0, h.Queue(loc.ID))
	if err != nil {
		return err
	}
	c.Del(dialog.KeyCurrentPlayer)
	c.SetState(dialog.ManagerChooseFromQueue)
	c.Edit(h.Msg().MyLocationQueue, kb)
	return nil
}

func (h *Handler) queuePage(ctx context.Context, c *dialog.Call) error {
	_, loc, _, err := h.station(ctx, c)
	if err != nil || loc == nil {
		return err
	}
	kb, err := h.Page(ctx, keyboards.MyLocationQueue, int(c.Token.Value), h.Queue(loc.ID))
	if err != nil {
		return err
	}
	c.EditMarkup(kb)
	return nil
}

func (h *Handler) closeQueue(ctx context.Context, c *dialog.Call) error {
	c.Edit(h.Msg().MyLocationQueueClosed, nil)
	return h.ToManagerMenu(ctx, c, h.Msg().MainMenu)
}

func (h *Handler) playerChosen(ctx context.Context, c *dialog.Call) error {
	_, loc, shop, err := h.station(ctx, c)
	if err != nil || loc == nil {
		return err
	}

	p, err := h.Ledger.PlayerByID(ctx, c.Token.Value)
	if err != nil {
		return err
	}
	if p == nil {
		c.Reply(h.Msg().PlayerNotFound, nil)
		return nil
	}
	// кнопка могла остаться от старого списка
	q, err := h.Ledger.QueueOf(ctx, p.ID)
	if err != nil {
		return err
	}
	if q == nil || q.Location.ID != loc.ID {
		c.Reply(h.Msg().PlayerLeftQueue, nil)
		return nil
	}

	c.SetInt64(dialog.KeyCurrentPlayer, p.ID)
	c.SetState(dialog.ManagerPlayerOptions)
	c.Edit(fmt.Sprintf(h.Msg().PlayerChosen, p.Name, common.FormatBalance(p.Balance)), h.Keyboards.PlayerChosen(shop != nil))
	return nil
}

// rewardAmounts — шаблонные суммы не больше максимальной награды.
func rewardAmounts(limit int64) []int64 {
	out := make([]int64, 0, len(keyboards.RewardAmounts)+1)
	for _, a := range keyboards.RewardAmounts {
		if a < limit {
			out = append(out, a)
		}
	}
	if limit > 0 {
		out = append(out, limit)
	}
	return out
}

func (h *Handler) chooseReward(ctx context.Context, c *dialog.Call) error {
	_, loc, shop, err := h.station(ctx, c)
	if err != nil || loc == nil {
		return err
	}
	if shop != nil {
		return h.ToManagerMenu(ctx, c, h.Msg().RewardAtShop)
	}
	c.SetState(dialog.ManagerRewardAmount)
	c.EditMarkup(nil)
	c.Reply(fmt.Sprintf(h.Msg().ChooseRewardAmount, loc.MaxReward), h.Keyboards.Amounts(rewardAmounts(loc.MaxReward)))
	return nil
}

func (h *Handler) choosePurchase(ctx context.Context, c *dialog.Call) error {
	_, loc, shop, err := h.station(ctx, c)
	if err != nil || loc == nil {
		return err
	}
	if shop == nil {
		return h.ToManagerMenu(ctx, c, h.Msg().PurchaseNoShop)
	}
	c.SetState(dialog.ManagerPurchaseAmount)
	c.EditMarkup(nil)
	c.Reply(h.Msg().ChoosePurchaseAmount, h.Keyboards.Amounts(keyboards.PurchaseAmounts))
	return nil
}

func (h *Handler) serveCancel(ctx context.Context, c *dialog.Call) error {
	c.EditMarkup(nil)
	return h.ToManagerMenu(ctx, c, h.Msg().ServeCancelled)
}

func (h *Handler) serveCancelText(ctx context.Context, c *dialog.Call) error {
	return h.ToManagerMenu(ctx, c, h.Msg().ServeCancelled)
}

func (h *Handler) notNumber(_ context.Context, c *dialog.Call) error {
	c.Reply(h.Msg().EnterNumber, nil)
	return nil
}

// served — общее начало награды и покупки: выбранный игрок и станция.
// nil — обработчик уже ответил.
func (h *Handler) served(ctx context.Context, c *dialog.Call) (*ledger.Manager, *ledger.Location, *ledger.Shop, *ledger.Player, error) {
	playerID, ok := c.Int64(dialog.KeyCurrentPlayer)
	if !ok {
		return nil, nil, nil, nil, h.NothingChosen(ctx, c)
	}
	m, loc, shop, err := h.station(ctx, c)
	if err != nil || loc == nil {
		return nil, nil, nil, nil, err
	}
	p, err := h.Ledger.PlayerByID(ctx, playerID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if p == nil {
		return nil, nil, nil, nil, h.ToManagerMenu(ctx, c, h.Msg().PlayerNotFound)
	}
	return m, loc, shop, p, nil
}

// reward — награда в пределах максимума локации. Проверка здесь, а не в ledger:
// ledger начисляет любую положительную сумму.
func (h *Handler) reward(ctx context.Context, c *dialog.Call) error {
	m, loc, shop, p, err := h.served(ctx, c)
	if err != nil || p == nil {
		return err
	}
	// награда и покупка взаимоисключающие: магазин могли открыть уже после выбора
	if shop != nil {
		return h.ToManagerMenu(ctx, c, h.Msg().RewardAtShop)
	}
	amount, ok := flow.ParseAmount(c.Update.Text)
	if !ok || amount > loc.MaxReward {
		c.Reply(fmt.Sprintf(h.Msg().RewardInvalid, loc.MaxReward), nil)
		return nil
	}

	done, err := h.Ledger.Reward(ctx, p.ID, m.ID, amount)
	if err != nil {
		return err
	}
	if !done {
		c.Reply(fmt.Sprintf(h.Msg().RewardInvalid, loc.MaxReward), nil)
		return nil
	}

	log.WithFields(log.Fields{
		"manager":  m.ID,
		"player":   p.ID,
		"location": loc.ID,
		"amount":   amount,
	}).Info("Награда выдана")

	c.Notify(p.ChatID, fmt.Sprintf(h.Msg().RewardReceived, common.FormatBalance(amount), loc.Name))
	return h.ToManagerMenu(ctx, c, fmt.Sprintf(h.Msg().RewardSuccess, p.Name, common.FormatBalance(amount)))
}

func (h *Handler) purchase(ctx context.Context, c *dialog.Call) error {
	m, _, shop, p, err := h.served(ctx, c)
	if err != nil || p == nil {
		return err
	}
	if shop == nil {
		return h.ToManagerMenu(ctx, c, h.Msg().PurchaseNoShop)
	}
	amount, ok := flow.ParseAmount(c.Update.Text)
	if !ok {
		c.Reply(h.Msg().EnterNumber, nil)
		return nil
	}

	done, err := h.Ledger.Purchase(ctx, p.ID, m.ID, amount)
	if err != nil {
		return err
	}
	if !done {
		c.Reply(h.Msg().PurchaseFailed, nil)
		return nil
	}

	c.Notify(p.ChatID, fmt.Sprintf(h.Msg().PurchaseNotice, common.FormatBalance(amount), shop.Name))
	return h.ToManagerMenu(ctx, c, fmt.Sprintf(h.Msg().PurchaseSuccess, p.Name, common.FormatBalance(amount)))
}

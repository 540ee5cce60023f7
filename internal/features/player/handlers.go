// Package player — постоянное меню игрока: баланс, очереди на локации.
package player

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

// Handler обрабатывает меню игрока.
type Handler struct {
	*flow.Deps
}

// NewHandler создаёт обработчик меню игрока.
func NewHandler(deps *flow.Deps) *Handler {
	return &Handler{Deps: deps}
}

func (h *Handler) Routes() []dialog.Route {
	menu := []dialog.Group{dialog.GroupPlayer}
	choosing := []dialog.State{dialog.PlayerChooseLocation}

	return []dialog.Route{
		{Name: "my_balance", Groups: menu, Shape: dialog.ShapeText, Text: h.Btn().MyBalance, Handle: h.balance},
		{Name: "new_queue", Groups: menu, Shape: dialog.ShapeText, Text: h.Btn().NewQueue, Handle: h.newQueue},
		{Name: "my_queue", Groups: menu, Shape: dialog.ShapeText, Text: h.Btn().MyQueue, Handle: h.myQueue},
		{Name: "leave_queue", Groups: menu, Shape: dialog.ShapeText, Text: h.Btn().LeaveQueue, Handle: h.leaveQueue},

		{
			Name:       "queue_locations_page",
			States:     choosing,
			Shape:      dialog.ShapeCallback,
			Collection: keyboards.QueueLocations,
			Kind:       pagination.Page,
			Handle:     h.locationsPage,
		},
		{
			Name:       "queue_locations_cancel",
			States:     choosing,
			Shape:      dialog.ShapeCallback,
			Collection: keyboards.QueueLocations,
			Kind:       pagination.Cancel,
			Handle:     h.locationsCancel,
		},
		{
			Name:       "queue_location_chosen",
			States:     choosing,
			Shape:      dialog.ShapeCallback,
			Collection: keyboards.QueueLocations,
			Kind:       pagination.Entry,
			Handle:     h.join,
		},
	}
}

func (h *Handler) balance(ctx context.Context, c *dialog.Call) error {
	p, err := h.Player(ctx, c)
	if err != nil || p == nil {
		return err
	}
	c.Reply(fmt.Sprintf(h.Msg().PlayerBalance, common.FormatBalance(p.Balance)), nil)
	return nil
}

// newQueue показывает открытые локации.
func (h *Handler) newQueue(ctx context.Context, c *dialog.Call) error {
	kb, err := h.Page(ctx, keyboards.QueueLocations, 0, h.Locations(true))
	if err != nil {
		return err
	}
	c.SetState(dialog.PlayerChooseLocation)
	c.Reply(h.Msg().ChooseQueueLocation, kb)
	return nil
}

func (h *Handler) locationsPage(ctx context.Context, c *dialog.Call) error {
	kb, err := h.Page(ctx, keyboards.QueueLocations, int(c.Token.Value), h.Locations(true))
	if err != nil {
		return err
	}
	c.EditMarkup(kb)
	return nil
}

func (h *Handler) locationsCancel(ctx context.Context, c *dialog.Call) error {
	p, err := h.Player(ctx, c)
	if err != nil || p == nil {
		return err
	}
	c.Edit(h.Msg().ChooseLocationCancelled, nil)
	return h.ToPlayerMenu(ctx, c, p.ID, h.Msg().MainMenu)
}

// join ставит игрока в очередь. При отказе список не перерисовывается:
// игрок видит ошибку и может выбрать другую локацию.
func (h *Handler) join(ctx context.Context, c *dialog.Call) error {
	p, err := h.Player(ctx, c)
	if err != nil || p == nil {
		return err
	}
	locationID := c.Token.Value

	ok, err := h.Ledger.JoinQueue(ctx, p.ID, locationID)
	if err != nil {
		return err
	}
	if !ok {
		c.Reply(h.Msg().QueueJoinFailed, nil)
		return nil
	}

	q, err := h.Ledger.QueueOf(ctx, p.ID)
	if err != nil {
		return err
	}
	if q == nil {
		// Игрока уже обслужили между вставкой и чтением
		return h.ToPlayerMenu(ctx, c, p.ID, h.Msg().MainMenu)
	}

	log.WithFields(log.Fields{
		"player":   p.ID,
		"location": locationID,
		"position": q.Position,
	}).Debug("Игрок встал в очередь")

	c.EditMarkup(nil)
	return h.ToPlayerMenu(ctx, c, p.ID, fmt.Sprintf(h.Msg().QueueJoined, q.Location.Name, q.Position))
}

func (h *Handler) myQueue(ctx context.Context, c *dialog.Call) error {
	p, err := h.Player(ctx, c)
	if err != nil || p == nil {
		return err
	}
	q, err := h.Ledger.QueueOf(ctx, p.ID)
	if err != nil {
		return err
	}
	if q == nil {
		return h.ToPlayerMenu(ctx, c, p.ID, h.Msg().NotInQueue)
	}
	c.Reply(fmt.Sprintf(h.Msg().PlayerQueue, q.Location.Name, q.Position, q.Length), nil)
	return nil
}

func (h *Handler) leaveQueue(ctx context.Context, c *dialog.Call) error {
	p, err := h.Player(ctx, c)
	if err != nil || p == nil {
		return err
	}
	ok, err := h.Ledger.LeaveQueue(ctx, p.ID)
	if err != nil {
		return err
	}
	if !ok {
		return h.ToPlayerMenu(ctx, c, p.ID, h.Msg().NotInQueue)
	}
	return h.ToPlayerMenu(ctx, c, p.ID, h.Msg().LeftQueue)
}

// Package manager — меню менеджера: списки игроков и локаций, выбор станции,
// пауза, обслуживание очереди (награда или покупка) и ручная правка балансов.
package manager

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/dialog"
	"fair-bot/internal/features/flow"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/ledger"
	"fair-bot/internal/pagination"
)

// Handler обрабатывает меню менеджера.
type Handler struct {
	*flow.Deps
}

// NewHandler создаёт обработчик меню менеджера.
func NewHandler(deps *flow.Deps) *Handler {
	return &Handler{Deps: deps}
}

var anyManagerState = []dialog.Group{dialog.GroupManager}

// list — маршруты постраничного списка: страница, отмена, выбор записи.
// states == nil — список работает в любом состоянии менеджера.
func list(collection string, states []dialog.State, page, cancel, entry dialog.Handler) []dialog.Route {
	var groups []dialog.Group
	if len(states) == 0 {
		groups = anyManagerState
	}
	route := func(kind pagination.Kind, handle dialog.Handler) dialog.Route {
		return dialog.Route{
			Name:       collection + "_" + kind.String(),
			States:     states,
			Groups:     groups,
			Shape:      dialog.ShapeCallback,
			Collection: collection,
			Kind:       kind,
			Handle:     handle,
		}
	}

	routes := []dialog.Route{route(pagination.Page, page), route(pagination.Cancel, cancel)}
	if entry != nil {
		routes = append(routes, route(pagination.Entry, entry))
	}
	return routes
}

func (h *Handler) Routes() []dialog.Route {
	text := func(name, button string, handle dialog.Handler) dialog.Route {
		return dialog.Route{Name: name, Groups: anyManagerState, Shape: dialog.ShapeText, Text: button, Handle: handle}
	}
	button := func(name, data string, handle dialog.Handler) dialog.Route {
		return dialog.Route{Name: name, Groups: anyManagerState, Shape: dialog.ShapeCallback, Callback: data, Handle: handle}
	}

	routes := []dialog.Route{
		text("list_all_players", h.Btn().ListAllPlayers, h.allPlayers),
		text("list_all_locations", h.Btn().ListAllLocations, h.allLocations),
		text("choose_location", h.Btn().ChooseLocation, h.chooseLocation),
		text("my_location", h.Btn().MyLocation, h.myLocation),
		text("leave_location", h.Btn().LeaveLocation, h.leaveLocation),
		text("add_balance", h.Btn().AddBalance, h.startAdjust(adjustAdd)),
		text("subtract_balance", h.Btn().SubtractBalance, h.startAdjust(adjustSubtract)),

		button("pause_location", keyboards.CallbackPauseLocation, h.pause(true)),
		button("unpause_location", keyboards.CallbackUnpauseLocation, h.pause(false)),
		button("my_location_queue", keyboards.CallbackMyLocationQueue, h.myLocationQueue),
	}

	routes = append(routes, list(keyboards.AllPlayers, nil, h.pageOf(keyboards.AllPlayers, h.Players), h.closeList, nil)...)
	routes = append(routes, list(keyboards.AllLocations, nil, h.pageOf(keyboards.AllLocations, h.Locations(false)), h.closeList, nil)...)
	routes = append(routes, list(keyboards.ChooseLocations, []dialog.State{dialog.ManagerChooseLocation},
		h.pageOf(keyboards.ChooseLocations, h.Locations(false)), h.cancelChooseLocation, h.locationChosen)...)

	routes = append(routes, h.serveRoutes()...)
	routes = append(routes, h.adjustRoutes()...)
	return routes
}

// pageOf — листание списка без смены состояния.
func (h *Handler) pageOf(collection string, lister flow.Lister) dialog.Handler {
	return func(ctx context.Context, c *dialog.Call) error {
		kb, err := h.Page(ctx, collection, int(c.Token.Value), lister)
		if err != nil {
			return err
		}
		c.EditMarkup(kb)
		return nil
	}
}

func (h *Handler) closeList(_ context.Context, c *dialog.Call) error {
	c.Edit(h.Msg().ListClosed, nil)
	return nil
}

func (h *Handler) allPlayers(ctx context.Context, c *dialog.Call) error {
	kb, err := h.Page(ctx, keyboards.AllPlayers, 0, h.Players)
	if err != nil {
		return err
	}
	c.Reply(h.Msg().AllPlayers, kb)
	return nil
}

func (h *Handler) allLocations(ctx context.Context, c *dialog.Call) error {
	kb, err := h.Page(ctx, keyboards.AllLocations, 0, h.Locations(false))
	if err != nil {
		return err
	}
	c.Reply(h.Msg().AllLocations, kb)
	return nil
}

// --- Станция ---

func (h *Handler) chooseLocation(ctx context.Context, c *dialog.Call) error {
	kb, err := h.Page(ctx, keyboards.ChooseLocations, 0, h.Locations(false))
	if err != nil {
		return err
	}
	c.SetState(dialog.ManagerChooseLocation)
	c.Reply(h.Msg().ChooseLocation, kb)
	return nil
}

func (h *Handler) cancelChooseLocation(ctx context.Context, c *dialog.Call) error {
	c.Edit(h.Msg().ChooseLocationCancelled, nil)
	return h.ToManagerMenu(ctx, c, h.Msg().MainMenu)
}

func (h *Handler) locationChosen(ctx context.Context, c *dialog.Call) error {
	m, err := h.Manager(ctx, c)
	if err != nil || m == nil {
		return err
	}
	locationID := c.Token.Value

	ok, err := h.Ledger.SetManagerLocation(ctx, m.ID, &locationID)
	if err != nil {
		return err
	}
	if !ok {
		c.EditMarkup(nil)
		return h.ToManagerMenu(ctx, c, h.Msg().LocationChangeFailed)
	}
	loc, err := h.Ledger.LocationByID(ctx, locationID)
	if err != nil {
		return err
	}
	if loc == nil {
		return h.ToManagerMenu(ctx, c, h.Msg().LocationChangeFailed)
	}

	log.WithFields(log.Fields{
		"manager":  m.ID,
		"location": loc.ID,
	}).Info("Менеджер встал на локацию")

	c.EditMarkup(nil)
	return h.ToManagerMenu(ctx, c, fmt.Sprintf(h.Msg().LocationChosen, loc.Name))
}

func (h *Handler) leaveLocation(ctx context.Context, c *dialog.Call) error {
	m, err := h.Manager(ctx, c)
	if err != nil || m == nil {
		return err
	}
	ok, err := h.Ledger.SetManagerLocation(ctx, m.ID, nil)
	if err != nil {
		return err
	}
	if !ok {
		return h.ToManagerMenu(ctx, c, h.Msg().NotOnLocation)
	}
	return h.ToManagerMenu(ctx, c, h.Msg().LeftLocation)
}

// station возвращает менеджера и его локацию. Если менеджер не на локации,
// отвечает сам; тогда loc == nil.
func (h *Handler) station(ctx context.Context, c *dialog.Call) (*ledger.Manager, *ledger.Location, *ledger.Shop, error) {
	m, err := h.Manager(ctx, c)
	if err != nil || m == nil {
		return nil, nil, nil, err
	}
	loc, shop, err := h.Ledger.Station(ctx, m.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if loc == nil {
		return m, nil, nil, h.ToManagerMenu(ctx, c, h.Msg().NotOnLocation)
	}
	return m, loc, shop, nil
}

func (h *Handler) statusText(loc *ledger.Location) string {
	switch {
	case loc.IsPaused:
		return h.Msg().LocationStatusPaused
	case loc.IsActive:
		return h.Msg().LocationStatusActive
	}
	return h.Msg().LocationStatusIdle
}

func (h *Handler) myLocation(ctx context.Context, c *dialog.Call) error {
	_, loc, shop, err := h.station(ctx, c)
	if err != nil || loc == nil {
		return err
	}
	text := fmt.Sprintf(h.Msg().MyLocation, loc.Name, h.statusText(loc), loc.QueueLen, loc.MaxReward)
	if shop != nil {
		text += "\n" + fmt.Sprintf(h.Msg().MyLocationShop, shop.Name)
	}
	c.Reply(text, h.Keyboards.LocationOptions(loc.IsPaused))
	return nil
}

func (h *Handler) pause(paused bool) dialog.Handler {
	return func(ctx context.Context, c *dialog.Call) error {
		m, err := h.Manager(ctx, c)
		if err != nil || m == nil {
			return err
		}
		ok, err := h.Ledger.SetLocationPaused(ctx, m.ID, paused)
		if err != nil {
			return err
		}
		if !ok {
			c.EditMarkup(nil)
			return h.ToManagerMenu(ctx, c, h.Msg().NotOnLocation)
		}

		text := h.Msg().LocationUnpaused
		if paused {
			text = h.Msg().LocationPaused
		}
		c.Edit(text, h.Keyboards.LocationOptions(paused))
		return nil
	}
}

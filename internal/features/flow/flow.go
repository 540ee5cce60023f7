// Package flow — общие для всех сценариев зависимости и шаги:
// возврат в главное меню, постраничные списки игроков и локаций.
package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fair-bot/internal/dialog"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/ledger"
	"fair-bot/internal/pagination"
	"fair-bot/internal/texts"
)

// Deps — то, что нужно обработчикам любого сценария.
type Deps struct {
	Ledger    *ledger.Ledger
	Texts     *texts.Texts
	Keyboards *keyboards.Builder
	PageSize  int
}

// Msg — сокращение для текстов сообщений.
func (d *Deps) Msg() *texts.Messages {
	return &d.Texts.Messages
}

// Btn — сокращение для текстов кнопок.
func (d *Deps) Btn() *texts.Buttons {
	return &d.Texts.Buttons
}

// PlayerMenu — меню игрока с учётом того, стоит ли он в очереди.
func (d *Deps) PlayerMenu(ctx context.Context, playerID int64) (*dialog.Keyboard, error) {
	q, err := d.Ledger.QueueOf(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return d.Keyboards.PlayerMenu(q != nil), nil
}

// ManagerMenu — меню менеджера с учётом станции.
func (d *Deps) ManagerMenu(m *ledger.Manager) *dialog.Keyboard {
	return d.Keyboards.ManagerMenu(m != nil && m.LocationID != nil)
}

// ToPlayerMenu возвращает игрока в главное меню с сообщением text.
// Временные данные сбрасываются.
func (d *Deps) ToPlayerMenu(ctx context.Context, c *dialog.Call, playerID int64, text string) error {
	kb, err := d.PlayerMenu(ctx, playerID)
	if err != nil {
		return err
	}
	c.Del(dialog.KeyRecipient, dialog.KeyCurrentPlayer)
	c.SetState(dialog.PlayerMainMenu)
	c.Reply(text, kb)
	return nil
}

// ToManagerMenu возвращает менеджера в главное меню. Станция перечитывается,
// потому что обработчик мог её изменить.
func (d *Deps) ToManagerMenu(ctx context.Context, c *dialog.Call, text string) error {
	m, err := d.Ledger.ManagerBySubject(ctx, c.Update.SubjectID)
	if err != nil {
		return err
	}
	c.Del(dialog.KeyRecipient, dialog.KeyCurrentPlayer)
	c.SetState(dialog.ManagerMainMenu)
	c.Reply(text, d.ManagerMenu(m))
	return nil
}

// ToMainMenu выбирает меню по роли пользователя. Незарегистрированный
// (например, после сброса владельцем) теряет состояние.
func (d *Deps) ToMainMenu(ctx context.Context, c *dialog.Call, text string) error {
	u, err := d.Ledger.UserBySubject(ctx, c.Update.SubjectID)
	if err != nil {
		return err
	}
	if u == nil {
		c.Clear()
		c.ReplyRemoveKeyboard(text)
		return nil
	}
	if u.Role == ledger.RoleManager {
		return d.ToManagerMenu(ctx, c, text)
	}
	p, err := d.Ledger.PlayerBySubject(ctx, c.Update.SubjectID)
	if err != nil {
		return err
	}
	if p == nil {
		c.Clear()
		c.ReplyRemoveKeyboard(text)
		return nil
	}
	return d.ToPlayerMenu(ctx, c, p.ID, text)
}

// NothingChosen — в данных диалога нет нужного ключа: сообщаем и уходим в меню.
func (d *Deps) NothingChosen(ctx context.Context, c *dialog.Call) error {
	return d.ToMainMenu(ctx, c, d.Msg().NothingChosen)
}

// Player возвращает игрока-отправителя. Если счёта нет (пользователя сбросили),
// отвечает и очищает состояние; тогда результат nil.
func (d *Deps) Player(ctx context.Context, c *dialog.Call) (*ledger.Player, error) {
	p, err := d.Ledger.PlayerBySubject(ctx, c.Update.SubjectID)
	if err != nil || p != nil {
		return p, err
	}
	c.Clear()
	c.ReplyRemoveKeyboard(d.Msg().PlayerNotFound)
	return nil, nil
}

// Manager — то же для менеджера.
func (d *Deps) Manager(ctx context.Context, c *dialog.Call) (*ledger.Manager, error) {
	m, err := d.Ledger.ManagerBySubject(ctx, c.Update.SubjectID)
	if err != nil || m != nil {
		return m, err
	}
	c.Clear()
	c.ReplyRemoveKeyboard(d.Msg().UnknownError)
	return nil, nil
}

// --- Постраничные списки ---

// Lister читает одну страницу коллекции и общее число записей.
type Lister func(ctx context.Context, offset, limit int) ([]keyboards.Entry, int64, error)

// Page строит клавиатуру страницы page коллекции. Номер страницы
// прижимается к допустимому диапазону.
func (d *Deps) Page(ctx context.Context, collection string, page int, list Lister) (*dialog.Keyboard, error) {
	if page < 0 {
		page = 0
	}
	entries, total, err := list(ctx, pagination.Offset(page, d.PageSize), d.PageSize)
	if err != nil {
		return nil, err
	}
	count := pagination.PageCount(total, d.PageSize)
	if clamped := pagination.ClampPage(page, count); clamped != page {
		page = clamped
		if entries, _, err = list(ctx, pagination.Offset(page, d.PageSize), d.PageSize); err != nil {
			return nil, err
		}
	}
	return d.Keyboards.Page(collection, entries, page, count)
}

// Players — все игроки по возрастанию id.
func (d *Deps) Players(ctx context.Context, offset, limit int) ([]keyboards.Entry, int64, error) {
	players, err := d.Ledger.ListPlayers(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := d.Ledger.CountPlayers(ctx)
	if err != nil {
		return nil, 0, err
	}
	return playerEntries(players), total, nil
}

// Locations — локации по убыванию очереди, activeOnly — только открытые.
func (d *Deps) Locations(activeOnly bool) Lister {
	return func(ctx context.Context, offset, limit int) ([]keyboards.Entry, int64, error) {
		locs, err := d.Ledger.ListLocations(ctx, offset, limit, activeOnly)
		if err != nil {
			return nil, 0, err
		}
		total, err := d.Ledger.CountLocations(ctx, activeOnly)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]keyboards.Entry, 0, len(locs))
		for _, l := range locs {
			entries = append(entries, keyboards.Entry{Text: LocationLabel(l), ID: l.ID})
		}
		return entries, total, nil
	}
}

// Queue — очередь локации в порядке постановки.
func (d *Deps) Queue(locationID int64) Lister {
	return func(ctx context.Context, offset, limit int) ([]keyboards.Entry, int64, error) {
		players, err := d.Ledger.ListQueue(ctx, locationID, offset, limit)
		if err != nil {
			return nil, 0, err
		}
		total, err := d.Ledger.CountQueue(ctx, locationID)
		if err != nil {
			return nil, 0, err
		}
		return playerEntries(players), total, nil
	}
}

func playerEntries(players []ledger.Player) []keyboards.Entry {
	entries := make([]keyboards.Entry, 0, len(players))
	for _, p := range players {
		entries = append(entries, keyboards.Entry{Text: p.Name, ID: p.ID})
	}
	return entries
}

// LocationLabel — подпись локации в списке: имя и длина очереди.
func LocationLabel(l ledger.Location) string {
	return fmt.Sprintf("%s · %d", l.Name, l.QueueLen)
}

// ParseAmount разбирает сумму из текста (маршрут уже проверил, что это цифры).
func ParseAmount(text string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

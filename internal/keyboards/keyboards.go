// Package keyboards собирает раскладки кнопок бота. Раскладки не зависят от
// Telegram: транспорт переводит dialog.Keyboard в разметку сам.
package keyboards

import (
	"strconv"

	"fair-bot/internal/dialog"
	"fair-bot/internal/pagination"
	"fair-bot/internal/texts"
)

// Данные inline-кнопок вне постраничных списков
const (
	CallbackRegPlayer       = "reg_player"
	CallbackRegManager      = "reg_manager"
	CallbackHelp            = "help"
	CallbackMyLocationQueue = "my_location_queue"
	CallbackPauseLocation   = "pause_location"
	CallbackUnpauseLocation = "unpause_location"
	CallbackRewardPlayer    = "reward_player"
	CallbackPurchase        = "purchase"
	CallbackServeCancel     = "serve_cancel"
)

// Коллекции постраничных списков (префиксы callback-токенов)
const (
	QueueLocations     = "queue_locations"
	TransferRecipients = "transfer_recipients"
	AllPlayers         = "all_players"
	AllLocations       = "all_locations"
	ChooseLocations    = "choose_locations"
	MyLocationQueue    = "my_location_queue"
	AddRecipients      = "add_recipients"
	SubtractRecipients = "subtract_recipients"
)

// Шаблонные суммы на клавиатурах ввода
var (
	TransferAmounts = []int64{10, 20, 30, 50, 70, 100}
	RewardAmounts   = []int64{10, 30, 50, 70, 100}
	PurchaseAmounts = []int64{50, 100, 200, 300, 400, 500}
)

// Entry — строка постраничного списка.
type Entry struct {
	Text string
	ID   int64
}

// Builder строит клавиатуры из текстов кнопок.
type Builder struct {
	b texts.Buttons
}

func New(b texts.Buttons) *Builder {
	return &Builder{b: b}
}

// Registration — выбор роли для незарегистрированного.
func (k *Builder) Registration() *dialog.Keyboard {
	return inline(
		row(callback(k.b.RegPlayer, CallbackRegPlayer)),
		row(callback(k.b.RegManager, CallbackRegManager)),
		row(callback(k.b.Help, CallbackHelp)),
	)
}

// PlayerMenu — постоянное меню игрока. В очереди вместо «новой очереди»
// показываются кнопки своей очереди.
func (k *Builder) PlayerMenu(inQueue bool) *dialog.Keyboard {
	var rows [][]dialog.Button
	if inQueue {
		rows = append(rows, row(text(k.b.MyQueue), text(k.b.LeaveQueue)))
	} else {
		rows = append(rows, row(text(k.b.NewQueue)))
	}
	rows = append(rows,
		row(text(k.b.MyBalance), text(k.b.TransferMoney)),
		row(text(k.b.Help)),
	)
	return &dialog.Keyboard{Rows: rows}
}

// ManagerMenu — постоянное меню менеджера.
func (k *Builder) ManagerMenu(stationed bool) *dialog.Keyboard {
	var rows [][]dialog.Button
	if stationed {
		rows = append(rows, row(text(k.b.MyLocation), text(k.b.LeaveLocation)))
	}
	rows = append(rows,
		row(text(k.b.ChooseLocation)),
		row(text(k.b.ListAllPlayers), text(k.b.ListAllLocations)),
		row(text(k.b.AddBalance), text(k.b.SubtractBalance)),
		row(text(k.b.Help)),
	)
	return &dialog.Keyboard{Rows: rows}
}

// LocationOptions — действия на своей локации.
func (k *Builder) LocationOptions(paused bool) *dialog.Keyboard {
	if paused {
		return inline(row(callback(k.b.UnpauseLocation, CallbackUnpauseLocation)))
	}
	return inline(
		row(callback(k.b.MyLocationQueue, CallbackMyLocationQueue)),
		row(callback(k.b.PauseLocation, CallbackPauseLocation)),
	)
}

// PlayerChosen — действия с выбранным из очереди игроком.
// На локации с магазином менеджер продаёт, иначе награждает.
func (k *Builder) PlayerChosen(shop bool) *dialog.Keyboard {
	serve := callback(k.b.RewardPlayer, CallbackRewardPlayer)
	if shop {
		serve = callback(k.b.Purchase, CallbackPurchase)
	}
	return inline(
		row(serve),
		row(callback(k.b.MyLocationQueue, CallbackMyLocationQueue)),
		row(callback(k.b.Cancel, CallbackServeCancel)),
	)
}

// Amounts — reply-клавиатура с шаблонными суммами и отменой.
func (k *Builder) Amounts(amounts []int64) *dialog.Keyboard {
	var rows [][]dialog.Button
	var current []dialog.Button
	for _, a := range amounts {
		current = append(current, text(strconv.FormatInt(a, 10)))
		if len(current) == 3 {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	rows = append(rows, row(text(k.b.Cancel)))
	return &dialog.Keyboard{Rows: rows}
}

// Page — страница списка: по кнопке на запись, «назад»/«вперёд» и отмена.
func (k *Builder) Page(collection string, entries []Entry, page, count int) (*dialog.Keyboard, error) {
	kb := &dialog.Keyboard{Inline: true}
	for _, e := range entries {
		data, err := pagination.Encode(collection, pagination.Entry, e.ID)
		if err != nil {
			return nil, err
		}
		kb.Rows = append(kb.Rows, row(callback(e.Text, data)))
	}

	var controls []dialog.Button
	prev, next := pagination.Controls(page, count)
	if prev {
		data, err := pagination.Encode(collection, pagination.Page, int64(page-1))
		if err != nil {
			return nil, err
		}
		controls = append(controls, callback(k.b.PrevPage, data))
	}
	if next {
		data, err := pagination.Encode(collection, pagination.Page, int64(page+1))
		if err != nil {
			return nil, err
		}
		controls = append(controls, callback(k.b.NextPage, data))
	}
	if len(controls) > 0 {
		kb.Rows = append(kb.Rows, controls)
	}

	cancel, err := pagination.Encode(collection, pagination.Cancel, 0)
	if err != nil {
		return nil, err
	}
	kb.Rows = append(kb.Rows, row(callback(k.b.Cancel, cancel)))
	return kb, nil
}

func inline(rows ...[]dialog.Button) *dialog.Keyboard {
	return &dialog.Keyboard{Inline: true, Rows: rows}
}

func row(buttons ...dialog.Button) []dialog.Button {
	return buttons
}

func text(t string) dialog.Button {
	return dialog.Button{Text: t}
}

func callback(t, data string) dialog.Button {
	return dialog.Button{Text: t, Data: data}
}

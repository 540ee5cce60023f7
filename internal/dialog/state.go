package dialog

import (
	"strconv"
	"strings"
	"time"
)

// Group — класс ролей, к которому относится состояние.
type Group string

const (
	GroupNone         Group = ""
	GroupUnregistered Group = "unregistered"
	GroupPlayer       Group = "player"
	GroupManager      Group = "manager"
)

// State — имя состояния в виде "группа:имя".
type State string

// NoState — у собеседника ещё нет состояния (или оно сброшено).
const NoState State = ""

// Незарегистрированные
const (
	UnregStarted         State = "unregistered:started"
	UnregPlayerName      State = "unregistered:reg_player_name"
	UnregManagerPassword State = "unregistered:reg_manager_password"
	UnregManagerName     State = "unregistered:reg_manager_name"
)

// Игрок
const (
	PlayerMainMenu        State = "player:main_menu"
	PlayerChooseLocation  State = "player:choose_new_queue_location"
	PlayerChooseRecipient State = "player:choose_money_transfer_recipient"
	PlayerChooseAmount    State = "player:choose_money_transfer_amount"
)

// Менеджер
const (
	ManagerMainMenu          State = "manager:main_menu"
	ManagerChooseLocation    State = "manager:choose_location"
	ManagerChooseFromQueue   State = "manager:choose_from_my_location_queue"
	ManagerPlayerOptions     State = "manager:location_player_chosen_options"
	ManagerRewardAmount      State = "manager:choose_reward_amount"
	ManagerPurchaseAmount    State = "manager:choose_purchase_amount"
	ManagerAddRecipient      State = "manager:choose_add_recipient"
	ManagerAddAmount         State = "manager:choose_add_amount"
	ManagerSubtractRecipient State = "manager:choose_subtract_recipient"
	ManagerSubtractAmount    State = "manager:choose_subtract_amount"
)

// Group возвращает группу состояния.
func (s State) Group() Group {
	g, _, ok := strings.Cut(string(s), ":")
	if !ok {
		return GroupNone
	}
	return Group(g)
}

// Ключи временных данных диалога
const (
	KeyRecipient       = "recipient_player_id"
	KeyCurrentPlayer   = "current_player_id"
	KeyPasswordRetries = "password_retries"
)

// Payload — временные данные диалога (строка → строка).
type Payload map[string]string

// Int64 читает числовое значение. false — ключа нет или он не число.
func (p Payload) Int64(key string) (int64, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Clone — независимая копия.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Key — (subject, chat).
type Key struct {
	SubjectID int64
	ChatID    int64
}

// Session — сохранённое состояние собеседника.
type Session struct {
	State     State
	Payload   Payload
	UpdatedAt time.Time
}

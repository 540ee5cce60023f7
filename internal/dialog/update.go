// Package dialog — конечный автомат диалога: хранит состояние каждого
// собеседника и выбирает обработчик по (роль, состояние, форма апдейта).
package dialog

import "time"

// Shape — форма входящего апдейта.
type Shape int

const (
	ShapeCommand Shape = iota + 1
	ShapeText
	ShapeCallback
)

func (s Shape) String() string {
	switch s {
	case ShapeCommand:
		return "command"
	case ShapeText:
		return "text"
	case ShapeCallback:
		return "callback"
	}
	return "unknown"
}

// RoleHint — подсказка транспорта о правах отправителя.
type RoleHint int

const (
	RoleNone RoleHint = iota
	RoleOwner
)

// Update — входящее событие, уже отвязанное от Telegram.
type Update struct {
	SubjectID int64
	ChatID    int64
	Username  string
	RoleHint  RoleHint
	Shape     Shape

	Command string // без "/" и @бота, в нижнем регистре
	Args    string // остаток строки после команды
	Text    string
	// Callback — данные нажатой inline-кнопки
	Callback   string
	CallbackID string
	// MessageID — сообщение с кнопками, которое можно отредактировать
	MessageID int

	Timestamp time.Time
	TraceID   string
}

// Key — ключ хранилища состояний.
func (u Update) Key() Key {
	return Key{SubjectID: u.SubjectID, ChatID: u.ChatID}
}

// IsOwner — отправитель из списка владельцев.
func (u Update) IsOwner() bool {
	return u.RoleHint == RoleOwner
}

// Button — кнопка клавиатуры. Data пусто у reply-кнопок.
type Button struct {
	Text string
	Data string
}

// Keyboard — раскладка кнопок. Inline — кнопки под сообщением,
// иначе обычная клавиатура вместо поля ввода.
type Keyboard struct {
	Inline bool
	Rows   [][]Button
}

// Reply — исходящее сообщение.
type Reply struct {
	ChatID   int64
	Text     string
	Keyboard *Keyboard
	// RemoveKeyboard убирает reply-клавиатуру (если Keyboard == nil)
	RemoveKeyboard bool
	// EditMessageID != 0 — отредактировать существующее сообщение
	EditMessageID int
	// MarkupOnly — при редактировании менять только кнопки
	MarkupOnly bool
}

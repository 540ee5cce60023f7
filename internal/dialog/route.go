package dialog

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"fair-bot/internal/pagination"
)

// Handler обрабатывает апдейт, для которого совпал маршрут.
// Ошибка означает сбой (пользователь получит общее сообщение об ошибке,
// состояние не сохранится). Бизнес-отказ — обычный ответ и nil.
type Handler func(ctx context.Context, c *Call) error

// Guard — дополнительное условие маршрута, которому нужен доступ к данным.
type Guard func(ctx context.Context, c *Call) (bool, error)

// InputKind — допустимая форма свободного текста.
type InputKind int

const (
	InputAny InputKind = iota
	// InputDigits — только цифры (положительное число)
	InputDigits
	// InputCharset — каждый символ проходит Charset
	InputCharset
)

// maxDigits ограничивает длину числа, чтобы оно влезло в int64.
const maxDigits = 12

// Route — строка таблицы маршрутизации. Пустое поле не участвует в сравнении.
// Таблица просматривается по порядку, побеждает первое совпадение.
type Route struct {
	Name string

	// States — точные состояния (NoState допустим). Если пусто, проверяются Groups.
	States []State
	// Groups — группы состояний. Если пусто вместе со States, подходит любое состояние.
	Groups []Group

	Shape Shape

	// ShapeCommand
	Command string

	// ShapeText: Text — точный текст кнопки, иначе проверяется Input
	Text    string
	Input   InputKind
	Charset func(r rune) bool
	MaxLen  int // в символах, 0 — без ограничения

	// ShapeCallback: Callback — точные данные, иначе токен коллекции Collection вида Kind
	Callback   string
	Collection string
	Kind       pagination.Kind

	OwnerOnly bool
	Guard     Guard

	Handle Handler
}

// matches проверяет всё, кроме Guard.
func (r *Route) matches(c *Call) bool {
	u := c.Update

	if r.OwnerOnly && !u.IsOwner() {
		return false
	}
	if len(r.States) > 0 {
		if !slices.Contains(r.States, c.State) {
			return false
		}
	} else if len(r.Groups) > 0 && !slices.Contains(r.Groups, c.State.Group()) {
		return false
	}
	if r.Shape != 0 && r.Shape != u.Shape {
		return false
	}

	switch u.Shape {
	case ShapeCommand:
		return r.Command == "" || r.Command == u.Command
	case ShapeText:
		return r.matchText(u.Text)
	case ShapeCallback:
		return r.matchCallback(c)
	}
	return false
}

func (r *Route) matchText(text string) bool {
	if r.Text != "" {
		return text == r.Text
	}
	if r.MaxLen > 0 && utf8.RuneCountInString(text) > r.MaxLen {
		return false
	}

	switch r.Input {
	case InputDigits:
		if text == "" || len(text) > maxDigits {
			return false
		}
		for _, ch := range text {
			if ch < '0' || ch > '9' {
				return false
			}
		}
		return true
	case InputCharset:
		if strings.TrimSpace(text) == "" || r.Charset == nil {
			return false
		}
		for _, ch := range text {
			if !r.Charset(ch) {
				return false
			}
		}
		return true
	}
	return true
}

func (r *Route) matchCallback(c *Call) bool {
	data := c.Update.Callback
	if r.Callback != "" {
		return data == r.Callback
	}
	if r.Collection == "" {
		return true
	}

	tok, err := pagination.Decode(data)
	if err != nil || tok.Collection != r.Collection {
		return false
	}
	if r.Kind != 0 && tok.Kind != r.Kind {
		return false
	}
	c.Token = tok
	return true
}

package dialog

import (
	"strconv"

	"fair-bot/internal/pagination"
)

// Call — контекст одного вызова обработчика: входящий апдейт, текущее
// состояние и накопленные изменения (следующее состояние, данные, ответы).
type Call struct {
	Update Update
	// State — состояние на момент прихода апдейта
	State State
	// Token — разобранный callback-токен, если маршрут задавал Collection
	Token pagination.Token

	next    State
	payload Payload
	changed bool
	cleared bool
	replies []Reply
}

func newCall(u Update, sess Session) *Call {
	payload := sess.Payload.Clone()
	return &Call{
		Update:  u,
		State:   sess.State,
		next:    sess.State,
		payload: payload,
	}
}

// Next — состояние, которое будет сохранено.
func (c *Call) Next() State {
	return c.next
}

// SetState переводит диалог в состояние s, временные данные сохраняются.
func (c *Call) SetState(s State) {
	c.next = s
	c.changed = true
	c.cleared = false
}

// Clear сбрасывает состояние и временные данные (NoState).
func (c *Call) Clear() {
	c.next = NoState
	c.payload = Payload{}
	c.changed = true
	c.cleared = true
}

// Get читает временное значение.
func (c *Call) Get(key string) (string, bool) {
	v, ok := c.payload[key]
	return v, ok
}

// Int64 читает числовое временное значение.
func (c *Call) Int64(key string) (int64, bool) {
	return c.payload.Int64(key)
}

// Set записывает временное значение.
func (c *Call) Set(key, value string) {
	c.payload[key] = value
	c.changed = true
	c.cleared = false
}

// SetInt64 записывает числовое временное значение.
func (c *Call) SetInt64(key string, v int64) {
	c.Set(key, strconv.FormatInt(v, 10))
}

// Del удаляет временное значение.
func (c *Call) Del(keys ...string) {
	for _, key := range keys {
		if _, ok := c.payload[key]; ok {
			delete(c.payload, key)
			c.changed = true
		}
	}
}

// Payload — копия текущих временных данных.
func (c *Call) Payload() Payload {
	return c.payload.Clone()
}

// Reply отправляет сообщение в чат апдейта.
func (c *Call) Reply(text string, kb *Keyboard) {
	c.replies = append(c.replies, Reply{ChatID: c.Update.ChatID, Text: text, Keyboard: kb})
}

// ReplyRemoveKeyboard отправляет сообщение и убирает reply-клавиатуру.
func (c *Call) ReplyRemoveKeyboard(text string) {
	c.replies = append(c.replies, Reply{ChatID: c.Update.ChatID, Text: text, RemoveKeyboard: true})
}

// Notify отправляет сообщение в другой чат (уведомление получателю).
func (c *Call) Notify(chatID int64, text string) {
	c.replies = append(c.replies, Reply{ChatID: chatID, Text: text})
}

// Edit заменяет текст и inline-кнопки сообщения, на котором нажата кнопка.
// Если такого сообщения нет, отправляет новое.
func (c *Call) Edit(text string, kb *Keyboard) {
	if c.Update.MessageID == 0 {
		c.Reply(text, kb)
		return
	}
	c.replies = append(c.replies, Reply{
		ChatID:        c.Update.ChatID,
		Text:          text,
		Keyboard:      kb,
		EditMessageID: c.Update.MessageID,
	})
}

// EditMarkup меняет только inline-кнопки сообщения.
func (c *Call) EditMarkup(kb *Keyboard) {
	if c.Update.MessageID == 0 {
		return
	}
	c.replies = append(c.replies, Reply{
		ChatID:        c.Update.ChatID,
		Keyboard:      kb,
		EditMessageID: c.Update.MessageID,
		MarkupOnly:    true,
	})
}

// Replies — накопленные ответы в порядке добавления.
func (c *Call) Replies() []Reply {
	return c.replies
}

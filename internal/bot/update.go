package bot

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"

	"fair-bot/internal/bot/filters"
	"fair-bot/internal/dialog"
)

// OwnerCheck сообщает, входит ли пользователь в список владельцев.
type OwnerCheck func(subjectID int64) bool

// Converter переводит апдейты Telegram в апдейты диалога.
type Converter struct {
	filter  *filters.ChatFilter
	isOwner OwnerCheck
	now     func() time.Time
}

func NewConverter(filter *filters.ChatFilter, isOwner OwnerCheck) *Converter {
	return &Converter{filter: filter, isOwner: isOwner, now: time.Now}
}

// Convert возвращает false, если апдейт не адресован диалогу:
// не личный чат, пустое сообщение, кнопка без сообщения.
func (c *Converter) Convert(upd telego.Update) (dialog.Update, bool) {
	switch {
	case upd.Message != nil:
		return c.fromMessage(upd.Message)
	case upd.CallbackQuery != nil:
		return c.fromCallback(upd.CallbackQuery)
	}
	return dialog.Update{}, false
}

func (c *Converter) fromMessage(msg *telego.Message) (dialog.Update, bool) {
	if msg.Text == "" || !c.filter.Allow(msg.Chat, msg.From) {
		return dialog.Update{}, false
	}

	u := c.base(*msg.From, msg.Chat.ID)
	if cmd, args, ok := ParseCommand(msg.Text); ok {
		u.Shape = dialog.ShapeCommand
		u.Command = cmd
		u.Args = args
	} else {
		u.Shape = dialog.ShapeText
		u.Text = strings.TrimSpace(msg.Text)
	}
	return u, true
}

func (c *Converter) fromCallback(q *telego.CallbackQuery) (dialog.Update, bool) {
	if q.Message == nil {
		return dialog.Update{}, false
	}
	from := q.From
	if !c.filter.Allow(q.Message.GetChat(), &from) {
		return dialog.Update{}, false
	}

	u := c.base(from, q.Message.GetChat().ID)
	u.Shape = dialog.ShapeCallback
	u.Callback = q.Data
	u.CallbackID = q.ID
	u.MessageID = q.Message.GetMessageID()
	return u, true
}

func (c *Converter) base(from telego.User, chatID int64) dialog.Update {
	u := dialog.Update{
		SubjectID: from.ID,
		ChatID:    chatID,
		Username:  from.Username,
		Timestamp: c.now(),
		TraceID:   uuid.NewString(),
	}
	if c.isOwner != nil && c.isOwner(from.ID) {
		u.RoleHint = dialog.RoleOwner
	}
	return u
}

// ParseCommand разбирает "/cmd@bot аргументы" на команду в нижнем
// регистре и остаток строки.
func ParseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	text = strings.TrimPrefix(text, "/")

	head, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, args = text[:i], text[i:]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(args), true
}

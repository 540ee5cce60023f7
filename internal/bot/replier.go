package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"fair-bot/internal/dialog"
)

// API — подмножество методов Bot API, которым пользуется бот.
// *telego.Bot ему удовлетворяет.
type API interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}

// SendObserver считает неудачные вызовы Bot API.
type SendObserver interface {
	SendFailed(method string)
}

// Replier доставляет ответы диалога в Telegram, не превышая лимит
// исходящих запросов.
type Replier struct {
	api     API
	limiter *rate.Limiter
	obs     SendObserver
}

// NewReplier создаёт отправителя. perSecond <= 0 отключает ограничение.
func NewReplier(api API, perSecond float64, burst int, obs SendObserver) *Replier {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Replier{
		api:     api,
		limiter: rate.NewLimiter(limit, burst),
		obs:     obs,
	}
}

// Send отправляет или редактирует сообщение.
func (r *Replier) Send(ctx context.Context, reply dialog.Reply) error {
	if reply.EditMessageID != 0 {
		err := r.edit(ctx, reply)
		if err == nil || notModified(err) {
			return nil
		}
		// отредактировать не вышло (старое или удалённое сообщение) — шлём новое
		log.WithError(err).WithFields(log.Fields{
			"chat_id":    reply.ChatID,
			"message_id": reply.EditMessageID,
		}).Warn("Не удалось отредактировать сообщение")
		if reply.MarkupOnly {
			return nil
		}
	}
	return r.send(ctx, reply)
}

func (r *Replier) send(ctx context.Context, reply dialog.Reply) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	params := tu.Message(tu.ID(reply.ChatID), reply.Text)
	switch {
	case reply.Keyboard != nil && reply.Keyboard.Inline:
		params = params.WithReplyMarkup(InlineMarkup(reply.Keyboard))
	case reply.Keyboard != nil:
		params = params.WithReplyMarkup(ReplyMarkup(reply.Keyboard))
	case reply.RemoveKeyboard:
		params = params.WithReplyMarkup(tu.ReplyKeyboardRemove())
	}

	if _, err := r.api.SendMessage(ctx, params); err != nil {
		r.failed("sendMessage")
		return fmt.Errorf("sendMessage chat=%d: %w", reply.ChatID, err)
	}
	return nil
}

func (r *Replier) edit(ctx context.Context, reply dialog.Reply) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	var markup *telego.InlineKeyboardMarkup
	if reply.Keyboard != nil && reply.Keyboard.Inline {
		markup = InlineMarkup(reply.Keyboard)
	}

	if reply.MarkupOnly {
		_, err := r.api.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
			ChatID:      tu.ID(reply.ChatID),
			MessageID:   reply.EditMessageID,
			ReplyMarkup: markup,
		})
		if err != nil && !notModified(err) {
			r.failed("editMessageReplyMarkup")
		}
		return err
	}

	_, err := r.api.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(reply.ChatID),
		MessageID:   reply.EditMessageID,
		Text:        reply.Text,
		ReplyMarkup: markup,
	})
	if err != nil && !notModified(err) {
		r.failed("editMessageText")
	}
	return err
}

// AnswerCallback гасит «часики» на нажатой кнопке.
func (r *Replier) AnswerCallback(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	if err := r.api.AnswerCallbackQuery(ctx, tu.CallbackQuery(callbackID)); err != nil {
		r.failed("answerCallbackQuery")
		log.WithError(err).Debug("Не удалось ответить на callback")
	}
}

func (r *Replier) failed(method string) {
	if r.obs != nil {
		r.obs.SendFailed(method)
	}
}

// InlineMarkup строит кнопки под сообщением.
func InlineMarkup(kb *dialog.Keyboard) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
		}
		rows = append(rows, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(rows...)
}

// ReplyMarkup строит клавиатуру вместо поля ввода.
func ReplyMarkup(kb *dialog.Keyboard) *telego.ReplyKeyboardMarkup {
	rows := make([][]telego.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]telego.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.KeyboardButton(b.Text))
		}
		rows = append(rows, tu.KeyboardRow(buttons...))
	}
	return tu.Keyboard(rows...).WithResizeKeyboard()
}

// notModified — Telegram отказывает, если текст и кнопки не изменились.
func notModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// Package filters решает, какие апдейты Telegram вообще доходят до диалога.
package filters

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает только личные переписки с живыми пользователями.
// Групповые чаты и каналы бот не обслуживает.
type ChatFilter struct{}

func NewChatFilter() *ChatFilter {
	return &ChatFilter{}
}

// Allow проверяет чат и отправителя апдейта.
func (f *ChatFilter) Allow(chat telego.Chat, from *telego.User) bool {
	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   chat.ID,
		"chat_type": chat.Type,
	})

	if from == nil {
		logger.Debug("deny: нет отправителя (служебное сообщение?)")
		return false
	}
	if from.IsBot {
		logger.WithField("user_id", from.ID).Debug("deny: отправитель — бот")
		return false
	}
	if chat.Type != telego.ChatTypePrivate {
		logger.Debug("deny: не личный чат")
		return false
	}
	// в личке chat.ID совпадает с ID пользователя
	if chat.ID != from.ID {
		logger.WithField("user_id", from.ID).Warn("deny: chat_id не совпадает с отправителем")
		return false
	}
	return true
}

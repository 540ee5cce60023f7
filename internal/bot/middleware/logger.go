// Package middleware содержит промежуточные обработчики апдейтов:
// логирование, восстановление после паники и анти-флуд.
package middleware

import (
	log "github.com/sirupsen/logrus"

	"fair-bot/internal/dialog"
)

const maxLoggedText = 50

// LogUpdate логирует входящий апдейт.
// Записывает: trace, subject, chat, username, форму и начало текста.
func LogUpdate(u dialog.Update) {
	text := u.Text
	switch u.Shape {
	case dialog.ShapeCommand:
		text = "/" + u.Command
	case dialog.ShapeCallback:
		text = u.Callback
	}

	log.WithFields(log.Fields{
		"trace":    u.TraceID,
		"subject":  u.SubjectID,
		"chat":     u.ChatID,
		"username": u.Username,
		"shape":    u.Shape.String(),
		"text":     truncate(text, maxLoggedText),
	}).Debug("Входящий апдейт")
}

// truncate обрезает по символам, а не байтам: кириллица занимает два байта.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/dialog"
)

// Recover ловит панику обработчика апдейта. Вызывать только через defer.
func Recover(u dialog.Update) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": "panic_recovery",
			"trace":     u.TraceID,
			"subject":   u.SubjectID,
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
	}
}

// Package main — точка входа бота честной ярмарки.
// Команды: run (бот + служебный HTTP + cron), migrate, hash-password.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	setupLogging()

	if err := NewRootCommand().Execute(); err != nil {
		log.WithError(err).Error("Команда завершилась с ошибкой")
		os.Exit(1)
	}
}

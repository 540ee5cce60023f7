// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки пароля менеджеров
var (
	// ErrEmptyPassword — пустой пароль
	ErrEmptyPassword = errors.New("пароль не может быть пустым")
	// ErrBadHashFormat — хеш не в формате $argon2id$v=19$m=..,t=..,p=..$salt$hash
	ErrBadHashFormat = errors.New("некорректный формат хеша Argon2id")
)

// Ошибки разбора команд владельца
var (
	// ErrBadArgs — аргументы команды не разобраны
	ErrBadArgs = errors.New("некорректные аргументы команды")
	// ErrBadBool — не удалось распознать логическое значение
	ErrBadBool = errors.New("ожидалось да/нет")
)

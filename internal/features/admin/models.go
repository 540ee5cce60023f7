// Package admin реализует команды владельца бота: сброс пользователей,
// создание локаций и магазинов, управление паролем менеджеров.
// models.go описывает разобранные аргументы команд.
package admin

// LocationArgs — аргументы /add_location.
type LocationArgs struct {
	Name      string
	MaxReward int64
	Onetime   bool
}

// ShopArgs — аргументы /add_shop.
type ShopArgs struct {
	LocationID int64
	Name       string
}

// ResetArgs — аргументы /reset. Без аргумента владелец сбрасывает себя.
type ResetArgs struct {
	SubjectID int64
	Self      bool
}

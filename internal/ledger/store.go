package ledger

import "context"

// Repository — построчные операции над таблицами ledger.
// Реализация (internal/db) работает либо поверх пула, либо внутри транзакции.
//
// Соглашения:
//   - "не найдено" — (nil, nil), а не ошибка;
//   - изменяющие методы возвращают bool "строка затронута";
//   - любая ошибка — сбой хранилища.
type Repository interface {
	// Пользователи
	InsertUser(ctx context.Context, u NewUser, role string) (int64, bool, error)
	UserBySubject(ctx context.Context, subjectID int64) (*User, error)
	IsNameTaken(ctx context.Context, name string) (bool, error)
	SoftDeleteUser(ctx context.Context, userID int64) (bool, error)

	// Игроки
	InsertPlayer(ctx context.Context, userID int64) (int64, bool, error)
	PlayerByID(ctx context.Context, playerID int64) (*Player, error)
	PlayerBySubject(ctx context.Context, subjectID int64) (*Player, error)
	ListPlayers(ctx context.Context, offset, limit int) ([]Player, error)
	CountPlayers(ctx context.Context) (int64, error)
	// AdjustBalance — единственный способ изменить баланс: условный UPDATE,
	// который не затрагивает строку, если итог стал бы отрицательным
	// или владелец счёта удалён.
	AdjustBalance(ctx context.Context, playerID, delta int64) (bool, error)

	// Менеджеры
	InsertManager(ctx context.Context, userID int64) (int64, bool, error)
	ManagerByID(ctx context.Context, managerID int64) (*Manager, error)
	ManagerBySubject(ctx context.Context, subjectID int64) (*Manager, error)
	UpdateManagerLocation(ctx context.Context, managerID int64, locationID *int64) (bool, error)

	// Локации и магазины
	InsertLocation(ctx context.Context, name string, maxReward int64, onetime bool) (int64, bool, error)
	LocationByID(ctx context.Context, locationID int64) (*Location, error)
	LocationByName(ctx context.Context, name string) (*Location, error)
	ListLocations(ctx context.Context, offset, limit int, activeOnly bool) ([]Location, error)
	CountLocations(ctx context.Context, activeOnly bool) (int64, error)
	SetLocationPaused(ctx context.Context, locationID int64, paused bool) (bool, error)
	// RefreshLocationActivity — единственное место, где пишется is_active.
	RefreshLocationActivity(ctx context.Context, locationID int64) error
	RefreshAllLocations(ctx context.Context) (int64, error)
	InsertShop(ctx context.Context, locationID int64, name string) (int64, bool, error)
	ShopByLocation(ctx context.Context, locationID int64) (*Shop, error)

	// Очереди
	InsertQueueEntry(ctx context.Context, playerID, locationID int64) (bool, error)
	DeleteQueueEntry(ctx context.Context, playerID int64) (bool, error)
	DeleteQueueEntryAt(ctx context.Context, playerID, locationID int64) (bool, error)
	QueueStatus(ctx context.Context, playerID int64) (*QueueStatus, error)
	ListQueue(ctx context.Context, locationID int64, offset, limit int) ([]Player, error)
	CountQueue(ctx context.Context, locationID int64) (int64, error)
	MarkFinished(ctx context.Context, playerID, locationID int64) error

	// Чёрный список менеджеров
	InsertBlacklist(ctx context.Context, subjectID int64) (bool, error)
	IsBlacklisted(ctx context.Context, subjectID int64) (bool, error)
	DeleteBlacklist(ctx context.Context, subjectID int64) (bool, error)

	// Аудит
	InsertTransferRecord(ctx context.Context, r TransferRecord) error
	InsertRewardRecord(ctx context.Context, r RewardRecord) error
	InsertPurchaseRecord(ctx context.Context, r PurchaseRecord) error
	InsertAdjustmentRecord(ctx context.Context, r AdjustmentRecord) error
}

// Store — граница хранилища: чтения вне транзакции и WithTx для изменений.
// WithTx фиксирует транзакцию, только если fn вернула nil.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	Ping(ctx context.Context) error
}

// Observer получает исходы операций (метрики). Может быть nil.
type Observer interface {
	LedgerOp(op, outcome string)
	AuditFailed(kind string)
}

// Package ledger — ядро экономики ярмарки: балансы игроков, очереди на локации,
// станции менеджеров и журнал операций.
// models.go описывает сущности, которыми оперирует ledger.
package ledger

// Роли пользователей
const (
	RolePlayer  = "player"
	RoleManager = "manager"
)

// User — зарегистрированный участник (игрок или менеджер).
type User struct {
	ID        int64
	SubjectID int64 // Telegram ID
	ChatID    int64
	Username  string
	Name      string
	Role      string
}

// NewUser — данные для регистрации.
type NewUser struct {
	SubjectID int64
	ChatID    int64
	Username  string
	Name      string
}

// Player — счёт игрока. Баланс никогда не бывает отрицательным.
type Player struct {
	ID        int64
	UserID    int64
	SubjectID int64
	ChatID    int64
	Name      string
	Balance   int64
}

// Manager — менеджер локации. LocationID == nil — не стоит ни на какой локации.
type Manager struct {
	ID         int64
	UserID     int64
	SubjectID  int64
	ChatID     int64
	Name       string
	LocationID *int64
}

// Location — станция ярмарки.
// IsActive выводится из IsPaused и наличия менеджера (см. RefreshLocationActivity).
type Location struct {
	ID        int64
	Name      string
	MaxReward int64
	IsOnetime bool
	IsPaused  bool
	IsActive  bool
	QueueLen  int64
}

// Shop — магазин при локации: менеджер такой локации продаёт, а не награждает.
type Shop struct {
	ID         int64
	LocationID int64
	Name       string
}

// QueueStatus — положение игрока в очереди.
type QueueStatus struct {
	Location Location
	Position int64 // с единицы
	Length   int64
}

// Записи аудита

// TransferRecord — перевод между игроками.
type TransferRecord struct {
	SenderID    int64
	RecipientID int64
	Amount      int64
}

// RewardRecord — награда игроку от менеджера на локации.
type RewardRecord struct {
	RecipientID int64
	LocationID  int64
	ManagerID   int64
	Amount      int64
}

// PurchaseRecord — покупка в магазине.
type PurchaseRecord struct {
	CustomerID int64
	ShopID     int64
	ManagerID  int64
	Amount     int64
}

// AdjustmentRecord — ручное начисление/списание менеджером (знак в Amount).
type AdjustmentRecord struct {
	PlayerID  int64
	ManagerID int64
	Amount    int64
}

// RegisterOutcome — результат регистрации.
type RegisterOutcome int

const (
	Registered RegisterOutcome = iota
	NameTaken
	AlreadyRegistered
)

func (o RegisterOutcome) String() string {
	switch o {
	case Registered:
		return "registered"
	case NameTaken:
		return "name_taken"
	case AlreadyRegistered:
		return "already_registered"
	}
	return "unknown"
}

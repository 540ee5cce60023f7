// Package texts — тексты сообщений и кнопок бота.
// Встроенный default.yaml можно переопределить файлом MESSAGES_PATH:
// файл накладывается поверх встроенных значений, неизвестные ключи — ошибка.
package texts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var ErrDuplicateButton = errors.New("одинаковый текст у разных кнопок")

// Texts — все тексты бота.
type Texts struct {
	Messages Messages `yaml:"messages"`
	Buttons  Buttons  `yaml:"buttons"`
}

// Messages — тексты сообщений. Поля с %s/%d — шаблоны для fmt.Sprintf.
type Messages struct {
	Welcome          string `yaml:"welcome"`
	UnregisteredHelp string `yaml:"unregistered_help"`
	PlayerHelp       string `yaml:"player_help"`
	ManagerHelp      string `yaml:"manager_help"`
	OwnerHelp        string `yaml:"owner_help"`
	AntiFlood        string `yaml:"anti_flood"`
	UnknownError     string `yaml:"unknown_error"`
	NothingChosen    string `yaml:"nothing_chosen"`
	PlayerNotFound   string `yaml:"player_not_found"`
	EnterNumber      string `yaml:"enter_number"`

	// Регистрация
	GetPlayerName                string `yaml:"get_player_name"`
	InvalidPlayerName            string `yaml:"invalid_player_name"`
	PlayerNameTaken              string `yaml:"player_name_taken"`
	PlayerRegistered             string `yaml:"player_registered"`
	AlreadyRegistered            string `yaml:"already_registered"`
	ManagerRegistrationForbidden string `yaml:"manager_registration_forbidden"`
	ManagerRegistrationDisabled  string `yaml:"manager_registration_disabled"`
	GetManagerPassword           string `yaml:"get_manager_password"`
	WrongManagerPassword         string `yaml:"wrong_manager_password"`
	GetManagerName               string `yaml:"get_manager_name"`
	InvalidManagerName           string `yaml:"invalid_manager_name"`
	ManagerNameTaken             string `yaml:"manager_name_taken"`
	ManagerRegistered            string `yaml:"manager_registered"`

	// Игрок
	PlayerBalance       string `yaml:"player_balance"`
	ChooseQueueLocation string `yaml:"choose_queue_location"`
	QueueLocationClosed string `yaml:"queue_location_closed"`
	QueueJoined         string `yaml:"queue_joined"`
	QueueJoinFailed     string `yaml:"queue_join_failed"`
	PlayerQueue         string `yaml:"player_queue"`
	NotInQueue          string `yaml:"not_in_queue"`
	LeftQueue           string `yaml:"left_queue"`
	MainMenu            string `yaml:"main_menu"`

	// Переводы
	ChooseTransferRecipient string `yaml:"choose_transfer_recipient"`
	TransferCancelled       string `yaml:"transfer_cancelled"`
	ChooseTransferAmount    string `yaml:"choose_transfer_amount"`
	TransferSuccess         string `yaml:"transfer_success"`
	TransferReceived        string `yaml:"transfer_received"`
	TransferFailed          string `yaml:"transfer_failed"`
	SelfTransfer            string `yaml:"self_transfer"`

	// Менеджер
	AllPlayers              string `yaml:"all_players"`
	AllLocations            string `yaml:"all_locations"`
	ListClosed              string `yaml:"list_closed"`
	ChooseAddRecipient      string `yaml:"choose_add_recipient"`
	ChooseAddAmount         string `yaml:"choose_add_amount"`
	AddSuccess              string `yaml:"add_success"`
	ChooseSubtractRecipient string `yaml:"choose_subtract_recipient"`
	ChooseSubtractAmount    string `yaml:"choose_subtract_amount"`
	SubtractSuccess         string `yaml:"subtract_success"`
	SubtractFailed          string `yaml:"subtract_failed"`
	AdjustCancelled         string `yaml:"adjust_cancelled"`
	BalanceChangedNotice    string `yaml:"balance_changed_notice"`
	ChooseLocation          string `yaml:"choose_location"`
	ChooseLocationCancelled string `yaml:"choose_location_cancelled"`
	LocationChosen          string `yaml:"location_chosen"`
	LocationChangeFailed    string `yaml:"location_change_failed"`
	MyLocation              string `yaml:"my_location"`
	MyLocationShop          string `yaml:"my_location_shop"`
	LocationStatusActive    string `yaml:"location_status_active"`
	LocationStatusPaused    string `yaml:"location_status_paused"`
	LocationStatusIdle      string `yaml:"location_status_idle"`
	NotOnLocation           string `yaml:"not_on_location"`
	LeftLocation            string `yaml:"left_location"`
	LocationPaused          string `yaml:"location_paused"`
	LocationUnpaused        string `yaml:"location_unpaused"`
	MyLocationQueue         string `yaml:"my_location_queue"`
	MyLocationQueueClosed   string `yaml:"my_location_queue_closed"`
	PlayerChosen            string `yaml:"player_chosen"`
	ChooseRewardAmount      string `yaml:"choose_reward_amount"`
	RewardInvalid           string `yaml:"reward_invalid"`
	RewardSuccess           string `yaml:"reward_success"`
	RewardReceived          string `yaml:"reward_received"`
	ServeCancelled          string `yaml:"serve_cancelled"`
	ChoosePurchaseAmount    string `yaml:"choose_purchase_amount"`
	PurchaseSuccess         string `yaml:"purchase_success"`
	PurchaseFailed          string `yaml:"purchase_failed"`
	PurchaseNotice          string `yaml:"purchase_notice"`
	PurchaseNoShop          string `yaml:"purchase_no_shop"`
	RewardAtShop            string `yaml:"reward_at_shop"`
	PlayerLeftQueue         string `yaml:"player_left_queue"`

	// Владелец
	ResetUsage           string `yaml:"reset_usage"`
	ResetDone            string `yaml:"reset_done"`
	ResetNothing         string `yaml:"reset_nothing"`
	AddLocationUsage     string `yaml:"add_location_usage"`
	LocationAdded        string `yaml:"location_added"`
	LocationAddFailed    string `yaml:"location_add_failed"`
	AddShopUsage         string `yaml:"add_shop_usage"`
	ShopAdded            string `yaml:"shop_added"`
	ShopAddFailed        string `yaml:"shop_add_failed"`
	SetPasswordUsage     string `yaml:"set_password_usage"`
	ManagerPasswordSet   string `yaml:"manager_password_set"`
	ManagerPasswordReset string `yaml:"manager_password_reset"`
	OwnerLocations       string `yaml:"owner_locations"`
	OwnerLocationsEmpty  string `yaml:"owner_locations_empty"`
}

// Buttons — тексты кнопок. Reply-кнопки маршрутизируются по точному тексту,
// поэтому тексты должны быть уникальны.
type Buttons struct {
	RegPlayer        string `yaml:"reg_player"`
	RegManager       string `yaml:"reg_manager"`
	NewQueue         string `yaml:"new_queue"`
	MyBalance        string `yaml:"my_balance"`
	TransferMoney    string `yaml:"transfer_money"`
	MyQueue          string `yaml:"my_queue"`
	LeaveQueue       string `yaml:"leave_queue"`
	ListAllPlayers   string `yaml:"list_all_players"`
	ListAllLocations string `yaml:"list_all_locations"`
	AddBalance       string `yaml:"add_balance"`
	SubtractBalance  string `yaml:"subtract_balance"`
	ChooseLocation   string `yaml:"choose_location"`
	RewardPlayer     string `yaml:"reward_player"`
	Purchase         string `yaml:"purchase"`
	MyLocation       string `yaml:"my_location"`
	MyLocationQueue  string `yaml:"my_location_queue"`
	LeaveLocation    string `yaml:"leave_location"`
	PauseLocation    string `yaml:"pause_location"`
	UnpauseLocation  string `yaml:"unpause_location"`
	PrevPage         string `yaml:"prev_page"`
	NextPage         string `yaml:"next_page"`
	Help             string `yaml:"help"`
	Cancel           string `yaml:"cancel"`
}

func (b Buttons) all() map[string]string {
	return map[string]string{
		"reg_player":         b.RegPlayer,
		"reg_manager":        b.RegManager,
		"new_queue":          b.NewQueue,
		"my_balance":         b.MyBalance,
		"transfer_money":     b.TransferMoney,
		"my_queue":           b.MyQueue,
		"leave_queue":        b.LeaveQueue,
		"list_all_players":   b.ListAllPlayers,
		"list_all_locations": b.ListAllLocations,
		"add_balance":        b.AddBalance,
		"subtract_balance":   b.SubtractBalance,
		"choose_location":    b.ChooseLocation,
		"reward_player":      b.RewardPlayer,
		"purchase":           b.Purchase,
		"my_location":        b.MyLocation,
		"my_location_queue":  b.MyLocationQueue,
		"leave_location":     b.LeaveLocation,
		"pause_location":     b.PauseLocation,
		"unpause_location":   b.UnpauseLocation,
		"prev_page":          b.PrevPage,
		"next_page":          b.NextPage,
		"help":               b.Help,
		"cancel":             b.Cancel,
	}
}

// Default — встроенные тексты.
func Default() (*Texts, error) {
	t := &Texts{}
	if err := decode(defaultYAML, t); err != nil {
		return nil, fmt.Errorf("встроенные тексты: %w", err)
	}
	return t, t.Validate()
}

// Load читает встроенные тексты и накладывает поверх файл path (если задан).
func Load(path string) (*Texts, error) {
	t, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}
	if err := decode(raw, t); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	return t, t.Validate()
}

func decode(raw []byte, t *Texts) error {
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	return dec.Decode(t)
}

// Validate проверяет, что у кнопок есть текст и он не повторяется.
func (t *Texts) Validate() error {
	seen := make(map[string]string)
	for key, text := range t.Buttons.all() {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("пустой текст кнопки %s", key)
		}
		if other, ok := seen[text]; ok {
			return fmt.Errorf("%w: %s и %s (%q)", ErrDuplicateButton, other, key, text)
		}
		seen[text] = key
	}
	if t.Messages.UnknownError == "" {
		return errors.New("пустой текст unknown_error")
	}
	return nil
}

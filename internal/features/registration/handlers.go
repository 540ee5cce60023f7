// Package registration — вход в бота: /start, помощь, регистрация игроков
// и менеджеров (пароль, не больше трёх попыток, затем чёрный список).
package registration

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/dialog"
	"fair-bot/internal/features/flow"
	"fair-bot/internal/keyboards"
	"fair-bot/internal/ledger"
)

// MaxPasswordRetries — после стольких неверных паролей subject попадает в чёрный список.
const MaxPasswordRetries = 3

// ManagerPassword проверяет пароль менеджеров.
// Enabled() == false — пароль не задан, регистрация менеджеров выключена.
type ManagerPassword interface {
	Enabled() bool
	Verify(password string) bool
}

// Handler обрабатывает регистрацию.
type Handler struct {
	*flow.Deps
	password ManagerPassword
}

// NewHandler создаёт обработчик регистрации.
func NewHandler(deps *flow.Deps, password ManagerPassword) *Handler {
	return &Handler{Deps: deps, password: password}
}

var unregistered = []dialog.State{
	dialog.NoState,
	dialog.UnregStarted,
	dialog.UnregPlayerName,
	dialog.UnregManagerPassword,
	dialog.UnregManagerName,
}

// Routes — маршруты регистрации. /start и помощь работают в любом состоянии,
// поэтому их стоит регистрировать раньше остальных сценариев.
func (h *Handler) Routes() []dialog.Route {
	return []dialog.Route{
		{Name: "start", Shape: dialog.ShapeCommand, Command: "start", Handle: h.start},
		{Name: "help_command", Shape: dialog.ShapeCommand, Command: "help", Handle: h.help},
		{Name: "help_button", Shape: dialog.ShapeText, Text: h.Btn().Help, Handle: h.help},
		{Name: "help_callback", Shape: dialog.ShapeCallback, Callback: keyboards.CallbackHelp, Handle: h.help},

		{
			Name:     "reg_player",
			States:   []dialog.State{dialog.NoState, dialog.UnregStarted},
			Shape:    dialog.ShapeCallback,
			Callback: keyboards.CallbackRegPlayer,
			Handle:   h.regPlayer,
		},
		// Чёрный список проверяется на уровне маршрутов: такой subject
		// не доходит до ввода пароля.
		{
			Name:     "reg_manager_blacklisted",
			States:   unregistered,
			Shape:    dialog.ShapeCallback,
			Callback: keyboards.CallbackRegManager,
			Guard:    h.blacklisted,
			Handle:   h.forbidden,
		},
		{
			Name:   "reg_manager_password_blacklisted",
			States: []dialog.State{dialog.UnregManagerPassword},
			Shape:  dialog.ShapeText,
			Guard:  h.blacklisted,
			Handle: h.forbidden,
		},
		{
			Name:     "reg_manager",
			States:   []dialog.State{dialog.NoState, dialog.UnregStarted},
			Shape:    dialog.ShapeCallback,
			Callback: keyboards.CallbackRegManager,
			Handle:   h.regManager,
		},
		{
			Name:   "reg_manager_password",
			States: []dialog.State{dialog.UnregManagerPassword},
			Shape:  dialog.ShapeText,
			Handle: h.managerPassword,
		},

		{
			Name:    "reg_player_name",
			States:  []dialog.State{dialog.UnregPlayerName},
			Shape:   dialog.ShapeText,
			Input:   dialog.InputCharset,
			Charset: PlayerNameRune,
			Handle:  h.playerName,
		},
		{
			Name:   "reg_player_name_invalid",
			States: []dialog.State{dialog.UnregPlayerName},
			Shape:  dialog.ShapeText,
			Handle: h.reply(func() string { return h.Msg().InvalidPlayerName }),
		},
		{
			Name:    "reg_manager_name",
			States:  []dialog.State{dialog.UnregManagerName},
			Shape:   dialog.ShapeText,
			Input:   dialog.InputCharset,
			Charset: ManagerNameRune,
			Handle:  h.managerName,
		},
		{
			Name:   "reg_manager_name_invalid",
			States: []dialog.State{dialog.UnregManagerName},
			Shape:  dialog.ShapeText,
			Handle: h.reply(func() string { return h.Msg().InvalidManagerName }),
		},

		// Состояние потеряно (истекло или хранилище в памяти перезапущено),
		// а пользователь уже зарегистрирован: возвращаем его меню.
		{
			Name:   "restore_menu",
			States: []dialog.State{dialog.NoState},
			Guard:  h.registered,
			Handle: h.restore,
		},
	}
}

// start — /start. Зарегистрированный возвращается в своё меню,
// остальные видят выбор роли. Счётчик попыток пароля не сбрасывается.
func (h *Handler) start(ctx context.Context, c *dialog.Call) error {
	u, err := h.Ledger.UserBySubject(ctx, c.Update.SubjectID)
	if err != nil {
		return err
	}
	if u != nil {
		return h.ToMainMenu(ctx, c, h.Msg().MainMenu)
	}

	c.SetState(dialog.UnregStarted)
	c.ReplyRemoveKeyboard(h.Msg().Welcome)
	c.Reply(h.Msg().UnregisteredHelp, h.Keyboards.Registration())
	return nil
}

func (h *Handler) help(ctx context.Context, c *dialog.Call) error {
	text := h.Msg().UnregisteredHelp
	var kb *dialog.Keyboard

	switch c.State.Group() {
	case dialog.GroupPlayer:
		text = h.Msg().PlayerHelp
	case dialog.GroupManager:
		text = h.Msg().ManagerHelp
	default:
		kb = h.Keyboards.Registration()
	}
	if c.Update.IsOwner() {
		text += "\n\n" + h.Msg().OwnerHelp
	}
	c.Reply(text, kb)
	return nil
}

func (h *Handler) regPlayer(ctx context.Context, c *dialog.Call) error {
	if registered, err := h.alreadyRegistered(ctx, c); err != nil || registered {
		return err
	}
	c.SetState(dialog.UnregPlayerName)
	c.Edit(h.Msg().GetPlayerName, nil)
	return nil
}

func (h *Handler) regManager(ctx context.Context, c *dialog.Call) error {
	if registered, err := h.alreadyRegistered(ctx, c); err != nil || registered {
		return err
	}
	if !h.password.Enabled() {
		c.Reply(h.Msg().ManagerRegistrationDisabled, nil)
		return nil
	}
	c.SetState(dialog.UnregManagerPassword)
	c.Edit(h.Msg().GetManagerPassword, nil)
	return nil
}

func (h *Handler) managerPassword(ctx context.Context, c *dialog.Call) error {
	if !h.password.Enabled() {
		c.SetState(dialog.UnregStarted)
		c.Reply(h.Msg().ManagerRegistrationDisabled, h.Keyboards.Registration())
		return nil
	}
	if h.password.Verify(c.Update.Text) {
		c.Del(dialog.KeyPasswordRetries)
		c.SetState(dialog.UnregManagerName)
		c.Reply(h.Msg().GetManagerName, nil)
		return nil
	}

	retries, _ := c.Int64(dialog.KeyPasswordRetries)
	retries++
	logger := log.WithFields(log.Fields{
		"subject": c.Update.SubjectID,
		"retries": retries,
	})
	if retries < MaxPasswordRetries {
		logger.Warn("Неверный пароль менеджера")
		c.SetInt64(dialog.KeyPasswordRetries, retries)
		c.Reply(fmt.Sprintf(h.Msg().WrongManagerPassword, MaxPasswordRetries-retries), nil)
		return nil
	}

	if _, err := h.Ledger.Blacklist(ctx, c.Update.SubjectID); err != nil {
		return err
	}
	logger.Warn("Subject внесён в чёрный список менеджеров")
	c.Del(dialog.KeyPasswordRetries)
	c.SetState(dialog.UnregStarted)
	c.Reply(h.Msg().ManagerRegistrationForbidden, h.Keyboards.Registration())
	return nil
}

func (h *Handler) playerName(ctx context.Context, c *dialog.Call) error {
	name, ok := NormalizeName(c.Update.Text, PlayerNameRune)
	if !ok {
		c.Reply(h.Msg().InvalidPlayerName, nil)
		return nil
	}
	outcome, err := h.register(ctx, c, name, h.Ledger.RegisterPlayer)
	if err != nil || outcome != ledger.Registered {
		return err
	}

	p, err := h.Ledger.PlayerBySubject(ctx, c.Update.SubjectID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("игрок %d не найден сразу после регистрации", c.Update.SubjectID)
	}
	return h.ToPlayerMenu(ctx, c, p.ID, fmt.Sprintf(h.Msg().PlayerRegistered, name))
}

func (h *Handler) managerName(ctx context.Context, c *dialog.Call) error {
	name, ok := NormalizeName(c.Update.Text, ManagerNameRune)
	if !ok {
		c.Reply(h.Msg().InvalidManagerName, nil)
		return nil
	}
	outcome, err := h.register(ctx, c, name, h.Ledger.RegisterManager)
	if err != nil || outcome != ledger.Registered {
		return err
	}
	return h.ToManagerMenu(ctx, c, fmt.Sprintf(h.Msg().ManagerRegistered, name))
}

// register — общий шаг регистрации. Проверка имени заранее нужна только
// для быстрого ответа: окончательно решает уникальный индекс при вставке.
// На всё, кроме Registered, уже отправлен ответ.
func (h *Handler) register(ctx context.Context, c *dialog.Call, name string,
	do func(context.Context, ledger.NewUser) (ledger.RegisterOutcome, error)) (ledger.RegisterOutcome, error) {
	taken := h.Msg().PlayerNameTaken
	if c.State == dialog.UnregManagerName {
		taken = h.Msg().ManagerNameTaken
	}

	available, err := h.Ledger.IsNameAvailable(ctx, name)
	if err != nil {
		return ledger.NameTaken, err
	}
	if !available {
		c.Reply(taken, nil)
		return ledger.NameTaken, nil
	}

	outcome, err := do(ctx, ledger.NewUser{
		SubjectID: c.Update.SubjectID,
		ChatID:    c.Update.ChatID,
		Username:  c.Update.Username,
		Name:      name,
	})
	if err != nil {
		return outcome, err
	}
	switch outcome {
	case ledger.NameTaken:
		c.Reply(taken, nil)
	case ledger.AlreadyRegistered:
		return outcome, h.ToMainMenu(ctx, c, h.Msg().AlreadyRegistered)
	}
	return outcome, nil
}

// alreadyRegistered отвечает зарегистрированному и возвращает его в меню.
func (h *Handler) alreadyRegistered(ctx context.Context, c *dialog.Call) (bool, error) {
	u, err := h.Ledger.UserBySubject(ctx, c.Update.SubjectID)
	if err != nil || u == nil {
		return false, err
	}
	return true, h.ToMainMenu(ctx, c, h.Msg().AlreadyRegistered)
}

func (h *Handler) blacklisted(ctx context.Context, c *dialog.Call) (bool, error) {
	return h.Ledger.IsBlacklisted(ctx, c.Update.SubjectID)
}

func (h *Handler) forbidden(_ context.Context, c *dialog.Call) error {
	c.Del(dialog.KeyPasswordRetries)
	c.SetState(dialog.UnregStarted)
	c.Reply(h.Msg().ManagerRegistrationForbidden, h.Keyboards.Registration())
	return nil
}

func (h *Handler) registered(ctx context.Context, c *dialog.Call) (bool, error) {
	u, err := h.Ledger.UserBySubject(ctx, c.Update.SubjectID)
	return u != nil, err
}

func (h *Handler) restore(ctx context.Context, c *dialog.Call) error {
	log.WithField("subject", c.Update.SubjectID).Debug("Восстановлено меню после потери состояния")
	return h.ToMainMenu(ctx, c, h.Msg().MainMenu)
}

func (h *Handler) reply(text func() string) dialog.Handler {
	return func(_ context.Context, c *dialog.Call) error {
		c.Reply(text(), nil)
		return nil
	}
}

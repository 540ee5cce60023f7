package registration_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-bot/internal/dialog"
	"fair-bot/internal/features/featuretest"
	"fair-bot/internal/features/registration"
	"fair-bot/internal/keyboards"
)

type fakePassword struct {
	password string
}

func (p *fakePassword) Enabled() bool { return p.password != "" }
func (p *fakePassword) Verify(password string) bool { return p.password != "" && password == p.password }

func setup(t *testing.T, password string) *featuretest.Harness {
	t.Helper()
	h := featuretest.New(t, 5)
	h.Register(registration.NewHandler(h.Deps, &fakePassword{password: password}).Routes()...)
	return h
}

func TestStart(t *testing.T) {
	h := setup(t, "")
	subject := h.Subject()

	replies := h.Command(subject, "start", "")
	require.Len(t, replies, 2)
	assert.Equal(t, h.Texts.Messages.Welcome, replies[0].Text)
	assert.True(t, replies[0].RemoveKeyboard)
	require.NotNil(t, replies[1].Keyboard)
	assert.Equal(t, keyboards.CallbackRegPlayer, replies[1].Keyboard.Rows[0][0].Data)
	assert.Equal(t, dialog.UnregStarted, h.State(subject))
}

func TestRegisterPlayer(t *testing.T) {
	h := setup(t, "")
	msg := h.Texts.Messages
	subject := h.Subject()

	h.Command(subject, "start", "")
	replies := h.Callback(subject, keyboards.CallbackRegPlayer)
	require.Len(t, replies, 1)
	assert.Equal(t, msg.GetPlayerName, replies[0].Text)
	assert.Equal(t, dialog.UnregPlayerName, h.State(subject))

	t.Run("invalid characters", func(t *testing.T) {
		replies := h.Text(subject, "Вася!")
		require.Len(t, replies, 1)
		assert.Equal(t, msg.InvalidPlayerName, replies[0].Text)
		assert.Equal(t, dialog.UnregPlayerName, h.State(subject))
	})

	t.Run("too long", func(t *testing.T) {
		replies := h.Text(subject, strings.Repeat("я", registration.MaxNameLen+1))
		require.Len(t, replies, 1)
		assert.Equal(t, msg.InvalidPlayerName, replies[0].Text)
	})

	replies = h.Text(subject, "  Вася  ")
	require.Len(t, replies, 1)
	assert.Equal(t, fmt.Sprintf(msg.PlayerRegistered, "Вася"), replies[0].Text)
	assert.Equal(t, dialog.PlayerMainMenu, h.State(subject))

	p, err := h.Ledger.PlayerBySubject(h.Ctx, subject)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Вася", p.Name)
	assert.Equal(t, int64(0), p.Balance)
}

func TestPlayerNameTaken(t *testing.T) {
	h := setup(t, "")
	h.Player("Вася", 0)

	subject := h.Subject()
	h.Command(subject, "start", "")
	h.Callback(subject, keyboards.CallbackRegPlayer)

	replies := h.Text(subject, "Вася")
	require.Len(t, replies, 1)
	assert.Equal(t, h.Texts.Messages.PlayerNameTaken, replies[0].Text)
	assert.Equal(t, dialog.UnregPlayerName, h.State(subject))
}

func TestRegisterManager(t *testing.T) {
	h := setup(t, "secret")
	msg := h.Texts.Messages
	subject := h.Subject()

	h.Command(subject, "start", "")
	h.Callback(subject, keyboards.CallbackRegManager)
	assert.Equal(t, dialog.UnregManagerPassword, h.State(subject))

	replies := h.Text(subject, "wrong")
	require.Len(t, replies, 1)
	assert.Equal(t, fmt.Sprintf(msg.WrongManagerPassword, 2), replies[0].Text)

	replies = h.Text(subject, "secret")
	require.Len(t, replies, 1)
	assert.Equal(t, msg.GetManagerName, replies[0].Text)
	assert.Equal(t, dialog.UnregManagerName, h.State(subject))
	_, hasRetries := h.Payload(subject)[dialog.KeyPasswordRetries]
	assert.False(t, hasRetries, "верный пароль сбрасывает счётчик")

	replies = h.Text(subject, "Ведущий_1")
	assert.Equal(t, msg.InvalidManagerName, featuretest.Last(t, replies).Text)

	replies = h.Text(subject, "Ведущий")
	assert.Equal(t, fmt.Sprintf(msg.ManagerRegistered, "Ведущий"), featuretest.Last(t, replies).Text)
	assert.Equal(t, dialog.ManagerMainMenu, h.State(subject))

	m, err := h.Ledger.ManagerBySubject(h.Ctx, subject)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Nil(t, m.LocationID)
}

func TestManagerBlacklistAfterRetries(t *testing.T) {
	h := setup(t, "secret")
	msg := h.Texts.Messages
	subject := h.Subject()

	h.Command(subject, "start", "")
	h.Callback(subject, keyboards.CallbackRegManager)
	for i := 1; i < registration.MaxPasswordRetries; i++ {
		replies := h.Text(subject, "wrong")
		assert.Equal(t, fmt.Sprintf(msg.WrongManagerPassword, registration.MaxPasswordRetries-i), featuretest.Last(t, replies).Text)
	}

	replies := h.Text(subject, "wrong")
	assert.Equal(t, msg.ManagerRegistrationForbidden, featuretest.Last(t, replies).Text)
	assert.Equal(t, dialog.UnregStarted, h.State(subject))

	blacklisted, err := h.Ledger.IsBlacklisted(h.Ctx, subject)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	// Даже верный пароль больше не поможет: до ввода пароля не дойти
	replies = h.Callback(subject, keyboards.CallbackRegManager)
	assert.Equal(t, msg.ManagerRegistrationForbidden, featuretest.Last(t, replies).Text)
	assert.Equal(t, dialog.UnregStarted, h.State(subject))

	// Игроком стать можно
	h.Callback(subject, keyboards.CallbackRegPlayer)
	assert.Equal(t, dialog.UnregPlayerName, h.State(subject))
}

func TestManagerRegistrationDisabled(t *testing.T) {
	h := setup(t, "")
	subject := h.Subject()

	h.Command(subject, "start", "")
	replies := h.Callback(subject, keyboards.CallbackRegManager)
	require.Len(t, replies, 1)
	assert.Equal(t, h.Texts.Messages.ManagerRegistrationDisabled, replies[0].Text)
	assert.Equal(t, dialog.UnregStarted, h.State(subject))
}

func TestStartWhenRegistered(t *testing.T) {
	h := setup(t, "")
	subject, _ := h.Player("Вася", 0)

	replies := h.Command(subject, "start", "")
	require.Len(t, replies, 1)
	assert.Equal(t, h.Texts.Messages.MainMenu, replies[0].Text)
	require.NotNil(t, replies[0].Keyboard)
	assert.False(t, replies[0].Keyboard.Inline)
	assert.Equal(t, dialog.PlayerMainMenu, h.State(subject))

	replies = h.Callback(subject, keyboards.CallbackRegPlayer)
	assert.Empty(t, replies, "кнопки регистрации не работают в меню игрока")
}

func TestRestoreLostState(t *testing.T) {
	h := setup(t, "")
	subject, _ := h.Manager("Ведущий")
	require.NoError(t, h.States.Delete(h.Ctx, dialog.Key{SubjectID: subject, ChatID: subject}))

	replies := h.Text(subject, "что угодно")
	require.Len(t, replies, 1)
	assert.Equal(t, h.Texts.Messages.MainMenu, replies[0].Text)
	assert.Equal(t, dialog.ManagerMainMenu, h.State(subject))
}

func TestHelp(t *testing.T) {
	h := setup(t, "")
	msg := h.Texts.Messages

	player, _ := h.Player("Вася", 0)
	replies := h.Text(player, h.Texts.Buttons.Help)
	require.Len(t, replies, 1)
	assert.Equal(t, msg.PlayerHelp, replies[0].Text)

	owner, _ := h.Manager("Хозяин")
	h.Owners[owner] = true
	replies = h.Command(owner, "help", "")
	require.Len(t, replies, 1)
	assert.True(t, strings.HasPrefix(replies[0].Text, msg.ManagerHelp))
	assert.Contains(t, replies[0].Text, msg.OwnerHelp)

	stranger := h.Subject()
	replies = h.Callback(stranger, keyboards.CallbackHelp)
	require.Len(t, replies, 1)
	assert.Equal(t, msg.UnregisteredHelp, replies[0].Text)
	assert.NotNil(t, replies[0].Keyboard)
}

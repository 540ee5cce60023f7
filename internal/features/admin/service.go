// Package admin — service.go хранит пароль менеджеров (хеш Argon2id в памяти)
// и разбирает аргументы команд владельца.
package admin

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/common"
)

// Service хранит текущий хеш пароля менеджеров.
// Пустой хеш — регистрация менеджеров выключена.
type Service struct {
	mu   sync.RWMutex
	hash string
}

// NewService создаёт сервис с начальным хешем (MANAGER_PASSWORD_HASH, может быть пустым).
func NewService(initialHash string) (*Service, error) {
	if initialHash != "" {
		if err := common.ValidateHash(initialHash); err != nil {
			return nil, fmt.Errorf("MANAGER_PASSWORD_HASH: %w", err)
		}
	}
	return &Service{hash: initialHash}, nil
}

// Enabled — задан ли пароль менеджеров.
func (s *Service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hash != ""
}

// Verify проверяет пароль менеджера.
func (s *Service) Verify(password string) bool {
	s.mu.RLock()
	hash := s.hash
	s.mu.RUnlock()

	if hash == "" {
		return false
	}
	return common.VerifyPassword(password, hash)
}

// SetPassword задаёт новый пароль менеджеров.
func (s *Service) SetPassword(password string) error {
	hash, err := common.HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.hash = hash
	s.mu.Unlock()

	log.Info("Пароль менеджеров изменён")
	return nil
}

// ResetPassword выключает регистрацию менеджеров.
func (s *Service) ResetPassword() {
	s.mu.Lock()
	s.hash = ""
	s.mu.Unlock()

	log.Info("Пароль менеджеров сброшен")
}

// --- Разбор аргументов ---

// maxNameLen — ширина колонок name в locations и shops.
const maxNameLen = 128

// ParseLocationArgs разбирает "<название> <макс. награда> <одноразовая>".
// Последние два слова — число и флаг, всё перед ними — название (может содержать пробелы).
func ParseLocationArgs(args string) (LocationArgs, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return LocationArgs{}, fmt.Errorf("%w: нужно название, награда и флаг", common.ErrBadArgs)
	}

	n := len(fields)
	maxReward, err := strconv.ParseInt(fields[n-2], 10, 64)
	if err != nil || maxReward < 0 {
		return LocationArgs{}, fmt.Errorf("%w: награда %q", common.ErrBadArgs, fields[n-2])
	}
	onetime, err := common.ParseBool(fields[n-1])
	if err != nil {
		return LocationArgs{}, fmt.Errorf("%w: %w", common.ErrBadArgs, err)
	}

	name := strings.Join(fields[:n-2], " ")
	if utf8.RuneCountInString(name) > maxNameLen {
		return LocationArgs{}, fmt.Errorf("%w: название длиннее %d символов", common.ErrBadArgs, maxNameLen)
	}

	return LocationArgs{
		Name:      name,
		MaxReward: maxReward,
		Onetime:   onetime,
	}, nil
}

// ParseShopArgs разбирает "<id локации> <название магазина>".
func ParseShopArgs(args string) (ShopArgs, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return ShopArgs{}, fmt.Errorf("%w: нужен id локации и название", common.ErrBadArgs)
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return ShopArgs{}, fmt.Errorf("%w: id локации %q", common.ErrBadArgs, fields[0])
	}
	name := strings.Join(fields[1:], " ")
	if utf8.RuneCountInString(name) > maxNameLen {
		return ShopArgs{}, fmt.Errorf("%w: название длиннее %d символов", common.ErrBadArgs, maxNameLen)
	}
	return ShopArgs{LocationID: id, Name: name}, nil
}

// ParseResetArgs разбирает "[subject_id]".
func ParseResetArgs(args string) (ResetArgs, error) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		return ResetArgs{Self: true}, nil
	case 1:
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return ResetArgs{}, fmt.Errorf("%w: subject_id %q", common.ErrBadArgs, fields[0])
		}
		return ResetArgs{SubjectID: id}, nil
	}
	return ResetArgs{}, fmt.Errorf("%w: лишние аргументы", common.ErrBadArgs)
}

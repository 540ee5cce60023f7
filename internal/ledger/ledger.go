package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Исходы операций (для метрик)
const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeFault    = "fault"
)

// Ledger выполняет бизнес-операции экономики.
//
// Каждая изменяющая операция — одна транзакция "всё или ничего".
// Бизнес-отказ возвращается как false, сбой хранилища — как ошибка, для которой
// errors.Is(err, ErrStorage) == true.
type Ledger struct {
	store Store
	obs   Observer
}

// New создаёт ledger поверх хранилища. obs может быть nil.
func New(store Store, obs Observer) *Ledger {
	return &Ledger{store: store, obs: obs}
}

// Ping проверяет доступность хранилища.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.store.Ping(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// --- Балансы ---

// Transfer переводит amount от игрока from игроку to.
// Списание — условный UPDATE (баланс не уйдёт в минус), зачисление выполняется
// только после успешного списания. Если зачислить не удалось (получателя нет),
// вся транзакция откатывается.
func (l *Ledger) Transfer(ctx context.Context, fromPlayerID, toPlayerID, amount int64) (bool, error) {
	const op = "transfer"
	if amount <= 0 || fromPlayerID == toPlayerID {
		l.observe(op, outcomeRejected)
		return false, nil
	}

	err := l.store.WithTx(ctx, func(tx Repository) error {
		if err := adjust(ctx, tx, fromPlayerID, -amount); err != nil {
			return err
		}
		return adjust(ctx, tx, toPlayerID, amount)
	})
	if applied, err := l.finish(op, err); !applied {
		return false, err
	}

	log.WithFields(log.Fields{
		"from":   fromPlayerID,
		"to":     toPlayerID,
		"amount": amount,
	}).Debug("Перевод выполнен")

	l.appendAudit(ctx, op, func(ctx context.Context, repo Repository) error {
		return repo.InsertTransferRecord(ctx, TransferRecord{
			SenderID:    fromPlayerID,
			RecipientID: toPlayerID,
			Amount:      amount,
		})
	})
	return true, nil
}

// Reward начисляет игроку награду от менеджера.
// Начисление окончательно, даже если у менеджера нет локации:
// в этом случае запись аудита просто не создаётся.
// На одноразовой локации игрок помечается как прошедший её,
// а его место в очереди этой локации освобождается.
func (l *Ledger) Reward(ctx context.Context, playerID, managerID, amount int64) (bool, error) {
	const op = "reward"
	if amount <= 0 {
		l.observe(op, outcomeRejected)
		return false, nil
	}

	var record *RewardRecord
	err := l.store.WithTx(ctx, func(tx Repository) error {
		if err := adjust(ctx, tx, playerID, amount); err != nil {
			return err
		}
		loc, err := managerLocation(ctx, tx, managerID)
		if err != nil || loc == nil {
			return err
		}
		if loc.IsOnetime {
			if err := tx.MarkFinished(ctx, playerID, loc.ID); err != nil {
				return err
			}
		}
		if _, err := tx.DeleteQueueEntryAt(ctx, playerID, loc.ID); err != nil {
			return err
		}
		record = &RewardRecord{RecipientID: playerID, LocationID: loc.ID, ManagerID: managerID, Amount: amount}
		return nil
	})
	if applied, err := l.finish(op, err); !applied {
		return false, err
	}

	if record == nil {
		log.WithFields(log.Fields{
			"player":  playerID,
			"manager": managerID,
		}).Warn("Награда без локации менеджера — запись аудита не создана")
		return true, nil
	}
	l.appendAudit(ctx, op, func(ctx context.Context, repo Repository) error {
		return repo.InsertRewardRecord(ctx, *record)
	})
	return true, nil
}

// Purchase списывает стоимость покупки. Покупка, после которой баланс стал бы
// отрицательным, отклоняется. Запись аудита требует и локацию, и магазин.
func (l *Ledger) Purchase(ctx context.Context, playerID, managerID, amount int64) (bool, error) {
	const op = "purchase"
	if amount <= 0 {
		l.observe(op, outcomeRejected)
		return false, nil
	}

	var record *PurchaseRecord
	err := l.store.WithTx(ctx, func(tx Repository) error {
		if err := adjust(ctx, tx, playerID, -amount); err != nil {
			return err
		}
		loc, err := managerLocation(ctx, tx, managerID)
		if err != nil || loc == nil {
			return err
		}
		if _, err := tx.DeleteQueueEntryAt(ctx, playerID, loc.ID); err != nil {
			return err
		}
		shop, err := tx.ShopByLocation(ctx, loc.ID)
		if err != nil || shop == nil {
			return err
		}
		record = &PurchaseRecord{CustomerID: playerID, ShopID: shop.ID, ManagerID: managerID, Amount: amount}
		return nil
	})
	if applied, err := l.finish(op, err); !applied {
		return false, err
	}

	if record == nil {
		log.WithFields(log.Fields{
			"player":  playerID,
			"manager": managerID,
		}).Warn("Покупка без магазина — запись аудита не создана")
		return true, nil
	}
	l.appendAudit(ctx, op, func(ctx context.Context, repo Repository) error {
		return repo.InsertPurchaseRecord(ctx, *record)
	})
	return true, nil
}

// AddBalance — ручное начисление менеджером.
func (l *Ledger) AddBalance(ctx context.Context, playerID, managerID, amount int64) (bool, error) {
	return l.manualAdjust(ctx, "add_balance", playerID, managerID, amount)
}

// SubtractBalance — ручное списание менеджером, в минус не уводит.
func (l *Ledger) SubtractBalance(ctx context.Context, playerID, managerID, amount int64) (bool, error) {
	return l.manualAdjust(ctx, "subtract_balance", playerID, managerID, -amount)
}

func (l *Ledger) manualAdjust(ctx context.Context, op string, playerID, managerID, delta int64) (bool, error) {
	if delta == 0 || (op == "add_balance") != (delta > 0) {
		l.observe(op, outcomeRejected)
		return false, nil
	}

	err := l.store.WithTx(ctx, func(tx Repository) error {
		return adjust(ctx, tx, playerID, delta)
	})
	if applied, err := l.finish(op, err); !applied {
		return false, err
	}

	l.appendAudit(ctx, op, func(ctx context.Context, repo Repository) error {
		return repo.InsertAdjustmentRecord(ctx, AdjustmentRecord{PlayerID: playerID, ManagerID: managerID, Amount: delta})
	})
	return true, nil
}

// --- Очереди ---

// JoinQueue ставит игрока в очередь на локацию.
// Игрок уже в очереди, локация неактивна или уже пройдена (одноразовая) — false.
func (l *Ledger) JoinQueue(ctx context.Context, playerID, locationID int64) (bool, error) {
	err := l.store.WithTx(ctx, func(tx Repository) error {
		ok, err := tx.InsertQueueEntry(ctx, playerID, locationID)
		if err != nil {
			return err
		}
		if !ok {
			return errRejected
		}
		return nil
	})
	return l.finish("join_queue", err)
}

// LeaveQueue удаляет игрока из очереди. false — игрок не стоял в очереди.
func (l *Ledger) LeaveQueue(ctx context.Context, playerID int64) (bool, error) {
	err := l.store.WithTx(ctx, func(tx Repository) error {
		ok, err := tx.DeleteQueueEntry(ctx, playerID)
		if err != nil {
			return err
		}
		if !ok {
			return errRejected
		}
		return nil
	})
	return l.finish("leave_queue", err)
}

// QueueOf возвращает положение игрока в очереди или nil.
func (l *Ledger) QueueOf(ctx context.Context, playerID int64) (*QueueStatus, error) {
	return storageRead(l.store.QueueStatus(ctx, playerID))
}

// ListQueue — игроки в очереди локации в порядке постановки.
func (l *Ledger) ListQueue(ctx context.Context, locationID int64, offset, limit int) ([]Player, error) {
	return storageRead(l.store.ListQueue(ctx, locationID, offset, limit))
}

// CountQueue — длина очереди локации.
func (l *Ledger) CountQueue(ctx context.Context, locationID int64) (int64, error) {
	return storageRead(l.store.CountQueue(ctx, locationID))
}

// --- Локации и менеджеры ---

// SetManagerLocation ставит менеджера на локацию (locationID == nil — уйти с локации).
// Новая локация снимается с паузы, активность старой и новой пересчитывается.
func (l *Ledger) SetManagerLocation(ctx context.Context, managerID int64, locationID *int64) (bool, error) {
	err := l.store.WithTx(ctx, func(tx Repository) error {
		m, err := tx.ManagerByID(ctx, managerID)
		if err != nil {
			return err
		}
		if m == nil {
			return errRejected
		}
		if locationID == nil && m.LocationID == nil {
			return errRejected
		}
		if locationID != nil {
			loc, err := tx.LocationByID(ctx, *locationID)
			if err != nil {
				return err
			}
			if loc == nil {
				return errRejected
			}
		}

		if _, err := tx.UpdateManagerLocation(ctx, managerID, locationID); err != nil {
			return err
		}
		if locationID != nil {
			if _, err := tx.SetLocationPaused(ctx, *locationID, false); err != nil {
				return err
			}
			if err := tx.RefreshLocationActivity(ctx, *locationID); err != nil {
				return err
			}
		}
		if m.LocationID != nil && (locationID == nil || *m.LocationID != *locationID) {
			return tx.RefreshLocationActivity(ctx, *m.LocationID)
		}
		return nil
	})
	return l.finish("set_manager_location", err)
}

// SetLocationPaused ставит локацию менеджера на паузу или снимает с неё.
// false — менеджер не стоит на локации.
func (l *Ledger) SetLocationPaused(ctx context.Context, managerID int64, paused bool) (bool, error) {
	err := l.store.WithTx(ctx, func(tx Repository) error {
		loc, err := managerLocation(ctx, tx, managerID)
		if err != nil {
			return err
		}
		if loc == nil {
			return errRejected
		}
		if _, err := tx.SetLocationPaused(ctx, loc.ID, paused); err != nil {
			return err
		}
		return tx.RefreshLocationActivity(ctx, loc.ID)
	})
	return l.finish("set_location_paused", err)
}

// Station возвращает локацию менеджера и магазин при ней (оба могут быть nil).
func (l *Ledger) Station(ctx context.Context, managerID int64) (*Location, *Shop, error) {
	loc, err := managerLocation(ctx, l.store, managerID)
	if err != nil {
		return nil, nil, storageError("station", err)
	}
	if loc == nil {
		return nil, nil, nil
	}
	shop, err := l.store.ShopByLocation(ctx, loc.ID)
	if err != nil {
		return nil, nil, storageError("station", err)
	}
	return loc, shop, nil
}

// RefreshAllLocations сверяет is_active всех локаций с правилом вывода.
// Возвращает число локаций, у которых флаг изменился.
func (l *Ledger) RefreshAllLocations(ctx context.Context) (int64, error) {
	var changed int64
	err := l.store.WithTx(ctx, func(tx Repository) error {
		n, err := tx.RefreshAllLocations(ctx)
		changed = n
		return err
	})
	if _, err := l.finish("refresh_locations", err); err != nil {
		return 0, err
	}
	return changed, nil
}

// AddLocation создаёт локацию. false — имя занято или аргументы некорректны.
func (l *Ledger) AddLocation(ctx context.Context, name string, maxReward int64, onetime bool) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || maxReward < 0 {
		l.observe("add_location", outcomeRejected)
		return false, nil
	}
	err := l.store.WithTx(ctx, func(tx Repository) error {
		_, ok, err := tx.InsertLocation(ctx, name, maxReward, onetime)
		if err != nil {
			return err
		}
		if !ok {
			return errRejected
		}
		return nil
	})
	return l.finish("add_location", err)
}

// AddShop открывает магазин при локации. false — локации нет, у неё уже есть
// магазин или имя магазина занято.
func (l *Ledger) AddShop(ctx context.Context, locationID int64, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		l.observe("add_shop", outcomeRejected)
		return false, nil
	}
	err := l.store.WithTx(ctx, func(tx Repository) error {
		loc, err := tx.LocationByID(ctx, locationID)
		if err != nil {
			return err
		}
		if loc == nil {
			return errRejected
		}
		_, ok, err := tx.InsertShop(ctx, locationID, name)
		if err != nil {
			return err
		}
		if !ok {
			return errRejected
		}
		return nil
	})
	return l.finish("add_shop", err)
}

// LocationByID возвращает локацию или nil.
func (l *Ledger) LocationByID(ctx context.Context, locationID int64) (*Location, error) {
	return storageRead(l.store.LocationByID(ctx, locationID))
}

// ListLocations — локации по убыванию длины очереди, при равенстве по id.
func (l *Ledger) ListLocations(ctx context.Context, offset, limit int, activeOnly bool) ([]Location, error) {
	return storageRead(l.store.ListLocations(ctx, offset, limit, activeOnly))
}

// CountLocations — число локаций (всех или только активных).
func (l *Ledger) CountLocations(ctx context.Context, activeOnly bool) (int64, error) {
	return storageRead(l.store.CountLocations(ctx, activeOnly))
}

// --- Пользователи ---

// RegisterPlayer регистрирует игрока с нулевым балансом.
func (l *Ledger) RegisterPlayer(ctx context.Context, u NewUser) (RegisterOutcome, error) {
	return l.register(ctx, "register_player", u, RolePlayer)
}

// RegisterManager регистрирует менеджера без локации.
func (l *Ledger) RegisterManager(ctx context.Context, u NewUser) (RegisterOutcome, error) {
	return l.register(ctx, "register_manager", u, RoleManager)
}

// register — вставка пользователя и его роли в одной транзакции.
// Источник истины — уникальные индексы: конфликт при вставке превращается
// в NameTaken (или AlreadyRegistered, если subject уже зарегистрирован).
func (l *Ledger) register(ctx context.Context, op string, u NewUser, role string) (RegisterOutcome, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		l.observe(op, outcomeRejected)
		return NameTaken, nil
	}

	outcome := Registered
	err := l.store.WithTx(ctx, func(tx Repository) error {
		existing, err := tx.UserBySubject(ctx, u.SubjectID)
		if err != nil {
			return err
		}
		if existing != nil {
			outcome = AlreadyRegistered
			return errRejected
		}

		userID, ok, err := tx.InsertUser(ctx, u, role)
		if err != nil {
			return err
		}
		if !ok {
			existing, err := tx.UserBySubject(ctx, u.SubjectID)
			if err != nil {
				return err
			}
			outcome = NameTaken
			if existing != nil {
				outcome = AlreadyRegistered
			}
			return errRejected
		}

		if role == RolePlayer {
			_, ok, err = tx.InsertPlayer(ctx, userID)
		} else {
			_, ok, err = tx.InsertManager(ctx, userID)
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("пользователь %d уже имеет роль %s", userID, role)
		}
		return nil
	})
	if _, err := l.finish(op, err); err != nil {
		return outcome, err
	}

	log.WithFields(log.Fields{
		"subject": u.SubjectID,
		"role":    role,
		"outcome": outcome.String(),
	}).Info("Регистрация")
	return outcome, nil
}

// IsNameAvailable — только подсказка для дружелюбного ответа,
// окончательно уникальность проверяет вставка.
func (l *Ledger) IsNameAvailable(ctx context.Context, name string) (bool, error) {
	taken, err := l.store.IsNameTaken(ctx, strings.TrimSpace(name))
	if err != nil {
		return false, storageError("name_available", err)
	}
	return !taken, nil
}

// UserBySubject возвращает активного пользователя или nil.
func (l *Ledger) UserBySubject(ctx context.Context, subjectID int64) (*User, error) {
	return storageRead(l.store.UserBySubject(ctx, subjectID))
}

// PlayerBySubject возвращает счёт игрока или nil.
func (l *Ledger) PlayerBySubject(ctx context.Context, subjectID int64) (*Player, error) {
	return storageRead(l.store.PlayerBySubject(ctx, subjectID))
}

// PlayerByID возвращает счёт активного игрока или nil.
func (l *Ledger) PlayerByID(ctx context.Context, playerID int64) (*Player, error) {
	return storageRead(l.store.PlayerByID(ctx, playerID))
}

// ManagerBySubject возвращает менеджера или nil.
func (l *Ledger) ManagerBySubject(ctx context.Context, subjectID int64) (*Manager, error) {
	return storageRead(l.store.ManagerBySubject(ctx, subjectID))
}

// ListPlayers — активные игроки по возрастанию id.
func (l *Ledger) ListPlayers(ctx context.Context, offset, limit int) ([]Player, error) {
	return storageRead(l.store.ListPlayers(ctx, offset, limit))
}

// CountPlayers — число активных игроков.
func (l *Ledger) CountPlayers(ctx context.Context) (int64, error) {
	return storageRead(l.store.CountPlayers(ctx))
}

// --- Чёрный список ---

// Blacklist запрещает subject регистрироваться менеджером.
func (l *Ledger) Blacklist(ctx context.Context, subjectID int64) (bool, error) {
	err := l.store.WithTx(ctx, func(tx Repository) error {
		ok, err := tx.InsertBlacklist(ctx, subjectID)
		if err != nil {
			return err
		}
		if !ok {
			return errRejected
		}
		return nil
	})
	return l.finish("blacklist", err)
}

// IsBlacklisted проверяет чёрный список менеджеров.
func (l *Ledger) IsBlacklisted(ctx context.Context, subjectID int64) (bool, error) {
	return storageRead(l.store.IsBlacklisted(ctx, subjectID))
}

// ResetSubject стирает всё, что связано с subject: запись в чёрном списке,
// место в очереди, станцию менеджера и самого пользователя (мягкое удаление,
// чтобы записи аудита сохранили ссылки). Возвращает, был ли удалён пользователь.
func (l *Ledger) ResetSubject(ctx context.Context, subjectID int64) (bool, error) {
	wiped := false
	err := l.store.WithTx(ctx, func(tx Repository) error {
		if _, err := tx.DeleteBlacklist(ctx, subjectID); err != nil {
			return err
		}
		u, err := tx.UserBySubject(ctx, subjectID)
		if err != nil || u == nil {
			return err
		}

		p, err := tx.PlayerBySubject(ctx, subjectID)
		if err != nil {
			return err
		}
		if p != nil {
			if _, err := tx.DeleteQueueEntry(ctx, p.ID); err != nil {
				return err
			}
		}

		m, err := tx.ManagerBySubject(ctx, subjectID)
		if err != nil {
			return err
		}
		if _, err := tx.SoftDeleteUser(ctx, u.ID); err != nil {
			return err
		}
		if m != nil && m.LocationID != nil {
			if _, err := tx.UpdateManagerLocation(ctx, m.ID, nil); err != nil {
				return err
			}
			if err := tx.RefreshLocationActivity(ctx, *m.LocationID); err != nil {
				return err
			}
		}
		wiped = true
		return nil
	})
	if _, err := l.finish("reset_subject", err); err != nil {
		return false, err
	}
	return wiped, nil
}

// --- Внутреннее ---

// adjust применяет условное изменение баланса; отказ превращается в errRejected,
// чтобы откатить всю транзакцию.
func adjust(ctx context.Context, tx Repository, playerID, delta int64) error {
	ok, err := tx.AdjustBalance(ctx, playerID, delta)
	if err != nil {
		return err
	}
	if !ok {
		return errRejected
	}
	return nil
}

func managerLocation(ctx context.Context, repo Repository, managerID int64) (*Location, error) {
	m, err := repo.ManagerByID(ctx, managerID)
	if err != nil || m == nil || m.LocationID == nil {
		return nil, err
	}
	return repo.LocationByID(ctx, *m.LocationID)
}

// finish переводит результат WithTx в (applied, err) и отмечает исход в метриках.
func (l *Ledger) finish(op string, err error) (bool, error) {
	switch {
	case err == nil:
		l.observe(op, outcomeApplied)
		return true, nil
	case errors.Is(err, errRejected):
		l.observe(op, outcomeRejected)
		return false, nil
	default:
		l.observe(op, outcomeFault)
		return false, storageError(op, err)
	}
}

func (l *Ledger) observe(op, outcome string) {
	if l.obs != nil {
		l.obs.LedgerOp(op, outcome)
	}
}

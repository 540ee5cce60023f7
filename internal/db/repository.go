package db

import (
	"context"
	"errors"
	"fmt"

	"fair-bot/internal/ledger"
)

// repository реализует ledger.Repository поверх Querier.
// Один и тот же код работает и на пуле, и внутри транзакции.
type repository struct {
	q Querier
}

var _ ledger.Repository = (*repository)(nil)

// --- Пользователи ---

func (r *repository) InsertUser(ctx context.Context, u ledger.NewUser, role string) (int64, bool, error) {
	return r.insertReturningID(ctx, `
		INSERT INTO users (subject_id, chat_id, username, name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, u.SubjectID, u.ChatID, u.Username, u.Name, role)
}

func (r *repository) UserBySubject(ctx context.Context, subjectID int64) (*ledger.User, error) {
	var u ledger.User
	err := r.q.QueryRow(ctx, `
		SELECT id, subject_id, chat_id, username, name, role
		FROM users
		WHERE subject_id = $1 AND deleted_at IS NULL
	`, subjectID).Scan(&u.ID, &u.SubjectID, &u.ChatID, &u.Username, &u.Name, &u.Role)
	return found(&u, err)
}

func (r *repository) IsNameTaken(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE name = $1 AND deleted_at IS NULL)", name)
}

func (r *repository) SoftDeleteUser(ctx context.Context, userID int64) (bool, error) {
	return r.affected(ctx,
		"UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL", userID)
}

// --- Игроки ---

const playerColumns = `
	SELECT p.id, p.user_id, u.subject_id, u.chat_id, u.name, p.balance
	FROM players p
	JOIN users u ON u.id = p.user_id
`

func scanPlayer(row Row, p *ledger.Player) error {
	return row.Scan(&p.ID, &p.UserID, &p.SubjectID, &p.ChatID, &p.Name, &p.Balance)
}

func (r *repository) InsertPlayer(ctx context.Context, userID int64) (int64, bool, error) {
	return r.insertReturningID(ctx,
		"INSERT INTO players (user_id) VALUES ($1) ON CONFLICT DO NOTHING RETURNING id", userID)
}

func (r *repository) PlayerByID(ctx context.Context, playerID int64) (*ledger.Player, error) {
	var p ledger.Player
	err := scanPlayer(r.q.QueryRow(ctx,
		playerColumns+" WHERE p.id = $1 AND u.deleted_at IS NULL", playerID), &p)
	return found(&p, err)
}

func (r *repository) PlayerBySubject(ctx context.Context, subjectID int64) (*ledger.Player, error) {
	var p ledger.Player
	err := scanPlayer(r.q.QueryRow(ctx,
		playerColumns+" WHERE u.subject_id = $1 AND u.deleted_at IS NULL", subjectID), &p)
	return found(&p, err)
}

func (r *repository) ListPlayers(ctx context.Context, offset, limit int) ([]ledger.Player, error) {
	return r.players(ctx,
		playerColumns+" WHERE u.deleted_at IS NULL ORDER BY p.id LIMIT $1 OFFSET $2", limit, offset)
}

func (r *repository) CountPlayers(ctx context.Context) (int64, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM players p
		JOIN users u ON u.id = p.user_id
		WHERE u.deleted_at IS NULL
	`)
}

// AdjustBalance — условное изменение баланса одним запросом.
// Конкурентные списания сериализуются блокировкой строки, а условие
// перепроверяется на актуальной версии строки.
func (r *repository) AdjustBalance(ctx context.Context, playerID, delta int64) (bool, error) {
	return r.affected(ctx, `
		UPDATE players SET balance = balance + $2
		WHERE id = $1
		  AND balance + $2 >= 0
		  AND EXISTS (
			SELECT 1 FROM users u
			WHERE u.id = players.user_id AND u.deleted_at IS NULL
		  )
	`, playerID, delta)
}

// --- Менеджеры ---

const managerColumns = `
	SELECT m.id, m.user_id, u.subject_id, u.chat_id, u.name, m.location_id
	FROM managers m
	JOIN users u ON u.id = m.user_id
`

func (r *repository) InsertManager(ctx context.Context, userID int64) (int64, bool, error) {
	return r.insertReturningID(ctx,
		"INSERT INTO managers (user_id) VALUES ($1) ON CONFLICT DO NOTHING RETURNING id", userID)
}

func (r *repository) ManagerByID(ctx context.Context, managerID int64) (*ledger.Manager, error) {
	return r.manager(ctx, managerColumns+" WHERE m.id = $1 AND u.deleted_at IS NULL", managerID)
}

func (r *repository) ManagerBySubject(ctx context.Context, subjectID int64) (*ledger.Manager, error) {
	return r.manager(ctx, managerColumns+" WHERE u.subject_id = $1 AND u.deleted_at IS NULL", subjectID)
}

func (r *repository) manager(ctx context.Context, sql string, arg int64) (*ledger.Manager, error) {
	var m ledger.Manager
	err := r.q.QueryRow(ctx, sql, arg).Scan(&m.ID, &m.UserID, &m.SubjectID, &m.ChatID, &m.Name, &m.LocationID)
	return found(&m, err)
}

func (r *repository) UpdateManagerLocation(ctx context.Context, managerID int64, locationID *int64) (bool, error) {
	return r.affected(ctx, "UPDATE managers SET location_id = $2 WHERE id = $1", managerID, locationID)
}

// --- Локации и магазины ---

const locationColumns = `
	SELECT l.id, l.name, l.max_reward, l.is_onetime, l.is_paused, l.is_active,
		(SELECT COUNT(*) FROM queue_entries q WHERE q.location_id = l.id) AS queue_len
	FROM locations l
`

// activeExpr — правило вывода активности: локация не на паузе и на ней
// стоит хотя бы один действующий менеджер.
const activeExpr = `(NOT locations.is_paused AND EXISTS (
	SELECT 1 FROM managers m
	JOIN users u ON u.id = m.user_id
	WHERE m.location_id = locations.id AND u.deleted_at IS NULL
))`

func scanLocation(row Row, l *ledger.Location) error {
	return row.Scan(&l.ID, &l.Name, &l.MaxReward, &l.IsOnetime, &l.IsPaused, &l.IsActive, &l.QueueLen)
}

func (r *repository) InsertLocation(ctx context.Context, name string, maxReward int64, onetime bool) (int64, bool, error) {
	return r.insertReturningID(ctx, `
		INSERT INTO locations (name, max_reward, is_onetime)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, name, maxReward, onetime)
}

func (r *repository) LocationByID(ctx context.Context, locationID int64) (*ledger.Location, error) {
	var l ledger.Location
	err := scanLocation(r.q.QueryRow(ctx, locationColumns+" WHERE l.id = $1", locationID), &l)
	return found(&l, err)
}

func (r *repository) LocationByName(ctx context.Context, name string) (*ledger.Location, error) {
	var l ledger.Location
	err := scanLocation(r.q.QueryRow(ctx, locationColumns+" WHERE l.name = $1", name), &l)
	return found(&l, err)
}

func (r *repository) ListLocations(ctx context.Context, offset, limit int, activeOnly bool) ([]ledger.Location, error) {
	sql := locationColumns
	if activeOnly {
		sql += " WHERE l.is_active"
	}
	sql += " ORDER BY queue_len DESC, l.id ASC LIMIT $1 OFFSET $2"

	rows, err := r.q.Query(ctx, sql, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Location
	for rows.Next() {
		var l ledger.Location
		if err := scanLocation(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) CountLocations(ctx context.Context, activeOnly bool) (int64, error) {
	if activeOnly {
		return r.count(ctx, "SELECT COUNT(*) FROM locations WHERE is_active")
	}
	return r.count(ctx, "SELECT COUNT(*) FROM locations")
}

func (r *repository) SetLocationPaused(ctx context.Context, locationID int64, paused bool) (bool, error) {
	return r.affected(ctx, "UPDATE locations SET is_paused = $2 WHERE id = $1", locationID, paused)
}

func (r *repository) RefreshLocationActivity(ctx context.Context, locationID int64) error {
	_, err := r.q.Exec(ctx, "UPDATE locations SET is_active = "+activeExpr+" WHERE id = $1", locationID)
	return err
}

func (r *repository) RefreshAllLocations(ctx context.Context) (int64, error) {
	return r.q.Exec(ctx, "UPDATE locations SET is_active = "+activeExpr+" WHERE is_active <> "+activeExpr)
}

func (r *repository) InsertShop(ctx context.Context, locationID int64, name string) (int64, bool, error) {
	return r.insertReturningID(ctx,
		"INSERT INTO shops (location_id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING RETURNING id",
		locationID, name)
}

func (r *repository) ShopByLocation(ctx context.Context, locationID int64) (*ledger.Shop, error) {
	var s ledger.Shop
	err := r.q.QueryRow(ctx,
		"SELECT id, location_id, name FROM shops WHERE location_id = $1", locationID,
	).Scan(&s.ID, &s.LocationID, &s.Name)
	return found(&s, err)
}

// --- Очереди ---

// InsertQueueEntry — постановка в очередь одним запросом: уникальный индекс
// по player_id превращает повторную постановку в "не вставлено", а условия
// WHERE отсекают неактивные и уже пройденные локации.
func (r *repository) InsertQueueEntry(ctx context.Context, playerID, locationID int64) (bool, error) {
	_, ok, err := r.insertReturningID(ctx, `
		INSERT INTO queue_entries (player_id, location_id)
		SELECT CAST($1 AS BIGINT), CAST($2 AS BIGINT)
		WHERE EXISTS (
			SELECT 1 FROM locations WHERE id = $2 AND is_active
		)
		AND NOT EXISTS (
			SELECT 1 FROM finished_locations WHERE player_id = $1 AND location_id = $2
		)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, playerID, locationID)
	return ok, err
}

func (r *repository) DeleteQueueEntry(ctx context.Context, playerID int64) (bool, error) {
	return r.affected(ctx, "DELETE FROM queue_entries WHERE player_id = $1", playerID)
}

func (r *repository) DeleteQueueEntryAt(ctx context.Context, playerID, locationID int64) (bool, error) {
	return r.affected(ctx,
		"DELETE FROM queue_entries WHERE player_id = $1 AND location_id = $2", playerID, locationID)
}

func (r *repository) QueueStatus(ctx context.Context, playerID int64) (*ledger.QueueStatus, error) {
	var (
		locationID int64
		position   int64
	)
	err := r.q.QueryRow(ctx, `
		SELECT q.location_id,
			(SELECT COUNT(*) FROM queue_entries o
			 WHERE o.location_id = q.location_id AND o.id <= q.id) AS position
		FROM queue_entries q
		WHERE q.player_id = $1
	`, playerID).Scan(&locationID, &position)
	if errors.Is(err, ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	loc, err := r.LocationByID(ctx, locationID)
	if err != nil || loc == nil {
		return nil, err
	}
	return &ledger.QueueStatus{Location: *loc, Position: position, Length: loc.QueueLen}, nil
}

func (r *repository) ListQueue(ctx context.Context, locationID int64, offset, limit int) ([]ledger.Player, error) {
	return r.players(ctx, `
		SELECT p.id, p.user_id, u.subject_id, u.chat_id, u.name, p.balance
		FROM queue_entries q
		JOIN players p ON p.id = q.player_id
		JOIN users u ON u.id = p.user_id
		WHERE q.location_id = $1
		ORDER BY q.id
		LIMIT $2 OFFSET $3
	`, locationID, limit, offset)
}

func (r *repository) CountQueue(ctx context.Context, locationID int64) (int64, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM queue_entries WHERE location_id = $1", locationID)
}

func (r *repository) MarkFinished(ctx context.Context, playerID, locationID int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO finished_locations (player_id, location_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, playerID, locationID)
	return err
}

// --- Чёрный список ---

func (r *repository) InsertBlacklist(ctx context.Context, subjectID int64) (bool, error) {
	_, ok, err := r.insertReturningID(ctx,
		"INSERT INTO managers_blacklist (subject_id) VALUES ($1) ON CONFLICT DO NOTHING RETURNING id", subjectID)
	return ok, err
}

func (r *repository) IsBlacklisted(ctx context.Context, subjectID int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM managers_blacklist WHERE subject_id = $1)", subjectID)
}

func (r *repository) DeleteBlacklist(ctx context.Context, subjectID int64) (bool, error) {
	return r.affected(ctx, "DELETE FROM managers_blacklist WHERE subject_id = $1", subjectID)
}

// --- Аудит ---

func (r *repository) InsertTransferRecord(ctx context.Context, rec ledger.TransferRecord) error {
	_, err := r.q.Exec(ctx,
		"INSERT INTO transfers_history (sender_id, recipient_id, amount) VALUES ($1, $2, $3)",
		rec.SenderID, rec.RecipientID, rec.Amount)
	return err
}

func (r *repository) InsertRewardRecord(ctx context.Context, rec ledger.RewardRecord) error {
	_, err := r.q.Exec(ctx,
		"INSERT INTO rewards_history (recipient_id, location_id, manager_id, amount) VALUES ($1, $2, $3, $4)",
		rec.RecipientID, rec.LocationID, rec.ManagerID, rec.Amount)
	return err
}

func (r *repository) InsertPurchaseRecord(ctx context.Context, rec ledger.PurchaseRecord) error {
	_, err := r.q.Exec(ctx,
		"INSERT INTO purchases_history (customer_id, shop_id, manager_id, amount) VALUES ($1, $2, $3, $4)",
		rec.CustomerID, rec.ShopID, rec.ManagerID, rec.Amount)
	return err
}

func (r *repository) InsertAdjustmentRecord(ctx context.Context, rec ledger.AdjustmentRecord) error {
	_, err := r.q.Exec(ctx,
		"INSERT INTO adjustments_history (player_id, manager_id, amount) VALUES ($1, $2, $3)",
		rec.PlayerID, rec.ManagerID, rec.Amount)
	return err
}

// --- Вспомогательное ---

// insertReturningID выполняет INSERT ... ON CONFLICT DO NOTHING RETURNING id.
// Нет строки — конфликт, а не ошибка.
func (r *repository) insertReturningID(ctx context.Context, sql string, args ...any) (int64, bool, error) {
	var id int64
	err := r.q.QueryRow(ctx, sql, args...).Scan(&id)
	if errors.Is(err, ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *repository) affected(ctx context.Context, sql string, args ...any) (bool, error) {
	n, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) exists(ctx context.Context, sql string, args ...any) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *repository) count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repository) players(ctx context.Context, sql string, args ...any) ([]ledger.Player, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Player
	for rows.Next() {
		var p ledger.Player
		if err := scanPlayer(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение списка игроков: %w", err)
	}
	return out, nil
}

// found превращает ErrNoRows в (nil, nil).
func found[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

package sqlite

import (
	"context"

	"fair-bot/internal/db"
)

// Migrate применяет схему SQLite.
func Migrate(ctx context.Context, drv db.Driver) error {
	return db.Migrate(ctx, drv, Migrations)
}

// Migrations повторяют схему PostgreSQL в типах SQLite.
// AUTOINCREMENT нужен очередям: позиция считается по возрастанию id.
var Migrations = []db.Migration{
	{Version: 1, SQL: migrationLedger},
	{Version: 2, SQL: migrationAudit},
	{Version: 3, SQL: migrationDialogStates},
}

const migrationLedger = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id INTEGER NOT NULL,
	chat_id    INTEGER NOT NULL,
	username   TEXT    NOT NULL DEFAULT '',
	name       TEXT    NOT NULL,
	role       TEXT    NOT NULL CHECK (role IN ('player', 'manager')),
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_users_subject_active ON users(subject_id) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS ux_users_name_active ON users(name) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS players (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE REFERENCES users(id),
	balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS locations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT    NOT NULL UNIQUE,
	max_reward INTEGER NOT NULL DEFAULT 100 CHECK (max_reward >= 0),
	is_onetime BOOLEAN NOT NULL DEFAULT 0,
	is_paused  BOOLEAN NOT NULL DEFAULT 0,
	is_active  BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS managers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL UNIQUE REFERENCES users(id),
	location_id INTEGER REFERENCES locations(id)
);
CREATE INDEX IF NOT EXISTS idx_managers_location ON managers(location_id);

CREATE TABLE IF NOT EXISTS shops (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	location_id INTEGER NOT NULL UNIQUE REFERENCES locations(id),
	name        TEXT    NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS queue_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id   INTEGER NOT NULL UNIQUE REFERENCES players(id),
	location_id INTEGER NOT NULL REFERENCES locations(id),
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_queue_entries_location ON queue_entries(location_id, id);

CREATE TABLE IF NOT EXISTS finished_locations (
	player_id   INTEGER NOT NULL REFERENCES players(id),
	location_id INTEGER NOT NULL REFERENCES locations(id),
	PRIMARY KEY (player_id, location_id)
);

CREATE TABLE IF NOT EXISTS managers_blacklist (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id INTEGER NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const migrationAudit = `
CREATE TABLE IF NOT EXISTS transfers_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    INTEGER NOT NULL REFERENCES players(id),
	recipient_id INTEGER NOT NULL REFERENCES players(id),
	amount       INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rewards_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	recipient_id INTEGER NOT NULL REFERENCES players(id),
	location_id  INTEGER NOT NULL REFERENCES locations(id),
	manager_id   INTEGER NOT NULL REFERENCES managers(id),
	amount       INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS purchases_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id INTEGER NOT NULL REFERENCES players(id),
	shop_id     INTEGER NOT NULL REFERENCES shops(id),
	manager_id  INTEGER NOT NULL REFERENCES managers(id),
	amount      INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS adjustments_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id  INTEGER NOT NULL REFERENCES players(id),
	manager_id INTEGER NOT NULL REFERENCES managers(id),
	amount     INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const migrationDialogStates = `
CREATE TABLE IF NOT EXISTS dialog_states (
	subject_id INTEGER NOT NULL,
	chat_id    INTEGER NOT NULL,
	state      TEXT    NOT NULL,
	payload    TEXT    NOT NULL DEFAULT '{}',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (subject_id, chat_id)
);
CREATE INDEX IF NOT EXISTS idx_dialog_states_updated ON dialog_states(updated_at);
`

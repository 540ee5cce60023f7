package postgres

import (
	"context"

	"fair-bot/internal/db"
)

// Migrate применяет схему PostgreSQL.
func Migrate(ctx context.Context, drv db.Driver) error {
	return db.Migrate(ctx, drv, Migrations)
}

// Migrations — версии схемы. Уже применённые версии не меняются,
// изменения добавляются новой версией.
var Migrations = []db.Migration{
	{Version: 1, SQL: migrationLedger},
	{Version: 2, SQL: migrationAudit},
	{Version: 3, SQL: migrationDialogStates},
}

const migrationLedger = `
CREATE TABLE IF NOT EXISTS users (
	id         BIGSERIAL PRIMARY KEY,
	subject_id BIGINT       NOT NULL,
	chat_id    BIGINT       NOT NULL,
	username   VARCHAR(255) NOT NULL DEFAULT '',
	name       VARCHAR(64)  NOT NULL,
	role       VARCHAR(16)  NOT NULL CHECK (role IN ('player', 'manager')),
	created_at TIMESTAMP    NOT NULL DEFAULT NOW(),
	deleted_at TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_users_subject_active ON users(subject_id) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS ux_users_name_active ON users(name) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS players (
	id      BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL UNIQUE REFERENCES users(id),
	balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS locations (
	id         BIGSERIAL PRIMARY KEY,
	name       VARCHAR(128) NOT NULL UNIQUE,
	max_reward BIGINT       NOT NULL DEFAULT 100 CHECK (max_reward >= 0),
	is_onetime BOOLEAN      NOT NULL DEFAULT FALSE,
	is_paused  BOOLEAN      NOT NULL DEFAULT FALSE,
	is_active  BOOLEAN      NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS managers (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL UNIQUE REFERENCES users(id),
	location_id BIGINT REFERENCES locations(id)
);
CREATE INDEX IF NOT EXISTS idx_managers_location ON managers(location_id);

CREATE TABLE IF NOT EXISTS shops (
	id          BIGSERIAL PRIMARY KEY,
	location_id BIGINT       NOT NULL UNIQUE REFERENCES locations(id),
	name        VARCHAR(128) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS queue_entries (
	id          BIGSERIAL PRIMARY KEY,
	player_id   BIGINT    NOT NULL UNIQUE REFERENCES players(id),
	location_id BIGINT    NOT NULL REFERENCES locations(id),
	created_at  TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_queue_entries_location ON queue_entries(location_id, id);

CREATE TABLE IF NOT EXISTS finished_locations (
	player_id   BIGINT NOT NULL REFERENCES players(id),
	location_id BIGINT NOT NULL REFERENCES locations(id),
	PRIMARY KEY (player_id, location_id)
);

CREATE TABLE IF NOT EXISTS managers_blacklist (
	id         BIGSERIAL PRIMARY KEY,
	subject_id BIGINT    NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`

// Аудит только дописывается, суммы со знаком
const migrationAudit = `
CREATE TABLE IF NOT EXISTS transfers_history (
	id           BIGSERIAL PRIMARY KEY,
	sender_id    BIGINT    NOT NULL REFERENCES players(id),
	recipient_id BIGINT    NOT NULL REFERENCES players(id),
	amount       BIGINT    NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS rewards_history (
	id           BIGSERIAL PRIMARY KEY,
	recipient_id BIGINT    NOT NULL REFERENCES players(id),
	location_id  BIGINT    NOT NULL REFERENCES locations(id),
	manager_id   BIGINT    NOT NULL REFERENCES managers(id),
	amount       BIGINT    NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchases_history (
	id          BIGSERIAL PRIMARY KEY,
	customer_id BIGINT    NOT NULL REFERENCES players(id),
	shop_id     BIGINT    NOT NULL REFERENCES shops(id),
	manager_id  BIGINT    NOT NULL REFERENCES managers(id),
	amount      BIGINT    NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS adjustments_history (
	id         BIGSERIAL PRIMARY KEY,
	player_id  BIGINT    NOT NULL REFERENCES players(id),
	manager_id BIGINT    NOT NULL REFERENCES managers(id),
	amount     BIGINT    NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`

const migrationDialogStates = `
CREATE TABLE IF NOT EXISTS dialog_states (
	subject_id BIGINT      NOT NULL,
	chat_id    BIGINT      NOT NULL,
	state      VARCHAR(64) NOT NULL,
	payload    TEXT        NOT NULL DEFAULT '{}',
	updated_at BIGINT      NOT NULL,
	PRIMARY KEY (subject_id, chat_id)
);
CREATE INDEX IF NOT EXISTS idx_dialog_states_updated ON dialog_states(updated_at);
`

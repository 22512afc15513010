package store

// Schema is intentionally plain SQL rather than a migration framework
// (out of scope per spec §1: "schema-migration tooling" is an external
// collaborator). `Migrate` runs idempotent CREATE TABLE IF NOT EXISTS /
// CREATE INDEX IF NOT EXISTS statements, matching the teacher's
// `client.Schema.Create` auto-migration step in spirit if not in mechanism.

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS balances (
	client_id          TEXT PRIMARY KEY,
	balance_cents      BIGINT NOT NULL DEFAULT 0,
	promo_cents        BIGINT NOT NULL DEFAULT 0,
	withdrawable_cents BIGINT NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id           BIGSERIAL PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	client_id    TEXT NOT NULL,
	tx_type      TEXT NOT NULL,
	tx_reason    TEXT NOT NULL,
	amount_cents BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_client_id ON transactions (client_id, id DESC);

CREATE TABLE IF NOT EXISTS payments (
	id             TEXT PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	client_id_from TEXT NOT NULL,
	client_id_to   TEXT,
	payment_cents  BIGINT NOT NULL,
	message_hash   BYTEA NOT NULL,
	is_promo       BOOLEAN NOT NULL DEFAULT false
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_message_hash ON payments (message_hash);

CREATE TABLE IF NOT EXISTS stripe_connect_accounts (
	client_id                          TEXT PRIMARY KEY,
	oauth_state                        TEXT NOT NULL,
	stripe_user_id                     TEXT,
	connect_account                    JSONB,
	connect_credentials                JSONB,
	enable_automatic_payouts           BOOLEAN NOT NULL DEFAULT false,
	automatic_payout_threshold_cents   BIGINT NOT NULL DEFAULT 0,
	created_at                         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stripe_connect_transfers (
	id                   TEXT PRIMARY KEY,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	client_id            TEXT NOT NULL,
	amount_cents         BIGINT NOT NULL,
	provider_transfer_id TEXT NOT NULL,
	raw_response         JSONB
);
CREATE INDEX IF NOT EXISTS idx_connect_transfers_client_id ON stripe_connect_transfers (client_id, created_at DESC);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS balances (
	client_id          TEXT PRIMARY KEY,
	balance_cents      INTEGER NOT NULL DEFAULT 0,
	promo_cents        INTEGER NOT NULL DEFAULT 0,
	withdrawable_cents INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transactions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	client_id    TEXT NOT NULL,
	tx_type      TEXT NOT NULL,
	tx_reason    TEXT NOT NULL,
	amount_cents INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_client_id ON transactions (client_id, id DESC);

CREATE TABLE IF NOT EXISTS payments (
	id             TEXT PRIMARY KEY,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	client_id_from TEXT NOT NULL,
	client_id_to   TEXT,
	payment_cents  INTEGER NOT NULL,
	message_hash   BLOB NOT NULL,
	is_promo       INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_message_hash ON payments (message_hash);

CREATE TABLE IF NOT EXISTS stripe_connect_accounts (
	client_id                          TEXT PRIMARY KEY,
	oauth_state                        TEXT NOT NULL,
	stripe_user_id                     TEXT,
	connect_account                    TEXT,
	connect_credentials                TEXT,
	enable_automatic_payouts           INTEGER NOT NULL DEFAULT 0,
	automatic_payout_threshold_cents   INTEGER NOT NULL DEFAULT 0,
	created_at                         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at                         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stripe_connect_transfers (
	id                   TEXT PRIMARY KEY,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	client_id            TEXT NOT NULL,
	amount_cents         INTEGER NOT NULL,
	provider_transfer_id TEXT NOT NULL,
	raw_response         TEXT
);
CREATE INDEX IF NOT EXISTS idx_connect_transfers_client_id ON stripe_connect_transfers (client_id, created_at DESC);
`

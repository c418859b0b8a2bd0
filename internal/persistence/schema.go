package persistence

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=NORMAL;

CREATE TABLE IF NOT EXISTS orders (
    cl_ord_id   TEXT PRIMARY KEY,
    order_id    TEXT,
    account_id  TEXT NOT NULL,
    symbol      TEXT NOT NULL,
    side        INTEGER NOT NULL,
    ord_type    INTEGER NOT NULL,
    tif         INTEGER NOT NULL,
    price       REAL NOT NULL,
    order_qty   REAL NOT NULL,
    cum_qty     REAL NOT NULL DEFAULT 0,
    leaves_qty  REAL NOT NULL,
    avg_px      REAL NOT NULL DEFAULT 0,
    status      INTEGER NOT NULL,
    create_time DATETIME NOT NULL,
    update_time DATETIME NOT NULL,
    sender_comp_id TEXT NOT NULL,
    target_comp_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    trade_id    TEXT PRIMARY KEY,
    cl_ord_id   TEXT NOT NULL REFERENCES orders(cl_ord_id),
    exec_id     TEXT NOT NULL,
    last_shares REAL NOT NULL,
    last_px     REAL NOT NULL,
    trade_time  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS session_states (
    sender            TEXT NOT NULL,
    target            TEXT NOT NULL,
    send_seq          INTEGER NOT NULL,
    recv_seq          INTEGER NOT NULL,
    last_update_time  DATETIME NOT NULL,
    PRIMARY KEY (sender, target)
);

CREATE TABLE IF NOT EXISTS messages (
    sender TEXT NOT NULL,
    target TEXT NOT NULL,
    seq    INTEGER NOT NULL,
    raw    BLOB NOT NULL,
    PRIMARY KEY (sender, target, seq)
);

CREATE TABLE IF NOT EXISTS accounts (
    account_id      TEXT PRIMARY KEY,
    balance         REAL NOT NULL,
    available       REAL NOT NULL,
    frozen_margin   REAL NOT NULL DEFAULT 0,
    used_margin     REAL NOT NULL DEFAULT 0,
    position_profit REAL NOT NULL DEFAULT 0,
    close_profit    REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS positions (
    account_id    TEXT NOT NULL,
    instrument_id TEXT NOT NULL,
    long_qty      REAL NOT NULL DEFAULT 0,
    long_avg_px   REAL NOT NULL DEFAULT 0,
    long_margin   REAL NOT NULL DEFAULT 0,
    short_qty     REAL NOT NULL DEFAULT 0,
    short_avg_px  REAL NOT NULL DEFAULT 0,
    short_margin  REAL NOT NULL DEFAULT 0,
    position_profit REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (account_id, instrument_id)
);
`

// ApplyMigrations creates the schema if absent. Kept lightweight (no
// external migration tool) for a fast startup path: the CREATE TABLE IF NOT
// EXISTS statements are the whole migration, and existing tables are not
// altered.
func ApplyMigrations(db *DB) error {
	if _, err := db.handle.Exec(schema); err != nil {
		return fmt.Errorf("persistence: apply schema: %w", err)
	}
	return nil
}

package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS estimation_runs (
    id TEXT PRIMARY KEY,
    domain TEXT NOT NULL,
    solver TEXT NOT NULL,
    ranked_bids INTEGER NOT NULL,
    low_utility REAL NOT NULL,
    high_utility REAL NOT NULL,
    total_slack REAL NOT NULL,
    iterations INTEGER,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS estimated_values (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES estimation_runs(id),
    issue_id INTEGER NOT NULL,
    issue_name TEXT NOT NULL,
    value TEXT NOT NULL,
    weight REAL NOT NULL,
    evaluation REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_estimated_values_run ON estimated_values(run_id);

CREATE TABLE IF NOT EXISTS opponent_runs (
    id TEXT PRIMARY KEY,
    domain TEXT NOT NULL,
    hardheaded_window INTEGER NOT NULL,
    turns INTEGER NOT NULL DEFAULT 0,
    final_hardheaded REAL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS opponent_turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES opponent_runs(id),
    turn INTEGER NOT NULL,
    bid TEXT NOT NULL,
    utility REAL NOT NULL,
    hardheaded REAL,
    weights TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opponent_turns_run ON opponent_turns(run_id, turn);
`

package database

const schema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	gamertag TEXT NOT NULL DEFAULT '',
	xuid TEXT NOT NULL DEFAULT '',
	photo_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	logged_date TEXT NOT NULL DEFAULT '',
	completion_date TEXT NOT NULL DEFAULT '',
	rating REAL,
	external_title_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_games_owner_id ON games(owner_id);

CREATE TABLE books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	logged_date TEXT NOT NULL DEFAULT '',
	completion_date TEXT NOT NULL DEFAULT '',
	rating REAL,
	external_title_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_books_owner_id ON books(owner_id);

-- Resolved covers, keyed by the exact entry name
CREATE TABLE image_cache (
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	source TEXT NOT NULL,
	value TEXT NOT NULL,
	cached_at TIMESTAMP NOT NULL
);

CREATE TABLE history_snapshots (
	user_key TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	payload TEXT NOT NULL,
	fetched_at TIMESTAMP NOT NULL
);

CREATE TABLE session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// migrations contains incremental schema changes
// Each migration is applied in order based on the current user_version
// migrations[0] is empty because version 0 uses the base schema
var migrations = []string{
	"",
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

var globalDB *Database

// Initialize opens the SQLite database and creates the schema.
func Initialize(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	globalDB = &Database{db: db}

	if err := globalDB.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func GetDB() *Database {
	return globalDB
}

func IsConnected() bool {
	if globalDB == nil || globalDB.db == nil {
		return false
	}
	return globalDB.db.Ping() == nil
}

func Close() error {
	if globalDB != nil && globalDB.db != nil {
		return globalDB.db.Close()
	}
	return nil
}

// Open builds a standalone database, used by tests and tooling.
func Open(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	d := &Database{db: db}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS protected_users (
		user_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		added_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS combat_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT DEFAULT '',
		threat_level INTEGER DEFAULT 0,
		detail TEXT DEFAULT '',
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_combat_logs_guild ON combat_logs(guild_id);
	CREATE INDEX IF NOT EXISTS idx_combat_logs_time ON combat_logs(timestamp);

	CREATE TABLE IF NOT EXISTS backups (
		ref TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_backups_guild ON backups(guild_id);

	CREATE TABLE IF NOT EXISTS encrypted_channels (
		channel_id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		channel_name TEXT NOT NULL,
		blob BLOB NOT NULL,
		encrypted_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_encrypted_guild ON encrypted_channels(guild_id);
	`
	_, err := d.db.Exec(schema)
	return err
}

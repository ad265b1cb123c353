package database

import (
	"database/sql"
	"time"

	"github.com/bytedacia/guardian/internal/logging"
)

// Protected user persistence, consumed by protect.Registry.

func (d *Database) SaveProtectedUser(userID, kind string) error {
	_, err := d.db.Exec(
		`INSERT INTO protected_users (user_id, kind, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET kind = excluded.kind`,
		userID, kind, time.Now().Unix())
	return err
}

func (d *Database) DeleteProtectedUser(userID string) error {
	_, err := d.db.Exec(`DELETE FROM protected_users WHERE user_id = ?`, userID)
	return err
}

func (d *Database) LoadProtectedUsers() (map[string]string, error) {
	rows, err := d.db.Query(`SELECT user_id, kind FROM protected_users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var userID, kind string
		if err := rows.Scan(&userID, &kind); err != nil {
			return nil, err
		}
		out[userID] = kind
	}
	return out, rows.Err()
}

// Combat log trail. Every protocol phase appends one row.

type CombatLogEntry struct {
	GuildID     string
	Action      string
	Reason      string
	ThreatLevel int
	Detail      string
	Timestamp   time.Time
}

func (d *Database) AppendCombatLog(entry CombatLogEntry) error {
	_, err := d.db.Exec(
		`INSERT INTO combat_logs (guild_id, action, reason, threat_level, detail, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.GuildID, entry.Action, entry.Reason, entry.ThreatLevel, entry.Detail,
		time.Now().Unix())
	return err
}

// RecordCombatAction is the recorder surface the orchestrator writes
// through. Failures are logged; the protocol never blocks on the trail.
func (d *Database) RecordCombatAction(guildID, action, reason string, threatLevel int, detail string) {
	err := d.AppendCombatLog(CombatLogEntry{
		GuildID:     guildID,
		Action:      action,
		Reason:      reason,
		ThreatLevel: threatLevel,
		Detail:      detail,
	})
	if err != nil {
		logging.Error("Failed to record combat action %s for guild %s: %v", action, guildID, err)
	}
}

func (d *Database) RecentCombatLogs(guildID string, limit int) ([]CombatLogEntry, error) {
	rows, err := d.db.Query(
		`SELECT guild_id, action, reason, threat_level, detail, timestamp
		 FROM combat_logs WHERE guild_id = ? ORDER BY timestamp DESC LIMIT ?`,
		guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CombatLogEntry
	for rows.Next() {
		var e CombatLogEntry
		var ts int64
		if err := rows.Scan(&e.GuildID, &e.Action, &e.Reason, &e.ThreatLevel, &e.Detail, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Backup index, consumed by backup.FileStore.

func (d *Database) RecordBackup(ref, guildID, path string, createdAt int64) error {
	_, err := d.db.Exec(
		`INSERT INTO backups (ref, guild_id, path, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(ref) DO UPDATE SET path = excluded.path`,
		ref, guildID, path, createdAt)
	return err
}

func (d *Database) LookupBackup(ref string) (string, error) {
	var path string
	err := d.db.QueryRow(`SELECT path FROM backups WHERE ref = ?`, ref).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return path, err
}

// Encrypted channel blobs survive a restart so decryption stays possible.

func (d *Database) SaveEncryptedChannel(channelID, guildID, channelName string, blob []byte) error {
	_, err := d.db.Exec(
		`INSERT INTO encrypted_channels (channel_id, guild_id, channel_name, blob, encrypted_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET blob = excluded.blob, encrypted_at = excluded.encrypted_at`,
		channelID, guildID, channelName, blob, time.Now().Unix())
	return err
}

func (d *Database) LoadEncryptedBlob(channelID string) ([]byte, error) {
	var blob []byte
	err := d.db.QueryRow(
		`SELECT blob FROM encrypted_channels WHERE channel_id = ?`, channelID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return blob, err
}

func (d *Database) DeleteEncryptedChannel(channelID string) error {
	_, err := d.db.Exec(`DELETE FROM encrypted_channels WHERE channel_id = ?`, channelID)
	return err
}

func (d *Database) EncryptedChannels(guildID string) (map[string]string, error) {
	rows, err := d.db.Query(
		`SELECT channel_id, channel_name FROM encrypted_channels WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

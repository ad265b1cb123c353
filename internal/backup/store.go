package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedacia/guardian/internal/logging"
)

// Store persists snapshots and loads them back by storage handle.
type Store interface {
	Persist(snapshot *Snapshot) (string, error)
	Load(handle string) (*Snapshot, error)
}

// Index records where each snapshot landed so refs resolve after a
// restart. The SQLite layer implements it.
type Index interface {
	RecordBackup(ref, guildID, path string, createdAt int64) error
	LookupBackup(ref string) (string, error)
}

// FileStore writes one JSON file per snapshot under dir.
type FileStore struct {
	dir   string
	index Index
}

func NewFileStore(dir string, index Index) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}
	return &FileStore{dir: dir, index: index}, nil
}

func (fs *FileStore) Persist(snapshot *Snapshot) (string, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := fmt.Sprintf("%s_backup_%s.json", snapshot.GuildID,
		snapshot.CreatedAt.Format("20060102_150405"))
	path := filepath.Join(fs.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	if fs.index != nil {
		if err := fs.index.RecordBackup(snapshot.Ref, snapshot.GuildID, path, time.Now().Unix()); err != nil {
			logging.Warn("Failed to index backup %s: %v", snapshot.Ref, err)
		}
	}

	logging.Info("Backup persisted for guild %s: %s", snapshot.GuildID, path)
	return path, nil
}

func (fs *FileStore) Load(handle string) (*Snapshot, error) {
	path := handle
	if fs.index != nil {
		if indexed, err := fs.index.LookupBackup(handle); err == nil && indexed != "" {
			path = indexed
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", handle, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", handle, err)
	}
	return &snapshot, nil
}

// Latest returns the newest on-disk snapshot for a guild, or an error if
// none exist. File names sort chronologically by construction.
func (fs *FileStore) Latest(guildID string) (*Snapshot, error) {
	pattern := filepath.Join(fs.dir, guildID+"_backup_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no backups found for guild %s", guildID)
	}

	latest := matches[0]
	for _, m := range matches[1:] {
		if m > latest {
			latest = m
		}
	}
	return fs.Load(latest)
}

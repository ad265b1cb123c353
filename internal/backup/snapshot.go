package backup

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable structural capture of a guild: channels with
// their permission overwrites, roles with their exact bitmasks, and
// enough metadata to audit when and why it was taken.
type Snapshot struct {
	Ref         string            `json:"ref"`
	GuildID     string            `json:"guild_id"`
	GuildName   string            `json:"guild_name"`
	OwnerID     string            `json:"owner_id"`
	MemberCount int               `json:"member_count"`
	CreatedAt   time.Time         `json:"created_at"`
	Channels    []ChannelBackup   `json:"channels"`
	Roles       []RoleBackup      `json:"roles"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type ChannelBackup struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Position   int               `json:"position"`
	CategoryID string            `json:"category_id,omitempty"`
	Overwrites []OverwriteBackup `json:"overwrites,omitempty"`
}

type OverwriteBackup struct {
	TargetID   string `json:"target_id"`
	TargetType string `json:"target_type"`
	Allow      int64  `json:"allow"`
	Deny       int64  `json:"deny"`
}

type RoleBackup struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Mentionable bool   `json:"mentionable"`
	Permissions int64  `json:"permissions"`
	Position    int    `json:"position"`
}

func NewSnapshot(guildID, guildName, ownerID string, memberCount int) *Snapshot {
	return &Snapshot{
		Ref:         uuid.NewString(),
		GuildID:     guildID,
		GuildName:   guildName,
		OwnerID:     ownerID,
		MemberCount: memberCount,
		CreatedAt:   time.Now(),
	}
}

// RolePermissions returns the exact role id -> bitmask map captured in
// the snapshot.
func (s *Snapshot) RolePermissions() map[string]int64 {
	out := make(map[string]int64, len(s.Roles))
	for _, r := range s.Roles {
		out[r.ID] = r.Permissions
	}
	return out
}

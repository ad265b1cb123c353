package platform

import (
	"time"

	"github.com/bytedacia/guardian/internal/backup"
)

type ChannelType uint8

const (
	ChannelText ChannelType = iota
	ChannelVoice
	ChannelCategory
	ChannelOther
)

type Channel struct {
	ID         string
	Name       string
	Type       ChannelType
	Position   int
	CategoryID string
}

// Lockable reports whether the lockdown and encryption protocols touch
// this channel. Categories and voice channels are left alone.
func (c Channel) Lockable() bool {
	return c.Type != ChannelCategory && c.Type != ChannelVoice
}

type Role struct {
	ID          string
	Name        string
	Color       int
	Hoist       bool
	Mentionable bool
	Managed     bool
	IsEveryone  bool
	Permissions int64
	Position    int
}

type Member struct {
	UserID               string
	Username             string
	DisplayName          string
	AccountCreatedAt     time.Time
	HasAvatar            bool
	DefaultDiscriminator bool
	IsAdmin              bool
	IsBot                bool
	Roles                []string
}

type Message struct {
	ID       string
	AuthorID string
	Author   string
	Content  string
	FromBot  bool
	SentAt   time.Time
}

// Client is the platform mutation surface the defense engine drives.
// Every method may fail transiently; callers log and continue, phases
// are idempotent per target.
type Client interface {
	GuildName(guildID string) string
	GuildOwnerID(guildID string) (string, error)
	GuildChannels(guildID string) ([]Channel, error)
	GuildRoles(guildID string) ([]Role, error)
	RoleMembers(guildID, roleID string) ([]string, error)
	GetMember(guildID, userID string) (*Member, error)
	MemberNames(guildID string) []string

	HideChannel(guildID, channelID string, exceptions []string) error
	RestoreChannelVisibility(guildID, channelID string) error
	SetRolePermissions(guildID, roleID string, permissions int64) error
	BanMember(guildID, userID, reason string) error
	KickMember(guildID, userID, reason string) error
	RecentMessages(channelID string, limit int) ([]Message, error)

	SnapshotGuildStructure(guildID string) (*backup.Snapshot, error)
}

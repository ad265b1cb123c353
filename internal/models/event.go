package models

import "time"

type ActionKind uint8

const (
	ActionChannelDelete ActionKind = iota
	ActionRoleDelete
	ActionRoleModify
)

func (k ActionKind) String() string {
	switch k {
	case ActionChannelDelete:
		return "channel_delete"
	case ActionRoleDelete:
		return "role_delete"
	case ActionRoleModify:
		return "role_modify"
	default:
		return "unknown"
	}
}

// JoinEvent records a member arrival. Immutable once recorded.
type JoinEvent struct {
	UserID               string
	Username             string
	AccountCreatedAt     time.Time
	HasAvatar            bool
	DefaultDiscriminator bool
	JoinedAt             time.Time
}

type MessageEvent struct {
	UserID    string
	Content   string
	ChannelID string
	FromBot   bool
	SentAt    time.Time
}

type DestructiveAction struct {
	Kind     ActionKind
	TargetID string
	ActorID  string
	At       time.Time
}

package platform

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/bytedacia/guardian/internal/backup"
	"github.com/bytedacia/guardian/internal/logging"
)

// BanDispatcher is the low-latency REST path for member removal. The
// fasthttp executor implements it.
type BanDispatcher interface {
	ExecuteBan(guildID, userID, reason string) error
	ExecuteKick(guildID, userID, reason string) error
}

// DiscordClient adapts a discordgo session to the Client surface. Reads
// go through the gateway state cache where possible; mutations hit the
// REST API.
type DiscordClient struct {
	session *discordgo.Session
	bans    BanDispatcher

	mu sync.Mutex
	// overwrite targets set per channel during a hide, so restoration
	// removes exactly what was added.
	hiddenTargets map[string][]string
}

func NewDiscordClient(session *discordgo.Session) *DiscordClient {
	return &DiscordClient{
		session:       session,
		hiddenTargets: make(map[string][]string),
	}
}

// SetBanDispatcher routes bans through the pooled executor instead of
// the session's REST client.
func (c *DiscordClient) SetBanDispatcher(bans BanDispatcher) {
	c.bans = bans
}

func (c *DiscordClient) guild(guildID string) (*discordgo.Guild, error) {
	if g, err := c.session.State.Guild(guildID); err == nil {
		return g, nil
	}
	return c.session.Guild(guildID)
}

func (c *DiscordClient) GuildName(guildID string) string {
	g, err := c.guild(guildID)
	if err != nil {
		return guildID
	}
	return g.Name
}

func (c *DiscordClient) GuildOwnerID(guildID string) (string, error) {
	g, err := c.guild(guildID)
	if err != nil {
		return "", fmt.Errorf("guild lookup: %w", err)
	}
	return g.OwnerID, nil
}

func channelType(t discordgo.ChannelType) ChannelType {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return ChannelText
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return ChannelVoice
	case discordgo.ChannelTypeGuildCategory:
		return ChannelCategory
	default:
		return ChannelOther
	}
}

func (c *DiscordClient) GuildChannels(guildID string) ([]Channel, error) {
	g, err := c.guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild lookup: %w", err)
	}

	out := make([]Channel, 0, len(g.Channels))
	for _, ch := range g.Channels {
		out = append(out, Channel{
			ID:         ch.ID,
			Name:       ch.Name,
			Type:       channelType(ch.Type),
			Position:   ch.Position,
			CategoryID: ch.ParentID,
		})
	}
	return out, nil
}

func (c *DiscordClient) GuildRoles(guildID string) ([]Role, error) {
	g, err := c.guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild lookup: %w", err)
	}

	out := make([]Role, 0, len(g.Roles))
	for _, r := range g.Roles {
		out = append(out, Role{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Hoist:       r.Hoist,
			Mentionable: r.Mentionable,
			Managed:     r.Managed,
			IsEveryone:  r.ID == guildID,
			Permissions: r.Permissions,
			Position:    r.Position,
		})
	}
	return out, nil
}

func (c *DiscordClient) RoleMembers(guildID, roleID string) ([]string, error) {
	g, err := c.guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild lookup: %w", err)
	}

	var out []string
	for _, m := range g.Members {
		for _, r := range m.Roles {
			if r == roleID {
				out = append(out, m.User.ID)
				break
			}
		}
	}
	return out, nil
}

func (c *DiscordClient) GetMember(guildID, userID string) (*Member, error) {
	m, err := c.session.State.Member(guildID, userID)
	if err != nil {
		m, err = c.session.GuildMember(guildID, userID)
		if err != nil {
			return nil, fmt.Errorf("member lookup: %w", err)
		}
	}
	if m.User == nil {
		return nil, fmt.Errorf("member %s has no user record", userID)
	}

	created, err := discordgo.SnowflakeTimestamp(m.User.ID)
	if err != nil {
		logging.Warn("Bad snowflake for user %s: %v", m.User.ID, err)
	}

	return &Member{
		UserID:               m.User.ID,
		Username:             m.User.Username,
		DisplayName:          memberDisplayName(m),
		AccountCreatedAt:     created,
		HasAvatar:            m.User.Avatar != "",
		DefaultDiscriminator: m.User.Discriminator == "0" || m.User.Discriminator == "0000",
		IsAdmin:              c.memberIsAdmin(guildID, m),
		IsBot:                m.User.Bot,
		Roles:                m.Roles,
	}, nil
}

func memberDisplayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func (c *DiscordClient) memberIsAdmin(guildID string, m *discordgo.Member) bool {
	g, err := c.guild(guildID)
	if err != nil {
		return false
	}
	if m.User != nil && m.User.ID == g.OwnerID {
		return true
	}
	for _, roleID := range m.Roles {
		for _, r := range g.Roles {
			if r.ID == roleID && r.Permissions&discordgo.PermissionAdministrator != 0 {
				return true
			}
		}
	}
	return false
}

func (c *DiscordClient) MemberNames(guildID string) []string {
	g, err := c.guild(guildID)
	if err != nil {
		return nil
	}

	out := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m.User == nil {
			continue
		}
		out = append(out, m.User.Username)
	}
	return out
}

// lockdownDeny strips the whole messaging surface, not just view: a
// view-only deny leaves role-level allows usable once lockdown lifts a
// bit early, and the original incident runbook hides all five.
const lockdownDeny = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAddReactions |
	discordgo.PermissionUseSlashCommands

// protectedAllow gives exception users the full surface back plus the
// moderation bits they need while the guild is sealed.
const protectedAllow = lockdownDeny |
	discordgo.PermissionManageChannels |
	discordgo.PermissionManageMessages

// HideChannel denies the lockdown set for the everyone role and every
// other role, then grants the exception users full access. The targets
// are remembered so the restore removes exactly these overwrites.
func (c *DiscordClient) HideChannel(guildID, channelID string, exceptions []string) error {
	var targets []string

	// The everyone role shares the guild's id.
	err := c.session.ChannelPermissionSet(channelID, guildID,
		discordgo.PermissionOverwriteTypeRole, 0, lockdownDeny)
	if err != nil {
		return fmt.Errorf("deny everyone on channel %s: %w", channelID, err)
	}
	targets = append(targets, guildID)

	// A role-level channel overwrite allowing view would survive an
	// everyone-only deny, so each remaining role gets the same deny.
	if g, gerr := c.guild(guildID); gerr == nil {
		for _, role := range g.Roles {
			if role.ID == guildID {
				continue
			}
			if err := c.session.ChannelPermissionSet(channelID, role.ID,
				discordgo.PermissionOverwriteTypeRole, 0, lockdownDeny); err != nil {
				logging.Warn("Role deny failed for role %s on channel %s: %v",
					role.ID, channelID, err)
				continue
			}
			targets = append(targets, role.ID)
		}
	}

	for _, userID := range exceptions {
		err := c.session.ChannelPermissionSet(channelID, userID,
			discordgo.PermissionOverwriteTypeMember, protectedAllow, 0)
		if err != nil {
			logging.Warn("Exception overwrite failed for user %s on channel %s: %v",
				userID, channelID, err)
			continue
		}
		targets = append(targets, userID)
	}

	c.mu.Lock()
	c.hiddenTargets[channelID] = targets
	c.mu.Unlock()
	return nil
}

func (c *DiscordClient) RestoreChannelVisibility(guildID, channelID string) error {
	c.mu.Lock()
	targets := c.hiddenTargets[channelID]
	delete(c.hiddenTargets, channelID)
	c.mu.Unlock()

	if len(targets) == 0 {
		targets = []string{guildID}
	}

	var firstErr error
	for _, targetID := range targets {
		if err := c.session.ChannelPermissionDelete(channelID, targetID); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove overwrite %s on channel %s: %w", targetID, channelID, err)
			}
		}
	}
	return firstErr
}

func (c *DiscordClient) SetRolePermissions(guildID, roleID string, permissions int64) error {
	_, err := c.session.GuildRoleEdit(guildID, roleID, &discordgo.RoleParams{
		Permissions: &permissions,
	})
	if err != nil {
		return fmt.Errorf("role edit %s: %w", roleID, err)
	}
	return nil
}

func (c *DiscordClient) BanMember(guildID, userID, reason string) error {
	if c.bans != nil {
		return c.bans.ExecuteBan(guildID, userID, reason)
	}
	return c.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (c *DiscordClient) KickMember(guildID, userID, reason string) error {
	if c.bans != nil {
		return c.bans.ExecuteKick(guildID, userID, reason)
	}
	return c.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (c *DiscordClient) RecentMessages(channelID string, limit int) ([]Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("message history for channel %s: %w", channelID, err)
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Author == nil {
			continue
		}
		out = append(out, Message{
			ID:       m.ID,
			AuthorID: m.Author.ID,
			Author:   m.Author.Username,
			Content:  m.Content,
			FromBot:  m.Author.Bot,
			SentAt:   m.Timestamp,
		})
	}
	return out, nil
}

func overwriteType(t discordgo.PermissionOverwriteType) string {
	if t == discordgo.PermissionOverwriteTypeMember {
		return "member"
	}
	return "role"
}

func channelTypeName(t ChannelType) string {
	switch t {
	case ChannelText:
		return "text"
	case ChannelVoice:
		return "voice"
	case ChannelCategory:
		return "category"
	default:
		return "other"
	}
}

func (c *DiscordClient) SnapshotGuildStructure(guildID string) (*backup.Snapshot, error) {
	g, err := c.guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild lookup: %w", err)
	}

	snap := backup.NewSnapshot(guildID, g.Name, g.OwnerID, g.MemberCount)

	for _, ch := range g.Channels {
		cb := backup.ChannelBackup{
			ID:         ch.ID,
			Name:       ch.Name,
			Type:       channelTypeName(channelType(ch.Type)),
			Position:   ch.Position,
			CategoryID: ch.ParentID,
		}
		for _, ow := range ch.PermissionOverwrites {
			cb.Overwrites = append(cb.Overwrites, backup.OverwriteBackup{
				TargetID:   ow.ID,
				TargetType: overwriteType(ow.Type),
				Allow:      ow.Allow,
				Deny:       ow.Deny,
			})
		}
		snap.Channels = append(snap.Channels, cb)
	}

	for _, r := range g.Roles {
		snap.Roles = append(snap.Roles, backup.RoleBackup{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Hoist:       r.Hoist,
			Mentionable: r.Mentionable,
			Permissions: r.Permissions,
			Position:    r.Position,
		})
	}

	return snap, nil
}

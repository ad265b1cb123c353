package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bytedacia/guardian/internal/combat"
	"github.com/bytedacia/guardian/internal/logging"
	"github.com/bytedacia/guardian/internal/models"
)

// Gate is the rate-limiting countermeasure surface: events rejected
// while a guild is under combat get suppressed at the edge.
type Gate interface {
	AllowEvent(guildID string) bool
}

// SetupEventHandlers wires gateway events into the combat controller.
func (s *Session) SetupEventHandlers(controller *combat.Controller, gate Gate) {
	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.Ready) {
		logging.Info("Gateway ready, watching %d guilds", len(r.Guilds))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, g *discordgo.GuildCreate) {
		logging.Info("Guild loaded: %s (%s), %d members", g.Name, g.ID, g.MemberCount)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberAdd) {
		s.beat()
		if m.GuildID == "" || m.User == nil {
			return
		}

		created, err := discordgo.SnowflakeTimestamp(m.User.ID)
		if err != nil {
			logging.Warn("Bad snowflake for joining user %s: %v", m.User.ID, err)
		}

		controller.OnJoin(m.GuildID, models.JoinEvent{
			UserID:               m.User.ID,
			Username:             m.User.Username,
			AccountCreatedAt:     created,
			HasAvatar:            m.User.Avatar != "",
			DefaultDiscriminator: m.User.Discriminator == "0" || m.User.Discriminator == "0000",
			JoinedAt:             time.Now(),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.MessageCreate) {
		s.beat()
		if m.GuildID == "" || m.Author == nil {
			return
		}
		if s.discord.State.User != nil && m.Author.ID == s.discord.State.User.ID {
			return
		}

		if gate != nil && !m.Author.Bot && !gate.AllowEvent(m.GuildID) {
			if err := sess.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
				logging.Debug("Rate-limit delete failed for message %s: %v", m.ID, err)
			}
			return
		}

		controller.OnMessage(m.GuildID, models.MessageEvent{
			UserID:    m.Author.ID,
			Content:   m.Content,
			ChannelID: m.ChannelID,
			FromBot:   m.Author.Bot,
			SentAt:    time.Now(),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, c *discordgo.ChannelDelete) {
		if c.GuildID == "" {
			return
		}
		controller.OnAction(c.GuildID, models.DestructiveAction{
			Kind:     models.ActionChannelDelete,
			TargetID: c.ID,
			ActorID:  s.fetchActor(c.GuildID, discordgo.AuditLogActionChannelDelete, c.ID),
			At:       time.Now(),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.GuildRoleDelete) {
		if r.GuildID == "" {
			return
		}
		controller.OnAction(r.GuildID, models.DestructiveAction{
			Kind:     models.ActionRoleDelete,
			TargetID: r.RoleID,
			ActorID:  s.fetchActor(r.GuildID, discordgo.AuditLogActionRoleDelete, r.RoleID),
			At:       time.Now(),
		})
	})

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.GuildRoleUpdate) {
		if r.GuildID == "" || r.Role == nil {
			return
		}
		controller.OnAction(r.GuildID, models.DestructiveAction{
			Kind:     models.ActionRoleModify,
			TargetID: r.Role.ID,
			ActorID:  s.fetchActor(r.GuildID, discordgo.AuditLogActionRoleUpdate, r.Role.ID),
			At:       time.Now(),
		})
	})
}

// fetchActor resolves who performed a destructive action from the audit
// log. Best effort; an empty id means the log was unavailable.
func (s *Session) fetchActor(guildID string, actionType discordgo.AuditLogAction, targetID string) string {
	audit, err := s.discord.GuildAuditLog(guildID, "", "", int(actionType), 5)
	if err != nil {
		logging.Debug("Audit log fetch failed for guild %s: %v", guildID, err)
		return ""
	}
	for _, entry := range audit.AuditLogEntries {
		if entry.TargetID == targetID {
			return entry.UserID
		}
	}
	return ""
}

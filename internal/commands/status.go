package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bytedacia/guardian/internal/database"
	"github.com/bytedacia/guardian/internal/metrics"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/monitor"
	"github.com/bytedacia/guardian/internal/protect"
)

func (h *Handler) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	state := h.controller.State(i.GuildID)
	sess := h.controller.Session(i.GuildID)

	embed := &discordgo.MessageEmbed{
		Title: "Defense Status",
		Color: statusColor(state),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "State", Value: strings.ToUpper(state.String()), Inline: true},
			{Name: "Defense", Value: enabledLabel(h.cfg.Defense.Enabled), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if sess != nil {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{
				Name: "Threat Level", Value: fmt.Sprintf("%d/10", sess.ThreatLevel), Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name: "Reason", Value: sess.Reason, Inline: false,
			},
			&discordgo.MessageEmbedField{
				Name: "Engaged", Value: fmt.Sprintf("<t:%d:R>", sess.StartedAt.Unix()), Inline: true,
			},
		)
		if active := sess.ActiveCountermeasures(); len(active) > 0 {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "Countermeasures", Value: strings.Join(active, ", "), Inline: false,
			})
		}
		if sess.BackupRef != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "Backup", Value: fmt.Sprintf("`%s`", sess.BackupRef), Inline: false,
			})
		}
	}

	return respondEmbed(s, i, embed)
}

func statusColor(state models.CombatState) int {
	switch state {
	case models.StateIdle:
		return 0x57F287
	case models.StateCooldown:
		return 0xFEE75C
	default:
		return 0xED4245
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "Enabled"
	}
	return "Disabled"
}

func connectionLabel(connected bool) string {
	if connected {
		return "connected"
	}
	return "unavailable"
}

func (h *Handler) handleDeactivate(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOperator(i) {
		return respond(s, i, "Only the server owner can deactivate the defense response.")
	}

	if h.controller.ForceDeactivate(i.GuildID, "manual deactivation by "+invokerID(i)) {
		return respond(s, i, "Combat response deactivated. Permissions and channels restored.")
	}
	return respond(s, i, "No active combat response for this guild.")
}

func (h *Handler) handleEncrypt(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOperator(i) {
		return respond(s, i, "Only the server owner can trigger emergency encryption.")
	}

	sealed := h.vault.EmergencyEncrypt(i.GuildID)
	if sealed == 0 {
		return respond(s, i, "No channels to seal.")
	}
	h.controller.SetEmergencyEncryption(i.GuildID, true)
	return respond(s, i, fmt.Sprintf("Emergency encryption engaged: %d channels sealed and hidden.", sealed))
}

func (h *Handler) handleDecrypt(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOperator(i) {
		return respond(s, i, "Only the server owner can release encrypted channels.")
	}

	restored := h.vault.DecryptAndRestore(i.GuildID)
	if restored == 0 {
		return respond(s, i, "No encrypted channels for this guild.")
	}
	h.controller.SetEmergencyEncryption(i.GuildID, false)
	return respond(s, i, fmt.Sprintf("%d channels decrypted and restored.", restored))
}

func (h *Handler) handleLogs(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	entries, err := h.db.RecentCombatLogs(i.GuildID, 10)
	if err != nil {
		return respond(s, i, "Failed to read the combat log trail.")
	}
	if len(entries) == 0 {
		return respond(s, i, "No combat log entries for this guild.")
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "<t:%d:T> **%s**", e.Timestamp.Unix(), e.Action)
		if e.Reason != "" {
			fmt.Fprintf(&b, " - %s", e.Reason)
		}
		if e.Detail != "" {
			fmt.Fprintf(&b, " (%s)", e.Detail)
		}
		b.WriteString("\n")
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Combat Log",
		Color:       0x5865F2,
		Description: b.String(),
	})
}

func (h *Handler) handleProtectAdd(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOperator(i) {
		return respond(s, i, "Only the server owner can manage protected users.")
	}

	user := commandUser(s, i)
	if user == nil {
		return respond(s, i, "No user given.")
	}

	if h.registry.Add(user.ID, protect.KindManual) {
		return respond(s, i, fmt.Sprintf("<@%s> is now protected.", user.ID))
	}
	return respond(s, i, fmt.Sprintf("<@%s> was already protected.", user.ID))
}

func (h *Handler) handleProtectRemove(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOperator(i) {
		return respond(s, i, "Only the server owner can manage protected users.")
	}

	user := commandUser(s, i)
	if user == nil {
		return respond(s, i, "No user given.")
	}

	if h.registry.Remove(user.ID) {
		return respond(s, i, fmt.Sprintf("<@%s> removed from the protected list.", user.ID))
	}
	return respond(s, i, fmt.Sprintf("<@%s> was not on the protected list.", user.ID))
}

func (h *Handler) handleProtectList(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	entries := h.registry.Entries()
	if len(entries) == 0 {
		return respond(s, i, "No users on the protected list.")
	}

	var b strings.Builder
	for userID, kind := range entries {
		fmt.Fprintf(&b, "<@%s> (`%s`)\n", userID, kind)
	}
	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Protected Users",
		Color:       0x57F287,
		Description: b.String(),
	})
}

func (h *Handler) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	stats := monitor.Capture()
	counters := metrics.Snapshot()

	var b strings.Builder
	b.WriteString(stats.Summary())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Joins tracked: %d\n", counters.JoinsTracked)
	fmt.Fprintf(&b, "Messages tracked: %d\n", counters.MessagesTracked)
	fmt.Fprintf(&b, "Destructive actions: %d\n", counters.ActionsTracked)
	fmt.Fprintf(&b, "Signals raised: %d\n", counters.SignalsRaised)
	fmt.Fprintf(&b, "Combats engaged: %d\n", counters.CombatsEngaged)
	fmt.Fprintf(&b, "Bans executed: %d\n", counters.BansExecuted)
	fmt.Fprintf(&b, "Database: %s\n", connectionLabel(database.IsConnected()))

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "System Statistics",
		Color:       0x5865F2,
		Description: "```\n" + b.String() + "```",
	})
}

// commandUser extracts the user option from a protect subcommand.
func commandUser(s *discordgo.Session, i *discordgo.InteractionCreate) *discordgo.User {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 || len(data.Options[0].Options) == 0 {
		return nil
	}
	sub := data.Options[0].Options[0]
	for _, opt := range sub.Options {
		if opt.Type == discordgo.ApplicationCommandOptionUser {
			return opt.UserValue(s)
		}
	}
	return nil
}

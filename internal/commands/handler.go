package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/bytedacia/guardian/internal/bot"
	"github.com/bytedacia/guardian/internal/combat"
	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/database"
	"github.com/bytedacia/guardian/internal/logging"
	"github.com/bytedacia/guardian/internal/protect"
)

// Vault is the emergency-encryption surface. The countermeasure
// orchestrator implements it.
type Vault interface {
	EmergencyEncrypt(guildID string) int
	DecryptAndRestore(guildID string) int
}

// Handler routes slash commands to the defense engine.
type Handler struct {
	session    *bot.Session
	controller *combat.Controller
	registry   *protect.Registry
	vault      Vault
	db         *database.Database
	cfg        *config.Config
}

// Initialize registers the interaction handler and publishes commands.
func Initialize(session *bot.Session, controller *combat.Controller, registry *protect.Registry, vault Vault, db *database.Database, cfg *config.Config) (*Handler, error) {
	h := &Handler{
		session:    session,
		controller: controller,
		registry:   registry,
		vault:      vault,
		db:         db,
		cfg:        cfg,
	}

	session.AddHandler(h.handleInteraction)

	cmds := GetAllCommands()
	if err := session.RegisterCommands(cmds); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}

	logging.Info("Command handler initialized with %d commands", len(cmds))
	return h, nil
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case "guardian":
		if len(data.Options) == 0 {
			return
		}
		switch data.Options[0].Name {
		case "status":
			err = h.handleStatus(s, i)
		case "deactivate":
			err = h.handleDeactivate(s, i)
		case "logs":
			err = h.handleLogs(s, i)
		case "encrypt":
			err = h.handleEncrypt(s, i)
		case "decrypt":
			err = h.handleDecrypt(s, i)
		case "protect":
			if len(data.Options[0].Options) == 0 {
				return
			}
			switch data.Options[0].Options[0].Name {
			case "add":
				err = h.handleProtectAdd(s, i)
			case "remove":
				err = h.handleProtectRemove(s, i)
			case "list":
				err = h.handleProtectList(s, i)
			}
		}
	case "stats":
		err = h.handleStats(s, i)
	}

	if err != nil {
		logging.Error("Command %s failed: %v", data.Name, err)
	}
}

// invokerID returns the user id behind an interaction.
func invokerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// isOperator restricts mutating commands to the configured owner and
// the guild owner.
func (h *Handler) isOperator(i *discordgo.InteractionCreate) bool {
	userID := invokerID(i)
	if userID == "" {
		return false
	}
	if userID == h.cfg.Bot.OwnerID {
		return true
	}
	if g, err := h.session.Discord().State.Guild(i.GuildID); err == nil && g.OwnerID == userID {
		return true
	}
	return false
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

package commands

import "github.com/bwmarrin/discordgo"

// GetAllCommands returns all application commands
func GetAllCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "guardian",
			Description: "Manage the guild defense system",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "status",
					Description: "Show the current defense state for this guild",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "deactivate",
					Description: "End the active combat response and restore the guild",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "logs",
					Description: "Show the recent combat log trail",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "encrypt",
					Description: "Seal channel history and hide all channels (emergency)",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "decrypt",
					Description: "Release emergency-encrypted channels",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "protect",
					Description: "Manage protected users",
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "add",
							Description: "Add a user to the protected list",
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Options: []*discordgo.ApplicationCommandOption{
								{
									Name:        "user",
									Description: "User to protect",
									Type:        discordgo.ApplicationCommandOptionUser,
									Required:    true,
								},
							},
						},
						{
							Name:        "remove",
							Description: "Remove a user from the protected list",
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Options: []*discordgo.ApplicationCommandOption{
								{
									Name:        "user",
									Description: "User to remove",
									Type:        discordgo.ApplicationCommandOptionUser,
									Required:    true,
								},
							},
						},
						{
							Name:        "list",
							Description: "List protected users",
							Type:        discordgo.ApplicationCommandOptionSubCommand,
						},
					},
				},
			},
		},
		{
			Name:        "stats",
			Description: "Show host and process statistics",
		},
	}
}

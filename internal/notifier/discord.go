package notifier

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bytedacia/guardian/internal/logging"
)

// DiscordSink posts alerts as embeds in the configured log channel.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordSink(session *discordgo.Session, channelID string) *DiscordSink {
	return &DiscordSink{session: session, channelID: channelID}
}

func (s *DiscordSink) Send(subject, body string) {
	if s.session == nil || s.channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       subject,
		Color:       0xED4245,
		Description: bodyToDescription(body),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Guardian Defense System",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	go func() {
		if _, err := s.session.ChannelMessageSendEmbed(s.channelID, embed); err != nil {
			logging.Error("Failed to post alert embed: %v", err)
		}
	}()
}

// bodyToDescription bolds the "Key: value" labels of a plain-text alert
// body so the embed reads as a field list.
func bodyToDescription(body string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 {
			lines[i] = "**" + line[:idx] + ":**" + line[idx+1:]
		}
	}
	out := strings.Join(lines, "\n")
	if len(out) > 4000 {
		out = out[:4000]
	}
	return out
}

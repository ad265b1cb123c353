package countermeasure

import (
	"github.com/bytedacia/guardian/internal/logging"
)

// Lockdown hides every lockable channel from the default role and all
// other roles, keeping access for protected users. Re-applying to an
// already-hidden channel is a no-op; encrypted channels are skipped
// because encryption already implies lockdown.
func (o *Orchestrator) Lockdown(guildID string) int {
	channels, err := o.client.GuildChannels(guildID)
	if err != nil {
		logging.Error("Channel listing failed during lockdown for guild %s: %v", guildID, err)
		return 0
	}

	exceptions := o.protectedExceptions(guildID)

	hidden := 0
	for _, ch := range channels {
		if !ch.Lockable() {
			continue
		}
		switch o.channelState(ch.ID) {
		case visibilityEncrypted:
			continue
		case visibilityLockdown:
			hidden++
			continue
		}

		if err := o.client.HideChannel(guildID, ch.ID, exceptions); err != nil {
			logging.Error("Failed to hide channel %s (%s): %v", ch.Name, ch.ID, err)
			continue
		}
		o.setChannelState(ch.ID, visibilityLockdown)
		hidden++
	}

	logging.Warn("Channel lockdown: %d channels hidden in guild %s", hidden, guildID)
	return hidden
}

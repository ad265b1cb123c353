package platform

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestLockdownDenyCoversMessagingSurface(t *testing.T) {
	bits := []struct {
		name string
		bit  int64
	}{
		{"view", discordgo.PermissionViewChannel},
		{"send", discordgo.PermissionSendMessages},
		{"history", discordgo.PermissionReadMessageHistory},
		{"reactions", discordgo.PermissionAddReactions},
		{"slash", discordgo.PermissionUseSlashCommands},
	}
	for _, b := range bits {
		if lockdownDeny&b.bit == 0 {
			t.Errorf("lockdown deny missing %s", b.name)
		}
	}
}

func TestProtectedAllowSupersetsDenyPlusModeration(t *testing.T) {
	if protectedAllow&lockdownDeny != lockdownDeny {
		t.Error("exception users must get back everything lockdown denies")
	}
	if protectedAllow&discordgo.PermissionManageChannels == 0 ||
		protectedAllow&discordgo.PermissionManageMessages == 0 {
		t.Error("exception users need the moderation bits during lockdown")
	}
}

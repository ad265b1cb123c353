package countermeasure

import (
	"time"

	"github.com/bytedacia/guardian/internal/logging"
	"github.com/bytedacia/guardian/internal/protect"
)

// frozenPermissions is the minimal bitmask applied during a freeze:
// no view, no send, no connect, no speak.
const frozenPermissions int64 = 0

// FreezePermissions snapshots every role's exact permission bitmask,
// zeroes it, and schedules the restore job. Roles holding a protected
// member are skipped and logged; the everyone role and managed
// (integration-owned) roles cannot be frozen.
func (o *Orchestrator) FreezePermissions(guildID string) int {
	roles, err := o.client.GuildRoles(guildID)
	if err != nil {
		logging.Error("Role listing failed during freeze for guild %s: %v", guildID, err)
		return 0
	}

	ctx := o.guildContext(guildID)
	snapshot := make(map[string]int64)

	for _, role := range roles {
		if role.IsEveryone || role.Managed {
			continue
		}
		if o.roleHasProtectedMember(guildID, role.ID, ctx) {
			logging.Info("Keeping permissions for role %s (contains protected users)", role.Name)
			continue
		}

		// The snapshot records the exact original bitmask so restoration
		// is lossless.
		snapshot[role.ID] = role.Permissions

		if err := o.client.SetRolePermissions(guildID, role.ID, frozenPermissions); err != nil {
			logging.Error("Failed to freeze role %s (%s): %v", role.Name, role.ID, err)
		}
	}

	if len(snapshot) > 0 {
		delay := time.Duration(o.cfg.Defense.RestoreDelaySeconds) * time.Second
		o.scheduler.Schedule(guildID, snapshot, delay, o.ApplyPermissionSnapshot)
	}

	logging.Warn("Permissions disabled for %d roles in guild %s", len(snapshot), guildID)
	return len(snapshot)
}

// roleHasProtectedMember is a pure predicate over the registry and the
// role's current membership; it performs no mutation so the freeze stays
// transactional.
func (o *Orchestrator) roleHasProtectedMember(guildID, roleID string, ctx *protect.GuildContext) bool {
	members, err := o.client.RoleMembers(guildID, roleID)
	if err != nil {
		logging.Warn("Member listing failed for role %s: %v", roleID, err)
		return false
	}
	for _, userID := range members {
		if o.registry.IsProtected(userID, ctx) {
			return true
		}
	}
	return false
}

// ApplyPermissionSnapshot is the restore-job body: it reapplies the
// exact pre-freeze bitmasks, skipping roles deleted in the interim.
func (o *Orchestrator) ApplyPermissionSnapshot(guildID string, snapshot map[string]int64) {
	roles, err := o.client.GuildRoles(guildID)
	if err != nil {
		logging.Error("Role listing failed during restore for guild %s: %v", guildID, err)
		return
	}

	existing := make(map[string]bool, len(roles))
	for _, r := range roles {
		existing[r.ID] = true
	}

	restored := 0
	for roleID, permissions := range snapshot {
		if !existing[roleID] {
			logging.Warn("Role %s deleted before restore, skipping", roleID)
			continue
		}
		if err := o.client.SetRolePermissions(guildID, roleID, permissions); err != nil {
			logging.Error("Failed to restore role %s: %v", roleID, err)
			continue
		}
		restored++
	}

	o.record(guildID, "PERMISSIONS_RESTORED", "", 0, "")
	logging.Info("Permissions restored for %d roles in guild %s", restored, guildID)
}

package countermeasure

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/bytedacia/guardian/internal/logging"
	"github.com/bytedacia/guardian/internal/metrics"
	"github.com/bytedacia/guardian/internal/models"
)

// ActivateCountermeasures toggles the configured countermeasure set and
// records it on the session. Returns the names that were activated.
func (o *Orchestrator) ActivateCountermeasures(sess *models.CombatSession, sig *models.ThreatSignal) []string {
	var activated []string
	guildID := sess.GuildID

	if o.cfg.Defense.RateLimiting {
		o.mu.Lock()
		// One message per second with a small burst while combat is live.
		o.limiters[guildID] = rate.NewLimiter(rate.Every(time.Second), 5)
		o.mu.Unlock()
		sess.Countermeasures[MeasureRateLimiting] = true
		activated = append(activated, MeasureRateLimiting)
		logging.Info("Rate limiting activated for guild %s", guildID)
	}

	if o.cfg.Defense.BehaviorAnalysis {
		sess.Countermeasures[MeasureBehaviorAnalysis] = true
		activated = append(activated, MeasureBehaviorAnalysis)
		logging.Info("Behavior analysis enhanced for guild %s", guildID)
	}

	if o.cfg.Defense.PatternDetection {
		sess.Countermeasures[MeasurePatternDetection] = true
		activated = append(activated, MeasurePatternDetection)
		logging.Info("Pattern detection activated for guild %s", guildID)
	}

	if o.cfg.Defense.AutoBan {
		banned, kicked := o.AutoBan(guildID, sig.Reason)
		sess.Countermeasures[MeasureAutoBan] = true
		activated = append(activated, MeasureAutoBan)
		o.record(guildID, "AUTO_BAN_ACTIVATED", sig.Reason, sig.Severity,
			fmt.Sprintf("banned_count=%d kicked_count=%d", banned, kicked))
	}

	return activated
}

// AutoBan removes recent joiners that are neither administrators nor
// protected. Accounts under the new-account age threshold are banned;
// aged accounts with no avatar and a default discriminator get the
// softer kick tier. Per-user failures are logged and never block the
// remaining removals.
func (o *Orchestrator) AutoBan(guildID, reason string) (banned, kicked int) {
	now := time.Now()
	joins := o.activity.JoinsWithin(guildID, o.th.AutoBanJoinWindow, now)
	ctx := o.guildContext(guildID)

	for _, join := range joins {
		member, err := o.client.GetMember(guildID, join.UserID)
		if err != nil || member == nil {
			continue
		}
		if member.IsAdmin {
			continue
		}
		if o.registry.IsProtected(join.UserID, ctx) {
			logging.Info("Skipping removal for protected user %s", join.UserID)
			continue
		}

		if now.Sub(member.AccountCreatedAt) < o.th.NewAccountAge {
			banReason := fmt.Sprintf("Combat protocol - suspicious account detected during %s", reason)
			if err := o.client.BanMember(guildID, join.UserID, banReason); err != nil {
				logging.Error("Failed to ban member %s: %v", join.UserID, err)
				continue
			}
			metrics.IncrBans()
			banned++
			continue
		}

		if !member.HasAvatar && member.DefaultDiscriminator {
			kickReason := fmt.Sprintf("Combat protocol - unverified account removed during %s", reason)
			if err := o.client.KickMember(guildID, join.UserID, kickReason); err != nil {
				logging.Error("Failed to kick member %s: %v", join.UserID, err)
				continue
			}
			kicked++
		}
	}

	logging.Warn("Auto-ban: %d banned, %d kicked in guild %s", banned, kicked, guildID)
	return banned, kicked
}

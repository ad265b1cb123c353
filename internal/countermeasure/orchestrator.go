package countermeasure

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bytedacia/guardian/internal/backup"
	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/logging"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/monitor"
	"github.com/bytedacia/guardian/internal/platform"
	"github.com/bytedacia/guardian/internal/protect"
	"github.com/bytedacia/guardian/internal/restore"
	"github.com/bytedacia/guardian/internal/tracker"
)

const (
	MeasureRateLimiting     = "rate_limiting"
	MeasureBehaviorAnalysis = "behavior_analysis"
	MeasurePatternDetection = "pattern_detection"
	MeasureAutoBan          = "auto_ban"
)

// Sink receives structured alerts. Failures are logged only.
type Sink interface {
	Send(subject, body string)
}

// Recorder appends rows to the persistent combat log trail.
type Recorder interface {
	RecordCombatAction(guildID, action, reason string, threatLevel int, detail string)
}

// BlobStore persists emergency-encrypted channel blobs.
type BlobStore interface {
	SaveEncryptedChannel(channelID, guildID, channelName string, blob []byte) error
	DeleteEncryptedChannel(channelID string) error
}

type channelVisibility uint8

const (
	visibilityNormal channelVisibility = iota
	visibilityLockdown
	visibilityEncrypted
)

// Orchestrator executes the countermeasure protocol against the platform:
// backup, lockdown, permission freeze with scheduled restore, named
// countermeasures, notification. Every phase is best-effort and
// idempotent per target.
type Orchestrator struct {
	client    platform.Client
	registry  *protect.Registry
	activity  *tracker.Tracker
	store     backup.Store
	scheduler *restore.Scheduler
	sink      Sink
	recorder  Recorder
	cfg       *config.Config
	th        *config.Thresholds
	vault     *Vault

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	channels map[string]channelVisibility
}

func NewOrchestrator(
	client platform.Client,
	registry *protect.Registry,
	activity *tracker.Tracker,
	store backup.Store,
	scheduler *restore.Scheduler,
	cfg *config.Config,
	th *config.Thresholds,
) *Orchestrator {
	return &Orchestrator{
		client:    client,
		registry:  registry,
		activity:  activity,
		store:     store,
		scheduler: scheduler,
		cfg:       cfg,
		th:        th,
		vault:     NewVault(),
		limiters:  make(map[string]*rate.Limiter),
		channels:  make(map[string]channelVisibility),
	}
}

func (o *Orchestrator) SetSink(sink Sink)             { o.sink = sink }
func (o *Orchestrator) SetRecorder(recorder Recorder) { o.recorder = recorder }
func (o *Orchestrator) SetBlobStore(store BlobStore)  { o.vault.store = store }

// Execute runs the full protocol for one combat session. The session is
// mutated (backup ref, active countermeasures) but state transitions stay
// with the combat controller.
func (o *Orchestrator) Execute(sess *models.CombatSession, sig *models.ThreatSignal) error {
	guildID := sess.GuildID
	logging.Warn("Combat protocol engaged for guild %s: %s (severity %d)",
		guildID, sig.Reason, sig.Severity)
	o.record(guildID, "COMBAT_INITIATED", sig.Reason, sig.Severity, "")

	// Phase 1: backup. Non-fatal, the protocol continues without a ref.
	if snap, err := o.client.SnapshotGuildStructure(guildID); err != nil {
		logging.Error("Backup failed for guild %s: %v", guildID, err)
	} else if handle, err := o.store.Persist(snap); err != nil {
		logging.Error("Backup persist failed for guild %s: %v", guildID, err)
	} else {
		sess.BackupRef = handle
		o.record(guildID, "BACKUP_CREATED", sig.Reason, sig.Severity, handle)
	}

	// Phase 2: lockdown.
	hidden := o.Lockdown(guildID)
	o.record(guildID, "CHANNEL_LOCKDOWN", sig.Reason, sig.Severity,
		fmt.Sprintf("hidden_channels=%d", hidden))

	// Phase 3: permission freeze with scheduled restore.
	frozen := o.FreezePermissions(guildID)
	o.record(guildID, "PERMISSIONS_DISABLED", sig.Reason, sig.Severity,
		fmt.Sprintf("frozen_roles=%d delay=%ds", frozen, o.cfg.Defense.RestoreDelaySeconds))

	// Phase 4: named countermeasures.
	activated := o.ActivateCountermeasures(sess, sig)
	o.record(guildID, "COUNTERMEASURES_ACTIVATED", sig.Reason, sig.Severity,
		strings.Join(activated, ","))

	// Phase 5: notification.
	o.notify(sess, sig, activated)

	return nil
}

func (o *Orchestrator) record(guildID, action, reason string, threatLevel int, detail string) {
	if o.recorder != nil {
		o.recorder.RecordCombatAction(guildID, action, reason, threatLevel, detail)
	}
}

func (o *Orchestrator) notify(sess *models.CombatSession, sig *models.ThreatSignal, activated []string) {
	if o.sink == nil {
		return
	}

	subject := "RAID DETECTED - COMBAT PROTOCOL ENGAGED"
	body := fmt.Sprintf(
		"Server: %s\nGuild ID: %s\nThreat: %s\nThreat level: %d/10\nTime: %s\nBackup: %s\nCountermeasures: %s\n",
		o.client.GuildName(sess.GuildID), sess.GuildID, sig.Reason, sig.Severity,
		time.Now().Format(time.RFC3339), sess.BackupRef, strings.Join(activated, ", "))
	body += "\n" + monitor.Capture().Summary()
	o.sink.Send(subject, body)
}

// guildContext builds the protection-resolution context for one guild.
func (o *Orchestrator) guildContext(guildID string) *protect.GuildContext {
	ownerID, err := o.client.GuildOwnerID(guildID)
	if err != nil {
		logging.Warn("Owner lookup failed for guild %s: %v", guildID, err)
	}
	return &protect.GuildContext{
		GuildID: guildID,
		OwnerID: ownerID,
		LookupMember: func(userID string) (string, string, bool) {
			m, err := o.client.GetMember(guildID, userID)
			if err != nil || m == nil {
				return "", "", false
			}
			return m.Username, m.DisplayName, true
		},
	}
}

// protectedExceptions lists the user ids that keep channel access during
// lockdown: the configured owner, the guild owner, and every allowlisted
// user.
func (o *Orchestrator) protectedExceptions(guildID string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	add(o.cfg.Bot.OwnerID)
	if ownerID, err := o.client.GuildOwnerID(guildID); err == nil {
		add(ownerID)
	}
	for userID := range o.registry.Entries() {
		add(userID)
	}
	return out
}

func (o *Orchestrator) channelState(channelID string) channelVisibility {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.channels[channelID]
}

func (o *Orchestrator) setChannelState(channelID string, v channelVisibility) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v == visibilityNormal {
		delete(o.channels, channelID)
		return
	}
	o.channels[channelID] = v
}

// AllowEvent consults the rate-limiting countermeasure for a guild.
// Without an active limiter everything passes.
func (o *Orchestrator) AllowEvent(guildID string) bool {
	o.mu.Lock()
	limiter := o.limiters[guildID]
	o.mu.Unlock()
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// Deactivate tears down lockdown state for a guild: hidden channels
// regain visibility, the rate limiter is dropped. Encrypted channels are
// untouched; only decryption releases those.
func (o *Orchestrator) Deactivate(guildID string) int {
	channels, err := o.client.GuildChannels(guildID)
	if err != nil {
		logging.Error("Channel listing failed during deactivation for guild %s: %v", guildID, err)
		return 0
	}

	restored := 0
	for _, ch := range channels {
		if o.channelState(ch.ID) != visibilityLockdown {
			continue
		}
		if err := o.client.RestoreChannelVisibility(guildID, ch.ID); err != nil {
			logging.Error("Visibility restore failed for channel %s: %v", ch.ID, err)
			continue
		}
		o.setChannelState(ch.ID, visibilityNormal)
		restored++
	}

	o.mu.Lock()
	delete(o.limiters, guildID)
	o.mu.Unlock()

	o.record(guildID, "PROTECTION_DEACTIVATED", "", 0,
		fmt.Sprintf("restored_channels=%d", restored))
	logging.Info("Protection deactivated for guild %s: %d channels restored", guildID, restored)
	return restored
}

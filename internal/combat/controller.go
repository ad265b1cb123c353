package combat

import (
	"sync"
	"time"

	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/detectors"
	"github.com/bytedacia/guardian/internal/logging"
	"github.com/bytedacia/guardian/internal/metrics"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/restore"
	"github.com/bytedacia/guardian/internal/tracker"
)

// Protocol is the countermeasure surface the controller drives. The
// orchestrator implements it.
type Protocol interface {
	Execute(sess *models.CombatSession, sig *models.ThreatSignal) error
	Deactivate(guildID string) int
}

// guildCombat serializes all state transitions for one guild. The
// session pointer is only touched while mu is held; platform I/O always
// happens after release.
type guildCombat struct {
	mu      sync.Mutex
	session *models.CombatSession
}

// Controller owns the per-guild combat state machine:
// idle -> alert -> combat -> cooldown -> idle. Detection events feed the
// activity tracker, every event triggers a detector sweep, and confirmed
// signals engage the countermeasure protocol.
type Controller struct {
	activity  *tracker.Tracker
	protocol  Protocol
	scheduler *restore.Scheduler
	cfg       *config.Config
	th        *config.Thresholds

	mu     sync.Mutex
	guilds map[string]*guildCombat

	heartbeat func(component string)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// SetHeartbeat installs the watchdog callback pinged on each sweep.
func (c *Controller) SetHeartbeat(fn func(component string)) {
	c.heartbeat = fn
}

func NewController(
	activity *tracker.Tracker,
	protocol Protocol,
	scheduler *restore.Scheduler,
	cfg *config.Config,
	th *config.Thresholds,
) *Controller {
	c := &Controller{
		activity:  activity,
		protocol:  protocol,
		scheduler: scheduler,
		cfg:       cfg,
		th:        th,
		guilds:    make(map[string]*guildCombat),
		stopCh:    make(chan struct{}),
	}
	scheduler.OnFire(c.onRestoreFired)
	return c
}

func (c *Controller) guild(guildID string) *guildCombat {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guilds[guildID]
	if !ok {
		g = &guildCombat{}
		c.guilds[guildID] = g
	}
	return g
}

// OnJoin records a member join and sweeps the detectors.
func (c *Controller) OnJoin(guildID string, ev models.JoinEvent) {
	if !c.cfg.Defense.Enabled {
		return
	}
	c.activity.RecordJoin(guildID, ev)
	metrics.IncrJoins()
	c.evaluate(guildID)
}

// OnMessage records a message and sweeps the detectors. Bot traffic is
// tracked but never triggers a sweep on its own.
func (c *Controller) OnMessage(guildID string, ev models.MessageEvent) {
	if !c.cfg.Defense.Enabled {
		return
	}
	c.activity.RecordMessage(guildID, ev)
	metrics.IncrMessages()
	if ev.FromBot {
		return
	}
	c.evaluate(guildID)
}

// OnAction records a destructive action and sweeps the detectors.
func (c *Controller) OnAction(guildID string, ev models.DestructiveAction) {
	if !c.cfg.Defense.Enabled {
		return
	}
	c.activity.RecordAction(guildID, ev)
	metrics.IncrActions()
	c.evaluate(guildID)
}

func (c *Controller) evaluate(guildID string) {
	snap := c.activity.Snapshot(guildID, time.Now())
	sig := detectors.Evaluate(snap, c.th)
	if sig == nil {
		return
	}
	metrics.IncrSignals()
	c.handleSignal(guildID, sig)
}

// handleSignal applies one detector verdict to the state machine.
// While a response is running, weaker or equal signals never displace
// it. Any signal during cooldown re-engages the protocol and cancels
// the pending restore so the fresh freeze owns the rollback.
func (c *Controller) handleSignal(guildID string, sig *models.ThreatSignal) {
	g := c.guild(guildID)
	g.mu.Lock()

	sess := g.session
	if sess == nil {
		sess = models.NewCombatSession(guildID, time.Now())
		g.session = sess
	}

	switch sess.State {
	case models.StateIdle:
		sess.State = models.StateAlert
		sess.ThreatLevel = sig.Severity
		sess.Reason = sig.Reason
		sess.StartedAt = time.Now()
		logging.Warn("Threat confirmed in guild %s: %s (severity %d)",
			guildID, sig.Reason, sig.Severity)

	case models.StateAlert, models.StateCombat:
		if sig.Severity <= sess.ThreatLevel {
			g.mu.Unlock()
			return
		}
		sess.ThreatLevel = sig.Severity
		sess.Reason = sig.Reason
		logging.Warn("Threat escalated in guild %s: %s (severity %d)",
			guildID, sig.Reason, sig.Severity)
		if sess.State == models.StateCombat {
			// The running protocol already covers the guild; the level
			// bump is recorded without re-executing the phases.
			g.mu.Unlock()
			return
		}

	case models.StateCooldown:
		// Any fresh signal during cooldown re-engages; the threat level
		// only ever ratchets upward.
		c.scheduler.Cancel(guildID)
		sess.State = models.StateAlert
		if sig.Severity > sess.ThreatLevel {
			sess.ThreatLevel = sig.Severity
		}
		sess.Reason = sig.Reason
		sess.StartedAt = time.Now()
		logging.Warn("Threat re-emerged during cooldown in guild %s: %s (severity %d)",
			guildID, sig.Reason, sig.Severity)
	}

	g.mu.Unlock()

	c.engage(g, sess, sig)
}

// engage runs the protocol for an alert session and settles it into
// combat, then cooldown. Runs unlocked; the alert state keeps concurrent
// sweeps from double-engaging.
func (c *Controller) engage(g *guildCombat, sess *models.CombatSession, sig *models.ThreatSignal) {
	g.mu.Lock()
	if sess.State != models.StateAlert {
		g.mu.Unlock()
		return
	}
	sess.State = models.StateCombat
	g.mu.Unlock()

	metrics.IncrCombats()
	if err := c.protocol.Execute(sess, sig); err != nil {
		logging.Error("Combat protocol failed for guild %s: %v", sess.GuildID, err)
	}

	g.mu.Lock()
	if sess.State == models.StateCombat {
		sess.State = models.StateCooldown
	}
	g.mu.Unlock()

	// The evidence behind this signal has been acted on; clearing it
	// means cooldown re-entry requires a fresh burst, not stale history.
	c.activity.Reset(sess.GuildID)
	logging.Info("Guild %s entering cooldown, restore pending", sess.GuildID)
}

// onRestoreFired is the scheduler callback: the permission rollback has
// been applied, so cooldown ends and the guild returns to idle.
func (c *Controller) onRestoreFired(guildID string) {
	g := c.guild(guildID)
	g.mu.Lock()
	sess := g.session
	if sess == nil || sess.State != models.StateCooldown {
		g.mu.Unlock()
		return
	}
	g.session = nil
	g.mu.Unlock()

	c.protocol.Deactivate(guildID)
	c.activity.Reset(guildID)
	logging.Info("Guild %s combat cycle complete, back to idle", guildID)
}

// ForceDeactivate ends the response for a guild immediately: the pending
// restore is applied now, lockdown lifts, and the guild returns to idle.
// Returns false when the guild was already idle.
func (c *Controller) ForceDeactivate(guildID, reason string) bool {
	g := c.guild(guildID)
	g.mu.Lock()
	sess := g.session
	if sess == nil || sess.State == models.StateIdle {
		g.mu.Unlock()
		return false
	}
	g.session = nil
	g.mu.Unlock()

	logging.Warn("Forced deactivation for guild %s: %s", guildID, reason)
	// Firing the job restores permissions early; with the session gone
	// the scheduler callback is a no-op.
	if !c.scheduler.FireNow(guildID) {
		c.scheduler.Cancel(guildID)
	}
	c.protocol.Deactivate(guildID)
	c.activity.Reset(guildID)
	return true
}

// Session returns a copy of the live session for a guild, or nil when
// the guild is idle.
func (c *Controller) Session(guildID string) *models.CombatSession {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	copied := *g.session
	copied.Countermeasures = make(map[string]bool, len(g.session.Countermeasures))
	for name, active := range g.session.Countermeasures {
		copied.Countermeasures[name] = active
	}
	return &copied
}

// SetEmergencyEncryption flags the live session when the operator
// seals or releases channels. No-op while the guild is idle.
func (c *Controller) SetEmergencyEncryption(guildID string, active bool) {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session != nil {
		g.session.EmergencyEncryption = active
	}
}

// State reports the combat state for a guild.
func (c *Controller) State(guildID string) models.CombatState {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return models.StateIdle
	}
	return g.session.State
}

// StartSweeper launches the background detector sweep so slow-burn
// threats surface even without a fresh event.
func (c *Controller) StartSweeper() {
	interval := time.Duration(c.cfg.Defense.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go c.sweepLoop(interval)
}

func (c *Controller) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if c.heartbeat != nil {
				c.heartbeat("sweeper")
			}
			for _, guildID := range c.activity.GuildIDs() {
				c.evaluate(guildID)
			}
		}
	}
}

func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

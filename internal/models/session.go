package models

import "time"

type CombatState uint8

const (
	StateIdle CombatState = iota
	StateAlert
	StateCombat
	StateCooldown
)

func (s CombatState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAlert:
		return "alert"
	case StateCombat:
		return "combat"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// CombatSession is the live threat response for one guild. At most one
// exists per guild; it is owned and mutated only by the combat controller.
type CombatSession struct {
	GuildID             string
	State               CombatState
	ThreatLevel         int
	Reason              string
	StartedAt           time.Time
	Countermeasures     map[string]bool
	BackupRef           string
	EmergencyEncryption bool
}

func NewCombatSession(guildID string, now time.Time) *CombatSession {
	return &CombatSession{
		GuildID:         guildID,
		State:           StateIdle,
		Countermeasures: make(map[string]bool),
		StartedAt:       now,
	}
}

func (s *CombatSession) ActiveCountermeasures() []string {
	names := make([]string, 0, len(s.Countermeasures))
	for name, active := range s.Countermeasures {
		if active {
			names = append(names, name)
		}
	}
	return names
}

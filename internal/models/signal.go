package models

type SignalKind uint8

const (
	SignalBotRaid SignalKind = iota
	SignalHumanRaid
	SignalSuspiciousMembers
	SignalMessageSpam
	SignalMentionSpam
	SignalChannelDestruction
	SignalRoleManipulation
	SignalRapidDeletion
)

func (k SignalKind) String() string {
	switch k {
	case SignalBotRaid:
		return "bot_raid"
	case SignalHumanRaid:
		return "human_raid"
	case SignalSuspiciousMembers:
		return "suspicious_members"
	case SignalMessageSpam:
		return "message_spam"
	case SignalMentionSpam:
		return "mention_spam"
	case SignalChannelDestruction:
		return "channel_destruction"
	case SignalRoleManipulation:
		return "role_manipulation"
	case SignalRapidDeletion:
		return "rapid_deletion"
	default:
		return "unknown"
	}
}

// ThreatSignal is produced by a detector and consumed exactly once by the
// combat controller. Severity is always within [0,10].
type ThreatSignal struct {
	Kind     SignalKind
	Reason   string
	Severity int
}

func NewThreatSignal(kind SignalKind, reason string, severity int) *ThreatSignal {
	return &ThreatSignal{
		Kind:     kind,
		Reason:   reason,
		Severity: ClampSeverity(severity),
	}
}

func ClampSeverity(severity int) int {
	if severity < 0 {
		return 0
	}
	if severity > 10 {
		return 10
	}
	return severity
}

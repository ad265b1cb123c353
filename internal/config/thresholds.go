package config

import "time"

// Thresholds carries every detector constant in one place. The values come
// from field experience with small-to-mid guilds; per-guild tuning is not
// supported, the sweep interval and restore delay are.
type Thresholds struct {
	BotRaidJoins      int
	BotRaidWindow     time.Duration
	HumanRaidJoins    int
	HumanRaidWindow   time.Duration
	ClusterGap        time.Duration
	ClusterCount      int
	SuspiciousWindow  time.Duration
	SuspiciousMembers int
	NewAccountAge     time.Duration
	FreshAccountAge   time.Duration
	SimilarNameCount  int
	SpamWindow        time.Duration
	SpamMessages      int
	SpamRatio         float64
	MentionSpamCount  int
	CoordWindow       time.Duration
	CoordActions      int
	CoordChanDeletes  int
	CoordRoleModifies int
	RapidDeleteWindow time.Duration
	RapidDeleteCount  int
	AutoBanJoinWindow time.Duration
}

func DefaultThresholds() *Thresholds {
	return &Thresholds{
		BotRaidJoins:      20,
		BotRaidWindow:     5 * time.Minute,
		HumanRaidJoins:    15,
		HumanRaidWindow:   10 * time.Minute,
		ClusterGap:        2 * time.Minute,
		ClusterCount:      3,
		SuspiciousWindow:  10 * time.Minute,
		SuspiciousMembers: 10,
		NewAccountAge:     7 * 24 * time.Hour,
		FreshAccountAge:   24 * time.Hour,
		SimilarNameCount:  3,
		SpamWindow:        5 * time.Minute,
		SpamMessages:      50,
		SpamRatio:         0.3,
		MentionSpamCount:  5,
		CoordWindow:       5 * time.Minute,
		CoordActions:      10,
		CoordChanDeletes:  3,
		CoordRoleModifies: 5,
		RapidDeleteWindow: 2 * time.Minute,
		RapidDeleteCount:  5,
		AutoBanJoinWindow: 10 * time.Minute,
	}
}

var globalThresholds *Thresholds

func InitThresholds() {
	globalThresholds = DefaultThresholds()
}

func GetThresholds() *Thresholds {
	if globalThresholds == nil {
		return DefaultThresholds()
	}
	return globalThresholds
}

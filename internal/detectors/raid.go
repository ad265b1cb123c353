package detectors

import (
	"sort"
	"time"

	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/tracker"
)

func DetectBotRaid(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	joins := snap.JoinsWithin(th.BotRaidWindow)
	if len(joins) > th.BotRaidJoins {
		return models.NewThreatSignal(models.SignalBotRaid,
			"Rapid member joins detected (Bot raid)", 9)
	}
	return nil
}

func DetectHumanRaid(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	joins := snap.JoinsWithin(th.HumanRaidWindow)
	if len(joins) <= th.HumanRaidJoins {
		return nil
	}

	times := make([]time.Time, len(joins))
	for i, j := range joins {
		times[i] = j.JoinedAt
	}

	clusters := ClusterTimes(times, th.ClusterGap)
	if len(clusters) > th.ClusterCount {
		return models.NewThreatSignal(models.SignalHumanRaid,
			"Coordinated human raid detected (Multiple join clusters)", 8)
	}
	return nil
}

// ClusterTimes groups sorted timestamps into contiguous runs where each
// gap to the previous timestamp is at most window. Only runs of two or
// more survive. This is a strictly sequential scan, not an interval merge.
func ClusterTimes(timestamps []time.Time, window time.Duration) [][]time.Time {
	if len(timestamps) == 0 {
		return nil
	}

	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var clusters [][]time.Time
	current := []time.Time{sorted[0]}

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) <= window {
			current = append(current, sorted[i])
			continue
		}
		if len(current) > 1 {
			clusters = append(clusters, current)
		}
		current = []time.Time{sorted[i]}
	}

	if len(current) > 1 {
		clusters = append(clusters, current)
	}
	return clusters
}

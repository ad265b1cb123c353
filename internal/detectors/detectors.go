package detectors

import (
	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/tracker"
)

// Detector inspects an activity snapshot and returns a signal or nil.
// Detectors are stateless; all state lives in the snapshot.
type Detector func(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal

// Registry returns the detector set in evaluation order. The order is the
// tie-break when several signals share the highest severity.
func Registry() []Detector {
	return []Detector{
		DetectBotRaid,
		DetectHumanRaid,
		DetectSuspiciousMembers,
		DetectMessageSpam,
		DetectMentionSpam,
		DetectCoordinatedActions,
		DetectRapidDeletions,
	}
}

// Evaluate runs every detector over the snapshot and returns the
// highest-severity signal, first match winning ties. Nil means quiet.
func Evaluate(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	var best *models.ThreatSignal
	for _, detect := range Registry() {
		sig := detect(snap, th)
		if sig == nil {
			continue
		}
		if best == nil || sig.Severity > best.Severity {
			best = sig
		}
	}
	return best
}

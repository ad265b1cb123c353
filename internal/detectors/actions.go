package detectors

import (
	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/tracker"
)

func DetectCoordinatedActions(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	actions := snap.ActionsWithin(th.CoordWindow)
	if len(actions) <= th.CoordActions {
		return nil
	}

	byKind := make(map[models.ActionKind]int)
	for _, a := range actions {
		byKind[a.Kind]++
	}

	if byKind[models.ActionChannelDelete] > th.CoordChanDeletes {
		return models.NewThreatSignal(models.SignalChannelDestruction,
			"Coordinated channel destruction detected", 7)
	}
	if byKind[models.ActionRoleModify] > th.CoordRoleModifies {
		return models.NewThreatSignal(models.SignalRoleManipulation,
			"Coordinated role manipulation detected", 7)
	}
	return nil
}

func DetectRapidDeletions(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	deletions := 0
	for _, a := range snap.ActionsWithin(th.RapidDeleteWindow) {
		if a.Kind == models.ActionChannelDelete {
			deletions++
		}
	}

	if deletions > th.RapidDeleteCount {
		return models.NewThreatSignal(models.SignalRapidDeletion,
			"Rapid channel deletions detected", 7)
	}
	return nil
}

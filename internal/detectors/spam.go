package detectors

import (
	"strings"

	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/tracker"
)

func DetectMessageSpam(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	messages := snap.MessagesWithin(th.SpamWindow)
	if len(messages) <= th.SpamMessages {
		return nil
	}

	contents := make([]string, len(messages))
	for i, m := range messages {
		contents[i] = m.Content
	}

	if RepetitionRatio(contents) > th.SpamRatio {
		return models.NewThreatSignal(models.SignalMessageSpam,
			"Coordinated message spam detected", 6)
	}
	return nil
}

// RepetitionRatio is max-occurrence-count over total message count, after
// lowercasing and trimming. Messages of five characters or fewer never
// count toward an occurrence but stay in the denominator.
func RepetitionRatio(messages []string) float64 {
	if len(messages) == 0 {
		return 0
	}

	counts := make(map[string]int)
	for _, msg := range messages {
		clean := strings.TrimSpace(strings.ToLower(msg))
		if len(clean) > 5 {
			counts[clean]++
		}
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	return float64(maxCount) / float64(len(messages))
}

func DetectMentionSpam(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	messages := snap.MessagesWithin(th.SpamWindow)

	mentions := 0
	for _, m := range messages {
		if strings.Contains(m.Content, "@everyone") || strings.Contains(m.Content, "@here") {
			mentions++
		}
	}

	if mentions > th.MentionSpamCount {
		return models.NewThreatSignal(models.SignalMentionSpam,
			"Mass mention spam detected", 6)
	}
	return nil
}

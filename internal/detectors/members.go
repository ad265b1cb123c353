package detectors

import (
	"strings"

	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/tracker"
)

func DetectSuspiciousMembers(snap *tracker.Snapshot, th *config.Thresholds) *models.ThreatSignal {
	joins := snap.JoinsWithin(th.SuspiciousWindow)
	if len(joins) == 0 {
		return nil
	}

	suspicious := 0
	for _, join := range joins {
		accountAge := snap.Now.Sub(join.AccountCreatedAt)

		if accountAge < th.NewAccountAge {
			suspicious++
			continue
		}
		if SimilarNameCount(join.Username, snap.MemberNames) > th.SimilarNameCount {
			suspicious++
			continue
		}
		if accountAge < th.FreshAccountAge && !join.HasAvatar && join.DefaultDiscriminator {
			suspicious++
		}
	}

	if suspicious > th.SuspiciousMembers {
		return models.NewThreatSignal(models.SignalSuspiciousMembers,
			"Suspicious member patterns detected (Potential raid group)", 8)
	}
	return nil
}

// SimilarNameCount counts members whose display name shares a 4-character
// case-insensitive prefix or suffix with name. One exact self-match in the
// list is skipped so a member never counts against itself.
func SimilarNameCount(name string, memberNames []string) int {
	lower := strings.ToLower(name)
	if lower == "" {
		return 0
	}

	count := 0
	selfSkipped := false
	for _, other := range memberNames {
		otherLower := strings.ToLower(other)
		if otherLower == lower && !selfSkipped {
			selfSkipped = true
			continue
		}
		if otherLower == "" {
			continue
		}
		if strings.HasPrefix(lower, headRunes(otherLower, 4)) ||
			strings.HasSuffix(lower, tailRunes(otherLower, 4)) {
			count++
		}
	}
	return count
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

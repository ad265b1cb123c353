package detectors

import (
	"testing"
	"time"
)

func minuteStamps(base time.Time, minutes ...int) []time.Time {
	out := make([]time.Time, len(minutes))
	for i, m := range minutes {
		out[i] = base.Add(time.Duration(m) * time.Minute)
	}
	return out
}

func TestClusterTimesContiguousRuns(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stamps := minuteStamps(base, 0, 1, 2, 10, 11, 12, 20, 21, 22, 40)

	clusters := ClusterTimes(stamps, 2*time.Minute)
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(clusters))
	}
	for i, c := range clusters {
		if len(c) != 3 {
			t.Fatalf("cluster %d: expected 3 members, got %d", i, len(c))
		}
	}
}

func TestClusterTimesDropsSingletons(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stamps := minuteStamps(base, 0, 10, 20, 30)

	clusters := ClusterTimes(stamps, 2*time.Minute)
	if len(clusters) != 0 {
		t.Fatalf("isolated timestamps must not form clusters, got %d", len(clusters))
	}
}

func TestClusterTimesSortsInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stamps := minuteStamps(base, 11, 0, 10, 1)

	clusters := ClusterTimes(stamps, 2*time.Minute)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters from unsorted input, got %d", len(clusters))
	}
}

func TestClusterTimesEmpty(t *testing.T) {
	if got := ClusterTimes(nil, time.Minute); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

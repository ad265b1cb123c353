package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/bytedacia/guardian/internal/models"
)

func TestJoinCapEnforced(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	for i := 0; i < MaxJoinHistory+25; i++ {
		tr.RecordJoin("g1", models.JoinEvent{
			UserID:   fmt.Sprintf("u%d", i),
			JoinedAt: now.Add(time.Duration(i) * time.Second),
		})
	}

	joins := tr.JoinsWithin("g1", time.Hour, now.Add(200*time.Second))
	if len(joins) != MaxJoinHistory {
		t.Fatalf("expected cap of %d joins, got %d", MaxJoinHistory, len(joins))
	}
	// Oldest entries must be the ones dropped.
	if joins[0].UserID != "u25" {
		t.Fatalf("expected oldest retained join u25, got %s", joins[0].UserID)
	}
}

func TestWindowIsNonDestructive(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.RecordMessage("g1", models.MessageEvent{UserID: "a", Content: "old", SentAt: now.Add(-10 * time.Minute)})
	tr.RecordMessage("g1", models.MessageEvent{UserID: "b", Content: "new", SentAt: now})

	recent := tr.MessagesWithin("g1", 5*time.Minute, now)
	if len(recent) != 1 || recent[0].Content != "new" {
		t.Fatalf("expected only the recent message, got %+v", recent)
	}

	all := tr.MessagesWithin("g1", time.Hour, now)
	if len(all) != 2 {
		t.Fatalf("window read mutated the log: got %d messages", len(all))
	}
}

func TestUnknownGuildIsEmpty(t *testing.T) {
	tr := NewTracker()
	if got := tr.JoinsWithin("missing", time.Hour, time.Now()); len(got) != 0 {
		t.Fatalf("unknown guild should yield empty log, got %d joins", len(got))
	}
}

func TestSnapshotIsImmutableCopy(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	tr.RecordJoin("g1", models.JoinEvent{UserID: "u1", JoinedAt: now})

	snap := tr.Snapshot("g1", now)
	snap.Joins[0].UserID = "mutated"

	again := tr.Snapshot("g1", now)
	if again.Joins[0].UserID != "u1" {
		t.Fatal("snapshot mutation leaked into the live log")
	}
}

func TestSnapshotCarriesMemberNames(t *testing.T) {
	tr := NewTracker()
	tr.SetMemberNameSource(func(guildID string) []string {
		return []string{"alpha", "beta"}
	})
	tr.RecordJoin("g1", models.JoinEvent{UserID: "u1", JoinedAt: time.Now()})

	snap := tr.Snapshot("g1", time.Now())
	if len(snap.MemberNames) != 2 {
		t.Fatalf("expected member names in snapshot, got %v", snap.MemberNames)
	}
}

func TestActionsPrunedByAge(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.RecordAction("g1", models.DestructiveAction{Kind: models.ActionChannelDelete, At: now.Add(-20 * time.Minute)})
	tr.RecordAction("g1", models.DestructiveAction{Kind: models.ActionChannelDelete, At: now})

	actions := tr.ActionsWithin("g1", time.Hour, now)
	if len(actions) != 1 {
		t.Fatalf("expected aged-out action to be pruned, got %d", len(actions))
	}
}

func TestSequencesStayOrdered(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	for i := 0; i < 10; i++ {
		tr.RecordJoin("g1", models.JoinEvent{
			UserID:   fmt.Sprintf("u%d", i),
			JoinedAt: now.Add(time.Duration(i) * time.Second),
		})
	}

	joins := tr.JoinsWithin("g1", time.Hour, now.Add(time.Minute))
	for i := 1; i < len(joins); i++ {
		if joins[i].JoinedAt.Before(joins[i-1].JoinedAt) {
			t.Fatal("join log out of order")
		}
	}
}

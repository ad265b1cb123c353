package tracker

import (
	"time"

	"github.com/bytedacia/guardian/internal/models"
)

func (s *Snapshot) JoinsWithin(window time.Duration) []models.JoinEvent {
	cutoff := s.Now.Add(-window)
	out := make([]models.JoinEvent, 0, len(s.Joins))
	for _, ev := range s.Joins {
		if !ev.JoinedAt.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Snapshot) MessagesWithin(window time.Duration) []models.MessageEvent {
	cutoff := s.Now.Add(-window)
	out := make([]models.MessageEvent, 0, len(s.Messages))
	for _, ev := range s.Messages {
		if !ev.SentAt.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Snapshot) ActionsWithin(window time.Duration) []models.DestructiveAction {
	cutoff := s.Now.Add(-window)
	out := make([]models.DestructiveAction, 0, len(s.Actions))
	for _, ev := range s.Actions {
		if !ev.At.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

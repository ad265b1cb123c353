package tracker

import (
	"sync"
	"time"

	"github.com/bytedacia/guardian/internal/models"
)

const (
	MaxJoinHistory    = 100
	MaxMessageHistory = 200

	joinRetention    = time.Hour
	messageRetention = 30 * time.Minute
	actionRetention  = 15 * time.Minute
)

// GuildActivityLog holds the rolling activity of one guild. Sequences are
// always ordered by event time; pruning trims from the front only.
type GuildActivityLog struct {
	Joins    []models.JoinEvent
	Messages []models.MessageEvent
	Actions  []models.DestructiveAction
}

type guildEntry struct {
	mu  sync.Mutex
	log GuildActivityLog
}

// MemberNameSource supplies current member display names for a guild from
// an in-memory cache. Implementations must not do network I/O.
type MemberNameSource func(guildID string) []string

type Tracker struct {
	mu          sync.RWMutex
	guilds      map[string]*guildEntry
	memberNames MemberNameSource
}

func NewTracker() *Tracker {
	return &Tracker{
		guilds: make(map[string]*guildEntry),
	}
}

func (t *Tracker) SetMemberNameSource(src MemberNameSource) {
	t.memberNames = src
}

func (t *Tracker) entry(guildID string) *guildEntry {
	t.mu.RLock()
	e, ok := t.guilds[guildID]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok = t.guilds[guildID]; ok {
		return e
	}
	e = &guildEntry{}
	t.guilds[guildID] = e
	return e
}

func (t *Tracker) RecordJoin(guildID string, ev models.JoinEvent) {
	e := t.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Joins = append(e.log.Joins, ev)
	if n := len(e.log.Joins); n > MaxJoinHistory {
		e.log.Joins = e.log.Joins[n-MaxJoinHistory:]
	}
	e.log.Joins = pruneJoins(e.log.Joins, ev.JoinedAt.Add(-joinRetention))
}

func (t *Tracker) RecordMessage(guildID string, ev models.MessageEvent) {
	e := t.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Messages = append(e.log.Messages, ev)
	if n := len(e.log.Messages); n > MaxMessageHistory {
		e.log.Messages = e.log.Messages[n-MaxMessageHistory:]
	}
	e.log.Messages = pruneMessages(e.log.Messages, ev.SentAt.Add(-messageRetention))
}

func (t *Tracker) RecordAction(guildID string, ev models.DestructiveAction) {
	e := t.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Actions = append(e.log.Actions, ev)
	e.log.Actions = pruneActions(e.log.Actions, ev.At.Add(-actionRetention))
}

// JoinsWithin returns joins with timestamp >= now-window, in original
// order. The log is not mutated.
func (t *Tracker) JoinsWithin(guildID string, window time.Duration, now time.Time) []models.JoinEvent {
	e := t.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-window)
	out := make([]models.JoinEvent, 0)
	for _, ev := range e.log.Joins {
		if !ev.JoinedAt.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

func (t *Tracker) MessagesWithin(guildID string, window time.Duration, now time.Time) []models.MessageEvent {
	e := t.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-window)
	out := make([]models.MessageEvent, 0)
	for _, ev := range e.log.Messages {
		if !ev.SentAt.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

func (t *Tracker) ActionsWithin(guildID string, window time.Duration, now time.Time) []models.DestructiveAction {
	e := t.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-window)
	out := make([]models.DestructiveAction, 0)
	for _, ev := range e.log.Actions {
		if !ev.At.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

// Snapshot is an immutable view of one guild's activity handed to the
// detector pass. Detectors never see the live log.
type Snapshot struct {
	GuildID     string
	Joins       []models.JoinEvent
	Messages    []models.MessageEvent
	Actions     []models.DestructiveAction
	MemberNames []string
	Now         time.Time
}

func (t *Tracker) Snapshot(guildID string, now time.Time) *Snapshot {
	e := t.entry(guildID)
	e.mu.Lock()
	joins := make([]models.JoinEvent, len(e.log.Joins))
	copy(joins, e.log.Joins)
	messages := make([]models.MessageEvent, len(e.log.Messages))
	copy(messages, e.log.Messages)
	actions := make([]models.DestructiveAction, len(e.log.Actions))
	copy(actions, e.log.Actions)
	e.mu.Unlock()

	snap := &Snapshot{
		GuildID:  guildID,
		Joins:    joins,
		Messages: messages,
		Actions:  actions,
		Now:      now,
	}
	if t.memberNames != nil {
		snap.MemberNames = t.memberNames(guildID)
	}
	return snap
}

// GuildIDs returns every guild with recorded activity, for the sweep loop.
func (t *Tracker) GuildIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.guilds))
	for id := range t.guilds {
		ids = append(ids, id)
	}
	return ids
}

func (t *Tracker) Reset(guildID string) {
	e := t.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = GuildActivityLog{}
}

func pruneJoins(joins []models.JoinEvent, cutoff time.Time) []models.JoinEvent {
	i := 0
	for i < len(joins) && joins[i].JoinedAt.Before(cutoff) {
		i++
	}
	return joins[i:]
}

func pruneMessages(messages []models.MessageEvent, cutoff time.Time) []models.MessageEvent {
	i := 0
	for i < len(messages) && messages[i].SentAt.Before(cutoff) {
		i++
	}
	return messages[i:]
}

func pruneActions(actions []models.DestructiveAction, cutoff time.Time) []models.DestructiveAction {
	i := 0
	for i < len(actions) && actions[i].At.Before(cutoff) {
		i++
	}
	return actions[i:]
}

package metrics

import "sync/atomic"

// Counters are the engine's lifetime tallies. All increments are atomic
// so event handlers never contend on a lock.
type Counters struct {
	JoinsTracked    uint64
	MessagesTracked uint64
	ActionsTracked  uint64
	SignalsRaised   uint64
	CombatsEngaged  uint64
	BansExecuted    uint64
}

var global Counters

func IncrJoins()    { atomic.AddUint64(&global.JoinsTracked, 1) }
func IncrMessages() { atomic.AddUint64(&global.MessagesTracked, 1) }
func IncrActions()  { atomic.AddUint64(&global.ActionsTracked, 1) }
func IncrSignals()  { atomic.AddUint64(&global.SignalsRaised, 1) }
func IncrCombats()  { atomic.AddUint64(&global.CombatsEngaged, 1) }
func IncrBans()     { atomic.AddUint64(&global.BansExecuted, 1) }

// Snapshot returns a consistent-enough copy for display.
func Snapshot() Counters {
	return Counters{
		JoinsTracked:    atomic.LoadUint64(&global.JoinsTracked),
		MessagesTracked: atomic.LoadUint64(&global.MessagesTracked),
		ActionsTracked:  atomic.LoadUint64(&global.ActionsTracked),
		SignalsRaised:   atomic.LoadUint64(&global.SignalsRaised),
		CombatsEngaged:  atomic.LoadUint64(&global.CombatsEngaged),
		BansExecuted:    atomic.LoadUint64(&global.BansExecuted),
	}
}

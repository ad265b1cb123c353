package watchdog

import (
	"sync/atomic"
	"time"

	"github.com/bytedacia/guardian/internal/logging"
)

// component is registered before Start; after that all access is
// atomic, so heartbeats from event handlers stay lock-free.
type component struct {
	name      string
	threshold time.Duration
	lastBeat  atomic.Int64
	healthy   atomic.Bool
}

// Watchdog tracks heartbeats from the long-running pieces of the engine
// (gateway event flow, detector sweeper) and shouts when one goes quiet.
type Watchdog struct {
	components map[string]*component
	interval   time.Duration
	stop       chan struct{}
}

func NewWatchdog(interval time.Duration) *Watchdog {
	return &Watchdog{
		components: make(map[string]*component),
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

func (w *Watchdog) RegisterComponent(name string, threshold time.Duration) {
	c := &component{name: name, threshold: threshold}
	c.healthy.Store(true)
	w.components[name] = c
}

func (w *Watchdog) Heartbeat(name string) {
	// Health flips only in check, so recovery is logged exactly once.
	if c, ok := w.components[name]; ok {
		c.lastBeat.Store(time.Now().UnixNano())
	}
}

func (w *Watchdog) Start() {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.check()
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *Watchdog) check() {
	now := time.Now().UnixNano()
	for _, c := range w.components {
		last := c.lastBeat.Load()
		if last == 0 {
			// Never beat yet; treat startup quiet as healthy.
			continue
		}
		silent := time.Duration(now - last)
		if silent > c.threshold {
			// CompareAndSwap keeps the alarm to one line per outage.
			if c.healthy.CompareAndSwap(true, false) {
				logging.Error("Watchdog: %s unhealthy (no heartbeat for %v)", c.name, silent)
			}
		} else if c.healthy.CompareAndSwap(false, true) {
			logging.Info("Watchdog: %s recovered", c.name)
		}
	}
}

func (w *Watchdog) IsHealthy(name string) bool {
	if c, ok := w.components[name]; ok {
		return c.healthy.Load()
	}
	return false
}

func (w *Watchdog) Stop() {
	close(w.stop)
}

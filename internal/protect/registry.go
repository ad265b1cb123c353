package protect

import (
	"strings"
	"sync"

	"github.com/bytedacia/guardian/internal/logging"
)

type Kind uint8

const (
	KindOwner Kind = iota
	KindManual
	KindServerCreator
)

func (k Kind) String() string {
	switch k {
	case KindOwner:
		return "owner"
	case KindManual:
		return "manual"
	case KindServerCreator:
		return "server_creator"
	default:
		return "unknown"
	}
}

func KindFromString(s string) Kind {
	switch s {
	case "owner":
		return KindOwner
	case "server_creator":
		return KindServerCreator
	default:
		return KindManual
	}
}

// Store persists allowlist mutations so protection survives restarts.
type Store interface {
	SaveProtectedUser(userID, kind string) error
	DeleteProtectedUser(userID string) error
	LoadProtectedUsers() (map[string]string, error)
}

// GuildContext carries the per-guild facts the resolution policy needs.
// LookupMember reads a member cache; nil means the member is unknown.
type GuildContext struct {
	GuildID      string
	OwnerID      string
	LookupMember func(userID string) (username, displayName string, ok bool)
}

// Registry resolves whether a user is exempt from every restriction.
// Resolution order is fixed: configured owner, manual allowlist, server
// creators, guild owner, reserved handle.
type Registry struct {
	mu      sync.RWMutex
	ownerID string
	handle  string
	entries map[string]Kind
	store   Store
}

func NewRegistry(ownerID, reservedHandle string, store Store) *Registry {
	r := &Registry{
		ownerID: ownerID,
		handle:  strings.ToLower(reservedHandle),
		entries: make(map[string]Kind),
		store:   store,
	}
	r.loadFromStore()
	return r
}

func (r *Registry) loadFromStore() {
	if r.store == nil {
		return
	}
	saved, err := r.store.LoadProtectedUsers()
	if err != nil {
		logging.Warn("Failed to load protected users: %v", err)
		return
	}
	for userID, kind := range saved {
		r.entries[userID] = KindFromString(kind)
	}
}

func (r *Registry) IsProtected(userID string, ctx *GuildContext) bool {
	r.mu.RLock()
	if r.ownerID != "" && userID == r.ownerID {
		r.mu.RUnlock()
		return true
	}
	kind, listed := r.entries[userID]
	handle := r.handle
	r.mu.RUnlock()

	if listed && kind == KindManual {
		return true
	}
	if listed && kind == KindServerCreator {
		return true
	}
	if listed && kind == KindOwner {
		return true
	}

	if ctx == nil {
		return false
	}
	if ctx.OwnerID != "" && userID == ctx.OwnerID {
		return true
	}

	if handle != "" && ctx.LookupMember != nil {
		if username, displayName, ok := ctx.LookupMember(userID); ok {
			if strings.ToLower(username) == handle || strings.ToLower(displayName) == handle {
				return true
			}
		}
	}
	return false
}

// Add lists a user. Returns false when the user was already listed
// with the same kind; a kind change still counts as an addition.
func (r *Registry) Add(userID string, kind Kind) bool {
	r.mu.Lock()
	existing, existed := r.entries[userID]
	r.entries[userID] = kind
	r.mu.Unlock()

	if existed && existing == kind {
		return false
	}
	if r.store != nil {
		if err := r.store.SaveProtectedUser(userID, kind.String()); err != nil {
			logging.Warn("Failed to persist protected user %s: %v", userID, err)
		}
	}
	logging.Info("Added protected user %s (kind: %s)", userID, kind)
	return true
}

func (r *Registry) Remove(userID string) bool {
	r.mu.Lock()
	_, existed := r.entries[userID]
	delete(r.entries, userID)
	r.mu.Unlock()

	if !existed {
		return false
	}
	if r.store != nil {
		if err := r.store.DeleteProtectedUser(userID); err != nil {
			logging.Warn("Failed to remove persisted protected user %s: %v", userID, err)
		}
	}
	logging.Info("Removed protected user %s", userID)
	return true
}

// Entries returns a copy of the allowlist for status reporting.
func (r *Registry) Entries() map[string]Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Kind, len(r.entries))
	for id, kind := range r.entries {
		out[id] = kind
	}
	return out
}

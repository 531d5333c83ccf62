// Package lockmgr implements the per-entity cooperative exclusive locks of
// spec.md 4.2. The teacher repository has no direct analog; this follows
// the mutex-guarded-map idiom the teacher itself uses for its driver
// registry (internal/db/registry.go) and config cache (internal/config/manager.go).
package lockmgr

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// DefaultTTL is the lock lifetime applied when a caller doesn't specify one.
const DefaultTTL = 60 * time.Second

// Key identifies a lockable entity.
type Key struct {
	Kind workitem.Kind
	ID   uuid.UUID
}

func (k Key) String() string { return fmt.Sprintf("%s:%s", k.Kind, k.ID) }

// Lock is the handle returned by Acquire; Release/Renew operate on it.
type Lock struct {
	Key       Key
	Session   string
	ExpiresAt time.Time
}

type heldLock struct {
	session   string
	expiresAt time.Time
}

// Manager is the in-process lock table. It is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	locks map[Key]heldLock
	now   func() time.Time
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{
		locks: make(map[Key]heldLock),
		now:   time.Now,
	}
}

func (m *Manager) expired(l heldLock) bool {
	return m.now().After(l.expiresAt)
}

// Acquire acquires or renews the lock on key for session. Expired locks are
// reclaimed lazily here, on the next acquisition attempt (spec.md 4.2).
func (m *Manager) Acquire(key Key, session string, ttl time.Duration) (Lock, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, held := m.locks[key]
	if held && !m.expired(existing) && existing.session != session {
		return Lock{}, apierr.New(apierr.KindLockConflict,
			fmt.Sprintf("entity %s is locked by another session", key),
			map[string]interface{}{"owner": existing.session, "expiresAt": existing.expiresAt})
	}

	expiresAt := m.now().Add(ttl)
	m.locks[key] = heldLock{session: session, expiresAt: expiresAt}
	return Lock{Key: key, Session: session, ExpiresAt: expiresAt}, nil
}

// AcquireMany acquires locks on every key in canonical order (kind ordinal,
// then id lexical) to avoid deadlock between callers locking overlapping
// entity sets (spec.md 4.2, 9 "Lock re-entry"). On any failure, already
// acquired locks in this call are released before returning the error.
func (m *Manager) AcquireMany(keys []Key, session string, ttl time.Duration) ([]Lock, error) {
	ordered := make([]Key, len(keys))
	copy(ordered, keys)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Kind != ordered[j].Kind {
			return kindOrdinal(ordered[i].Kind) < kindOrdinal(ordered[j].Kind)
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	acquired := make([]Lock, 0, len(ordered))
	for _, k := range ordered {
		lock, err := m.Acquire(k, session, ttl)
		if err != nil {
			for _, l := range acquired {
				m.Release(l)
			}
			return nil, err
		}
		acquired = append(acquired, lock)
	}
	return acquired, nil
}

func kindOrdinal(k workitem.Kind) int {
	switch k {
	case workitem.KindProject:
		return 0
	case workitem.KindFeature:
		return 1
	default:
		return 2
	}
}

// Release always succeeds; it is a no-op if the lock already expired or was
// taken over by another session.
func (m *Manager) Release(lock Lock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.locks[lock.Key]; ok && existing.session == lock.Session {
		delete(m.locks, lock.Key)
	}
}

// ReleaseAll releases every lock in locks, in reverse acquisition order.
func (m *Manager) ReleaseAll(locks []Lock) {
	for i := len(locks) - 1; i >= 0; i-- {
		m.Release(locks[i])
	}
}

// Renewed/Expired are the two outcomes of Renew (spec.md 4.2).
type RenewResult string

const (
	Renewed RenewResult = "Renewed"
	Expired RenewResult = "Expired"
)

// Renew extends lock's TTL if it is still held by lock.Session.
func (m *Manager) Renew(lock Lock, ttl time.Duration) (Lock, RenewResult) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, held := m.locks[lock.Key]
	if !held || m.expired(existing) || existing.session != lock.Session {
		return Lock{}, Expired
	}
	expiresAt := m.now().Add(ttl)
	m.locks[lock.Key] = heldLock{session: lock.Session, expiresAt: expiresAt}
	return Lock{Key: lock.Key, Session: lock.Session, ExpiresAt: expiresAt}, Renewed
}

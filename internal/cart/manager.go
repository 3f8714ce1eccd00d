package cart

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/identity"
	"github.com/lianamed/pharmacy-api/internal/kv"
)

// Manager owns one in-memory cart, kept consistent with the copy persisted
// under the current owner's key. Every mutation writes through to the store
// immediately; a failed write is logged and absorbed, leaving memory
// authoritative for the rest of the session.
//
// The manager subscribes to both collaborators. When either fires it
// re-reads the identity; if the owner changed it hard-replaces the in-memory
// cart with the new owner's stored cart. A guest cart and a user cart are
// never merged. Concurrent writes to the same owner's key from another
// process are last-write-wins.
type Manager struct {
	store    kv.Store
	identity identity.Provider
	lg       *zap.Logger

	mu       sync.Mutex
	ownerKey string
	lines    []Line

	// selfWrite suppresses the store notification raised by this manager's
	// own write-through, mirroring how a session never receives storage
	// events for its own writes. Substrates that notify synchronously would
	// otherwise re-enter the manager mid-mutation.
	selfWrite atomic.Bool

	unsubs []func()
}

// NewManager loads the current owner's cart and subscribes to change
// notifications. Call Close when the manager is no longer needed.
func NewManager(store kv.Store, provider identity.Provider, lg *zap.Logger) *Manager {
	m := &Manager{
		store:    store,
		identity: provider,
		lg:       lg,
	}
	m.mu.Lock()
	m.reloadLocked()
	m.mu.Unlock()

	m.unsubs = append(m.unsubs,
		store.Subscribe(func(string) {
			if m.selfWrite.Load() {
				return
			}
			m.resync()
		}),
		provider.Subscribe(m.resync),
	)
	return m
}

// Close unsubscribes from both collaborators.
func (m *Manager) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
}

// Lines returns a snapshot of the cart. Mutating the returned slice does not
// affect the manager.
func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}

// AddItem puts one unit of item in the cart. An existing line for the same
// itemId gains one to its quantity and keeps its original snapshot fields;
// otherwise a new line is appended with quantity 1.
func (m *Manager) AddItem(item Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ItemID == item.ItemID {
			m.lines[i].Quantity++
			m.persistLocked()
			return
		}
	}
	m.lines = append(m.lines, Line{
		ItemID:    item.ItemID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		ImageRef:  item.ImageRef,
		Quantity:  1,
	})
	m.persistLocked()
}

// RemoveItem drops the line for itemID. Absent id is a no-op.
func (m *Manager) RemoveItem(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ItemID == itemID {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			m.persistLocked()
			return
		}
	}
}

// IncreaseQuantity adds one to the line for itemID. Unlike AddItem it never
// creates a line; absent id is a no-op.
func (m *Manager) IncreaseQuantity(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ItemID == itemID {
			m.lines[i].Quantity++
			m.persistLocked()
			return
		}
	}
}

// DecreaseQuantity subtracts one from the line for itemID, removing the line
// entirely when the quantity would drop below 1. Absent id is a no-op.
func (m *Manager) DecreaseQuantity(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ItemID != itemID {
			continue
		}
		m.lines[i].Quantity--
		if m.lines[i].Quantity < 1 {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
		}
		m.persistLocked()
		return
	}
}

// Clear empties the cart.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = nil
	m.persistLocked()
}

// resync re-reads the identity and, when the owner changed, replaces the
// whole in-memory cart with the new owner's stored cart. Fired by both
// subscriptions; a notification that did not change the owner does nothing.
func (m *Manager) resync() {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, _ := m.identity.CurrentUserID()
	if OwnerKey(userID) == m.ownerKey {
		return
	}
	m.reloadLocked()
}

// reloadLocked resolves the owner key and loads that owner's cart. A missing
// or undecodable payload yields an empty cart.
func (m *Manager) reloadLocked() {
	userID, _ := m.identity.CurrentUserID()
	m.ownerKey = OwnerKey(userID)
	m.lines = nil

	payload, ok := m.store.Get(m.ownerKey)
	if !ok {
		return
	}
	lines, err := decodeLines(payload)
	if err != nil {
		m.lg.Warn("discarding stored cart",
			zap.String("key", m.ownerKey),
			zap.Error(err),
		)
		return
	}
	m.lines = lines
}

// persistLocked writes the cart through to the store. Must be called with
// mu held.
func (m *Manager) persistLocked() {
	m.selfWrite.Store(true)
	defer m.selfWrite.Store(false)

	if err := m.store.Set(m.ownerKey, encodeLines(m.lines)); err != nil {
		m.lg.Warn("cart persist failed, memory stays authoritative",
			zap.String("key", m.ownerKey),
			zap.Error(err),
		)
	}
}

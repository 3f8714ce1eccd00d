package kv

import "sync"

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. It backs single-node deployments and every
// test that needs a substrate with observable writes.
type Memory struct {
	mu      sync.Mutex
	data    map[string]string
	subs    map[int]func(key string)
	nextSub int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]string),
		subs: make(map[int]func(key string)),
	}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	subs := m.snapshotSubs()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(key)
	}
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	_, ok := m.data[key]
	delete(m.data, key)
	var subs []func(string)
	if ok {
		subs = m.snapshotSubs()
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(key)
	}
	return nil
}

// Subscribe registers fn for change notifications. Callbacks run
// synchronously on the mutating goroutine, outside the store lock.
func (m *Memory) Subscribe(fn func(key string)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// snapshotSubs copies the subscriber list. Must be called with mu held.
func (m *Memory) snapshotSubs() []func(string) {
	subs := make([]func(string), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}

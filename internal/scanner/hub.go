package scanner

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Hub buffer defaults.
const (
	// DefaultSessionBuffer is the per-session event capacity.
	DefaultSessionBuffer = 32

	// powerBuffer is the capacity of the power state channel.
	powerBuffer = 4

	// ErrorRepeatInterval is how long an identical error is withheld from a
	// session after it was last delivered.
	ErrorRepeatInterval = 5 * time.Minute
)

// Hub routes decoded advertisements to per-device sessions.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Dispatch never blocks; events for a full session are dropped.
//   - A session receives the same error at most once per ErrorRepeatInterval.
type Hub struct {
	mu       sync.Mutex
	sessions map[string][]*hubSession
	closed   bool

	power chan PowerState

	bufferSize int
	dropped    atomic.Uint64
	repeated   atomic.Uint64

	now func() time.Time
}

// NewHub creates a Hub whose sessions buffer up to bufferSize events.
// A bufferSize below 1 uses DefaultSessionBuffer.
func NewHub(bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = DefaultSessionBuffer
	}
	return &Hub{
		sessions:   make(map[string][]*hubSession),
		power:      make(chan PowerState, powerBuffer),
		bufferSize: bufferSize,
		now:        time.Now,
	}
}

// Open starts a session for the device at address. Addresses are compared
// case-insensitively. Opening the same address twice yields two sessions
// that both receive every event.
func (h *Hub) Open(address string, opts Options) (Session, error) {
	key := normaliseAddress(address)
	if key == "" {
		return nil, fmt.Errorf("opening session: address is empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrSessionClosed
	}

	s := &hubSession{
		hub:     h,
		key:     key,
		bindKey: opts.BindKey,
		events:  make(chan Event, h.bufferSize),
	}
	h.sessions[key] = append(h.sessions[key], s)
	return s, nil
}

// PowerStates returns the radio power notifications.
func (h *Hub) PowerStates() <-chan PowerState {
	return h.power
}

// SetPowerState publishes a radio power change. When the channel is full
// the oldest pending state is discarded so the latest one is kept.
func (h *Hub) SetPowerState(state PowerState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		select {
		case h.power <- state:
			return
		default:
		}
		select {
		case <-h.power:
		default:
		}
	}
}

// Dispatch delivers an advertisement to every session opened for its
// peripheral. A change event is emitted for each decoded value, or one
// Error event when the advertisement carries an error.
func (h *Hub) Dispatch(adv Advertisement) {
	key := normaliseAddress(adv.Peripheral.Identity())

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, s := range h.sessions[key] {
		if adv.Err != nil {
			err := s.describe(adv.Err)
			if s.repeatedError(err, h.now()) {
				h.repeated.Add(1)
				continue
			}
			s.deliver(Event{Kind: Error, Peripheral: adv.Peripheral, Err: err})
			continue
		}
		for _, v := range adv.Values {
			s.deliver(Event{Kind: ChangeKind(v.Metric), Value: v.Value, Peripheral: adv.Peripheral})
		}
	}
}

// Watching reports whether any session is open for address.
func (h *Hub) Watching(address string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[normaliseAddress(address)]) > 0
}

// BindKey returns the bind key configured for address, or "" when no open
// session has one.
func (h *Hub) BindKey(address string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions[normaliseAddress(address)] {
		if s.bindKey != "" {
			return s.bindKey
		}
	}
	return ""
}

// Repeated returns how many error events were withheld as repeats.
func (h *Hub) Repeated() uint64 {
	return h.repeated.Load()
}

// Dropped returns how many events were discarded because a session was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes every session. Later Dispatch calls are ignored.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for key, list := range h.sessions {
		for _, s := range list {
			s.closeLocked()
		}
		delete(h.sessions, key)
	}
	return nil
}

// remove detaches a session. Caller must hold h.mu.
func (h *Hub) remove(s *hubSession) {
	list := h.sessions[s.key]
	for i, other := range list {
		if other == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(h.sessions, s.key)
	} else {
		h.sessions[s.key] = list
	}
}

// hubSession is a Session backed by a Hub.
type hubSession struct {
	hub     *Hub
	key     string
	bindKey string
	events  chan Event
	closed  bool

	lastErr   string
	lastErrAt time.Time
}

func (s *hubSession) Events() <-chan Event {
	return s.events
}

func (s *hubSession) Close() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if s.closed {
		return nil
	}
	s.hub.remove(s)
	s.closeLocked()
	return nil
}

// deliver sends without blocking. Caller must hold the hub lock.
func (s *hubSession) deliver(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.hub.dropped.Add(1)
	}
}

// closeLocked closes the channel. Caller must hold the hub lock.
func (s *hubSession) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// describe adds session context to an advertisement error.
func (s *hubSession) describe(err error) error {
	if s.bindKey == "" {
		return fmt.Errorf("%w (no bind key configured)", err)
	}
	return err
}

// repeatedError reports whether err matches the last error delivered within
// ErrorRepeatInterval. Otherwise it records err as delivered at now.
// Caller must hold the hub lock.
func (s *hubSession) repeatedError(err error, now time.Time) bool {
	msg := err.Error()
	if msg == s.lastErr && now.Sub(s.lastErrAt) < ErrorRepeatInterval {
		return true
	}
	s.lastErr = msg
	s.lastErrAt = now
	return false
}

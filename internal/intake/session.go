package intake

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var conversationIDRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

// ValidateConversationID rejects empty or malformed identifiers.
func ValidateConversationID(id string) error {
	if !conversationIDRE.MatchString(id) {
		return ErrInvalidConversationID
	}
	return nil
}

// IsAnonymous reports whether the identifier belongs to a guest/anonymous
// visitor (no ticket behind it), e.g. "guest-1718", "anon:abc".
func IsAnonymous(id string) bool {
	lower := strings.ToLower(id)
	for _, prefix := range []string{"guest", "anon"} {
		rest, ok := strings.CutPrefix(lower, prefix)
		if !ok {
			continue
		}
		if rest == "" {
			return true
		}
		// "anonymous-..." and "anon-..." both count
		rest = strings.TrimPrefix(rest, "ymous")
		if rest == "" || strings.ContainsRune("-_:", rune(rest[0])) {
			return true
		}
	}
	return false
}

// Session is the state of one conversation. It is only touched while the
// registry lock for its identifier is held.
type Session struct {
	ID             string
	Profile        CustomerProfile
	Messages       []Message
	Role           Role
	RoleResolved   bool
	OperatorJoined bool
	// escalated records reasons already announced so events fire once per reason.
	escalated map[EscalationReason]bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newSession(id string, now time.Time) *Session {
	s := &Session{
		ID:        id,
		Role:      RoleUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if IsAnonymous(id) {
		s.Role = RoleCustomer
		s.RoleResolved = true
	}
	return s
}

// UserTurns counts user messages in the log.
func (s *Session) UserTurns() int {
	n := 0
	for _, m := range s.Messages {
		if m.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}

// LastSystemMessage returns the newest system message text, or "".
func (s *Session) LastSystemMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Speaker == SpeakerSystem {
			return s.Messages[i].Text
		}
	}
	return ""
}

// appendTurn records the user utterance followed by the system reply.
func (s *Session) appendTurn(utterance, reply string, now time.Time) (Message, Message) {
	user := Message{ID: uuid.NewString(), Speaker: SpeakerUser, Text: utterance, Timestamp: now}
	system := Message{ID: uuid.NewString(), Speaker: SpeakerSystem, Text: reply, Timestamp: now}
	s.Messages = append(s.Messages, user, system)
	s.UpdatedAt = now
	return user, system
}

func (s *Session) markEscalated(reason EscalationReason) bool {
	if s.escalated == nil {
		s.escalated = make(map[EscalationReason]bool)
	}
	if s.escalated[reason] {
		return false
	}
	s.escalated[reason] = true
	return true
}

func (s *Session) reset(now time.Time) {
	s.Profile = CustomerProfile{}
	s.Messages = nil
	s.escalated = nil
	s.OperatorJoined = false
	s.UpdatedAt = now
}

// History returns a copy of the message log.
func (s *Session) History() []Message {
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// LastMessages returns a copy of at most n trailing messages.
func (s *Session) LastMessages(n int) []Message {
	if n <= 0 || n >= len(s.Messages) {
		return s.History()
	}
	out := make([]Message, n)
	copy(out, s.Messages[len(s.Messages)-n:])
	return out
}

type registryEntry struct {
	mu       sync.Mutex
	session  *Session
	refs     int
	lastUsed time.Time
}

// Registry owns every live session, keyed by conversation identifier. Turns for
// one identifier are serialized by a per-entry lock; different identifiers
// never share mutable state and proceed concurrently.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		now:     time.Now,
	}
}

// Acquire returns the session for id, creating it on first use, and holds its
// lock until the returned release func is called.
func (r *Registry) Acquire(id string) (*Session, func()) {
	entry, _ := r.pin(id, true)
	entry.mu.Lock()
	return entry.session, func() { r.unpin(entry) }
}

// Lookup is Acquire without creation. ok is false for unknown identifiers.
func (r *Registry) Lookup(id string) (*Session, func(), bool) {
	entry, ok := r.pin(id, false)
	if !ok {
		return nil, nil, false
	}
	entry.mu.Lock()
	return entry.session, func() { r.unpin(entry) }, true
}

func (r *Registry) pin(id string, create bool) (*registryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		if !create {
			return nil, false
		}
		now := r.now()
		entry = &registryEntry{session: newSession(id, now), lastUsed: now}
		r.entries[id] = entry
	}
	entry.refs++
	return entry, true
}

func (r *Registry) unpin(entry *registryEntry) {
	entry.mu.Unlock()
	r.mu.Lock()
	entry.refs--
	entry.lastUsed = r.now()
	r.mu.Unlock()
}

// Evict drops sessions idle for longer than idle. Sessions with a turn in
// flight (or waiting for one) are pinned and never evicted.
func (r *Registry) Evict(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	evicted := 0
	for id, entry := range r.entries {
		if entry.refs > 0 || entry.lastUsed.After(cutoff) {
			continue
		}
		delete(r.entries, id)
		evicted++
	}
	return evicted
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

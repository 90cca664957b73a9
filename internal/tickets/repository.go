package tickets

import (
	"context"
	"sync"
	"time"
)

// Repository is the ticket store.
type Repository interface {
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	SaveSummary(ctx context.Context, rec SummaryRecord) error
}

// InMemoryRepository keeps tickets in process memory. Used when no database is
// configured and in tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	tickets   map[string]*Ticket
	summaries map[string]SummaryRecord
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tickets:   make(map[string]*Ticket),
		summaries: make(map[string]SummaryRecord),
	}
}

// Put inserts or replaces a ticket.
func (r *InMemoryRepository) Put(t Ticket) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	r.mu.Lock()
	r.tickets[t.ID] = &t
	r.mu.Unlock()
}

// Assign hands the ticket to an operator and marks it in progress.
func (r *InMemoryRepository) Assign(id, operator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	t.AssignedTo = operator
	t.Status = StatusInProgress
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *InMemoryRepository) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	if rec.TicketID == "" {
		return ErrMissingTicketID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[rec.TicketID] = rec
	if t, ok := r.tickets[rec.TicketID]; ok {
		t.Subject = rec.Subject
		t.UpdatedAt = rec.UpdatedAt
	}
	return nil
}

// Summary returns the last summary saved for a ticket.
func (r *InMemoryRepository) Summary(id string) (SummaryRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.summaries[id]
	return rec, ok
}

package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/textcircle/backend/internal/numberpool/domain"
)

// PhoneNumberRepository is a mutex-guarded in-memory implementation of
// domain.PhoneNumberRepository. It carries the same atomicity guarantees as
// the PostgreSQL implementation and exists so the exactly-once claim property
// can be exercised in tests without a database.
type PhoneNumberRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*domain.PhoneNumber
	byE164 map[string]uuid.UUID
}

// NewPhoneNumberRepository creates an empty in-memory pool.
func NewPhoneNumberRepository() *PhoneNumberRepository {
	return &PhoneNumberRepository{
		byID:   make(map[uuid.UUID]*domain.PhoneNumber),
		byE164: make(map[string]uuid.UUID),
	}
}

func (r *PhoneNumberRepository) Create(_ context.Context, pn *domain.PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byE164[pn.Number]; ok {
		return domain.ErrDuplicateNumber
	}
	cp := *pn
	r.byID[cp.ID] = &cp
	r.byE164[cp.Number] = cp.ID
	return nil
}

func (r *PhoneNumberRepository) ClaimAvailable(_ context.Context, groupID uuid.UUID) (*domain.PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pn := range r.byID {
		if pn.Status != domain.StatusAvailable {
			continue
		}
		pn.Status = domain.StatusAssigned
		pn.AssignedGroupID = uuid.NullUUID{UUID: groupID, Valid: true}
		pn.AssignedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		cp := *pn
		return &cp, nil
	}
	return nil, domain.ErrPoolExhausted
}

func (r *PhoneNumberRepository) Release(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pn, ok := r.byID[id]
	if !ok || pn.Status != domain.StatusAssigned {
		return domain.ErrNotAssigned
	}
	pn.Status = domain.StatusAvailable
	pn.AssignedGroupID = uuid.NullUUID{}
	pn.AssignedAt = sql.NullTime{}
	return nil
}

func (r *PhoneNumberRepository) SetStatus(_ context.Context, id uuid.UUID, expected, next domain.NumberStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pn, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pn.Status != expected {
		return domain.ErrInvalidState
	}
	pn.Status = next
	return nil
}

func (r *PhoneNumberRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pn, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pn
	return &cp, nil
}

func (r *PhoneNumberRepository) FindByNumber(_ context.Context, number string) (*domain.PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byE164[number]
	if !ok {
		return nil, nil
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *PhoneNumberRepository) List(_ context.Context) ([]*domain.PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.PhoneNumber, 0, len(r.byID))
	for _, pn := range r.byID {
		cp := *pn
		out = append(out, &cp)
	}
	return out, nil
}

func (r *PhoneNumberRepository) ListByStatus(_ context.Context, status domain.NumberStatus) ([]*domain.PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PhoneNumber
	for _, pn := range r.byID {
		if pn.Status == status {
			cp := *pn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *PhoneNumberRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pn, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pn.Status == domain.StatusAssigned {
		return domain.ErrInvalidState
	}
	delete(r.byE164, pn.Number)
	delete(r.byID, id)
	return nil
}

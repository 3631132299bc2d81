package bed

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/bedtracker/internal/domain/clinical"
)

// Scope selects which clinical histories a report covers.
type Scope string

const (
	// ScopeAll covers every history ever admitted, discharged or not.
	ScopeAll Scope = "all"
	// ScopeOccupied covers only histories attached to an occupied bed.
	ScopeOccupied Scope = "occupied"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeAll, ScopeOccupied:
		return Scope(s), nil
	}
	return "", fmt.Errorf("invalid report scope %q (want %q or %q)", s, ScopeAll, ScopeOccupied)
}

// Registry holds the fixed set of beds of the facility, numbered 1..N, and
// the ledger of every clinical history that was admitted to one of them.
// All methods are safe for concurrent use. Histories returned by the
// registry are copies.
type Registry struct {
	mu       sync.RWMutex
	beds     map[int]*Bed
	size     int
	ledger   []*clinical.ClinicalHistory
	admitted map[uuid.UUID]bool
}

// NewRegistry creates size vacant beds numbered from 1.
func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		return nil, fmt.Errorf("bed count must be positive, got %d", size)
	}
	r := &Registry{
		beds:     make(map[int]*Bed, size),
		size:     size,
		admitted: make(map[uuid.UUID]bool),
	}
	for n := 1; n <= size; n++ {
		r.beds[n] = New(n)
	}
	return r, nil
}

func (r *Registry) Size() int { return r.size }

// bed must be called with r.mu held.
func (r *Registry) bed(number int) (*Bed, error) {
	b, ok := r.beds[number]
	if !ok {
		return nil, fmt.Errorf("bed %d (valid 1-%d): %w", number, r.size, ErrBedNotFound)
	}
	return b, nil
}

func (r *Registry) Get(number int) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := r.bed(number)
	if err != nil {
		return Status{}, err
	}
	return b.Status(), nil
}

// List returns every bed ordered by number.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, r.size)
	for n := 1; n <= r.size; n++ {
		out = append(out, r.beds[n].Status())
	}
	return out
}

// Admit attaches h to the given bed and records it in the ledger.
func (r *Registry) Admit(number int, h *clinical.ClinicalHistory, service string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.bed(number)
	if err != nil {
		return err
	}
	return r.admit(b, h, service)
}

// AdmitFirstVacant attaches h to the lowest-numbered vacant bed and returns
// its number.
func (r *Registry) AdmitFirstVacant(h *clinical.ClinicalHistory, service string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n := 1; n <= r.size; n++ {
		b := r.beds[n]
		if b.Occupied() {
			continue
		}
		if err := r.admit(b, h, service); err != nil {
			return 0, err
		}
		return n, nil
	}
	return 0, ErrNoVacantBed
}

func (r *Registry) admit(b *Bed, h *clinical.ClinicalHistory, service string) error {
	if h != nil && r.admitted[h.ID] {
		return fmt.Errorf("history %s: %w", h.ID, ErrHistoryInUse)
	}
	if err := b.Admit(h, service); err != nil {
		return err
	}
	r.admitted[h.ID] = true
	r.ledger = append(r.ledger, h)
	return nil
}

// Discharge records the discharge date on the history held by the bed and
// then releases the bed. If the date is rejected the bed stays occupied.
func (r *Registry) Discharge(number int, at time.Time) (*clinical.ClinicalHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.bed(number)
	if err != nil {
		return nil, err
	}
	if !b.Occupied() {
		return nil, fmt.Errorf("bed %d: %w", number, ErrBedEmpty)
	}
	if err := b.ClinicalHistory().Discharge(at); err != nil {
		return nil, fmt.Errorf("bed %d: %w", number, err)
	}
	h, err := b.Release()
	if err != nil {
		return nil, err
	}
	return h.Clone(), nil
}

// Update applies fn to the clinical history held by an occupied bed.
func (r *Registry) Update(number int, fn func(h *clinical.ClinicalHistory) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.bed(number)
	if err != nil {
		return err
	}
	if !b.Occupied() {
		return fmt.Errorf("bed %d: %w", number, ErrBedEmpty)
	}
	return fn(b.ClinicalHistory())
}

// Snapshot is a consistent view of the registry taken under one lock.
type Snapshot struct {
	TotalBeds          int
	OccupiedBeds       int
	OccupiedPerService map[string]int
	Histories          []*clinical.ClinicalHistory
}

// Snapshot collects bed counts and the histories selected by scope. Occupied
// histories come in bed order, ledger histories in admission order.
func (r *Registry) Snapshot(scope Scope) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		TotalBeds:          r.size,
		OccupiedPerService: map[string]int{},
		Histories:          []*clinical.ClinicalHistory{},
	}
	for n := 1; n <= r.size; n++ {
		b := r.beds[n]
		if !b.Occupied() {
			continue
		}
		snap.OccupiedBeds++
		snap.OccupiedPerService[b.Service()]++
		if scope == ScopeOccupied {
			snap.Histories = append(snap.Histories, b.ClinicalHistory().Clone())
		}
	}
	if scope != ScopeOccupied {
		for _, h := range r.ledger {
			snap.Histories = append(snap.Histories, h.Clone())
		}
	}
	return snap
}

// OccupiedNumbers returns the numbers of occupied beds in ascending order.
func (r *Registry) OccupiedNumbers() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int
	for n, b := range r.beds {
		if b.Occupied() {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

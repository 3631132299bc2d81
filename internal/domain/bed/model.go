package bed

import (
	"errors"
	"fmt"

	"github.com/ehr/bedtracker/internal/domain/clinical"
)

var (
	ErrBedOccupied    = errors.New("bed is already occupied")
	ErrBedEmpty       = errors.New("bed is already empty")
	ErrBedNotFound    = errors.New("bed not found")
	ErrNoVacantBed    = errors.New("no bed available")
	ErrNilHistory     = errors.New("clinical history is required")
	ErrHistoryInUse   = errors.New("clinical history was already admitted")
	ErrUnknownService = errors.New("unknown medical service")
)

// Bed is a single-slot occupancy state machine. A bed is occupied exactly
// when it holds a clinical history; it never changes state on its own.
//
// Bed is not safe for concurrent use; Registry serializes access.
type Bed struct {
	number  int
	service string
	history *clinical.ClinicalHistory
}

func New(number int) *Bed {
	return &Bed{number: number}
}

func (b *Bed) Number() int { return b.number }

// Service is the medical service recorded at admission. It is empty while
// the bed is vacant.
func (b *Bed) Service() string { return b.service }

func (b *Bed) Occupied() bool { return b.history != nil }

func (b *Bed) ClinicalHistory() *clinical.ClinicalHistory { return b.history }

// Admit attaches h to a vacant bed. On an occupied bed it returns an error
// wrapping ErrBedOccupied and leaves the bed untouched.
func (b *Bed) Admit(h *clinical.ClinicalHistory, service string) error {
	if b.history != nil {
		return fmt.Errorf("bed %d: %w", b.number, ErrBedOccupied)
	}
	if h == nil {
		return ErrNilHistory
	}
	b.history = h
	b.service = service
	return nil
}

// Release detaches and returns the clinical history. On a vacant bed it
// returns an error wrapping ErrBedEmpty and leaves the bed untouched.
func (b *Bed) Release() (*clinical.ClinicalHistory, error) {
	if b.history == nil {
		return nil, fmt.Errorf("bed %d: %w", b.number, ErrBedEmpty)
	}
	h := b.history
	b.history = nil
	b.service = ""
	return h, nil
}

// Status is a point-in-time copy of a bed.
type Status struct {
	Number   int                       `json:"number"`
	Occupied bool                      `json:"occupied"`
	Service  string                    `json:"service,omitempty"`
	History  *clinical.ClinicalHistory `json:"clinical_history,omitempty"`
}

func (b *Bed) Status() Status {
	st := Status{Number: b.number, Occupied: b.Occupied(), Service: b.service}
	if b.history != nil {
		st.History = b.history.Clone()
	}
	return st
}

package bed

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/bedtracker/internal/domain/clinical"
	"github.com/ehr/bedtracker/internal/domain/patient"
	"github.com/ehr/bedtracker/internal/platform/reporting"
	"github.com/ehr/bedtracker/pkg/pagination"
)

// Recorder receives bed lifecycle events, typically to update metrics.
type Recorder interface {
	Admitted(service string)
	Discharged(service string, stay time.Duration)
	Occupancy(occupied, total int)
	TransitionFailed(operation string)
}

type nopRecorder struct{}

func (nopRecorder) Admitted(string)                  {}
func (nopRecorder) Discharged(string, time.Duration) {}
func (nopRecorder) Occupancy(int, int)               {}
func (nopRecorder) TransitionFailed(string)          {}

type Service struct {
	reg      *Registry
	catalog  []string
	services map[string]bool
	scope    Scope
	logger   zerolog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewService wires the registry to the catalog of medical services patients
// may be admitted to.
func NewService(reg *Registry, catalog []string, logger zerolog.Logger) *Service {
	services := make(map[string]bool, len(catalog))
	for _, s := range catalog {
		services[s] = true
	}
	return &Service{
		reg:      reg,
		catalog:  append([]string{}, catalog...),
		services: services,
		scope:    ScopeAll,
		logger:   logger,
		recorder: nopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetRecorder attaches a Recorder and publishes the current occupancy to it.
func (s *Service) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.recorder = r
	s.publishOccupancy()
}

// SetDefaultScope changes the scope used when a report request names none.
func (s *Service) SetDefaultScope(scope Scope) {
	s.scope = scope
}

// Services returns the medical service catalog in configured order.
func (s *Service) Services() []string {
	return append([]string{}, s.catalog...)
}

func (s *Service) ValidService(name string) bool {
	return s.services[name]
}

func (s *Service) TotalBeds() int {
	return s.reg.Size()
}

// AdmitRequest carries everything needed to open a clinical history. A zero
// BedNumber admits to the first vacant bed, any other number must exist; a zero AdmittedAt means now.
type AdmitRequest struct {
	BedNumber  int                `json:"bed_number,omitempty"`
	Patient    patient.Patient    `json:"patient"`
	VitalSigns patient.VitalSigns `json:"vital_signs"`
	Service    string             `json:"service"`
	AdmittedAt time.Time          `json:"admitted_at"`
}

func (s *Service) Admit(req AdmitRequest) (Status, error) {
	if !s.services[req.Service] {
		s.recorder.TransitionFailed("admit")
		return Status{}, fmt.Errorf("%q: %w", req.Service, ErrUnknownService)
	}
	if req.AdmittedAt.IsZero() {
		req.AdmittedAt = s.now()
	}
	h := clinical.NewHistory(req.Patient, req.VitalSigns, req.Service, req.AdmittedAt)

	number := req.BedNumber
	var err error
	if number != 0 {
		err = s.reg.Admit(number, h, req.Service)
	} else {
		number, err = s.reg.AdmitFirstVacant(h, req.Service)
	}
	if err != nil {
		s.recorder.TransitionFailed("admit")
		s.logger.Warn().Err(err).Int("bed", req.BedNumber).Str("service", req.Service).Msg("admission rejected")
		return Status{}, err
	}

	s.recorder.Admitted(req.Service)
	s.publishOccupancy()
	s.logger.Info().
		Int("bed", number).
		Str("service", req.Service).
		Str("history_id", h.ID.String()).
		Msg("patient admitted")
	return s.reg.Get(number)
}

// Discharge records the discharge date on the bed's clinical history and
// frees the bed. A zero at means now. The released history is returned.
func (s *Service) Discharge(number int, at time.Time) (*clinical.ClinicalHistory, error) {
	if at.IsZero() {
		at = s.now()
	}
	h, err := s.reg.Discharge(number, at)
	if err != nil {
		s.recorder.TransitionFailed("discharge")
		s.logger.Warn().Err(err).Int("bed", number).Msg("discharge rejected")
		return nil, err
	}

	stay, _ := h.LengthOfStay()
	s.recorder.Discharged(h.Service, stay)
	s.publishOccupancy()
	s.logger.Info().
		Int("bed", number).
		Str("service", h.Service).
		Str("history_id", h.ID.String()).
		Dur("length_of_stay", stay).
		Msg("patient discharged")
	return h, nil
}

func (s *Service) SetChronicDisease(number int, chronic bool) error {
	return s.update(number, "chronic_disease", func(h *clinical.ClinicalHistory) {
		h.ChronicDisease = chronic
	})
}

func (s *Service) AddEvolutionNote(number int, note string) error {
	return s.update(number, "evolution_note", func(h *clinical.ClinicalHistory) {
		h.AddEvolutionNote(note)
	})
}

func (s *Service) AddDiagnosticImage(number int, image string) error {
	return s.update(number, "diagnostic_image", func(h *clinical.ClinicalHistory) {
		h.AddDiagnosticImage(image)
	})
}

func (s *Service) AddExamResult(number int, result string) error {
	return s.update(number, "exam_result", func(h *clinical.ClinicalHistory) {
		h.AddExamResult(result)
	})
}

func (s *Service) AddMedicine(number int, medicine string) error {
	return s.update(number, "medicine", func(h *clinical.ClinicalHistory) {
		h.AddMedicine(medicine)
	})
}

func (s *Service) update(number int, field string, fn func(h *clinical.ClinicalHistory)) error {
	err := s.reg.Update(number, func(h *clinical.ClinicalHistory) error {
		fn(h)
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("bed", number).Str("field", field).Msg("clinical history update rejected")
		return err
	}
	s.logger.Debug().Int("bed", number).Str("field", field).Msg("clinical history updated")
	return nil
}

func (s *Service) GetBed(number int) (Status, error) {
	return s.reg.Get(number)
}

// ListBeds returns beds in number order, optionally filtered by "occupied"
// or "vacant".
func (s *Service) ListBeds(status string) ([]Status, error) {
	all := s.reg.List()
	if status == "" {
		return all, nil
	}
	if status != "occupied" && status != "vacant" {
		return nil, fmt.Errorf("invalid bed status filter %q", status)
	}
	want := status == "occupied"
	out := make([]Status, 0, len(all))
	for _, b := range all {
		if b.Occupied == want {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListHistories pages through the histories selected by scope.
func (s *Service) ListHistories(scope string, limit, offset int) ([]*clinical.ClinicalHistory, int, error) {
	sc, err := s.resolveScope(scope)
	if err != nil {
		return nil, 0, err
	}
	all := s.reg.Snapshot(sc).Histories
	start, end := pagination.Window(len(all), limit, offset)
	return all[start:end], len(all), nil
}

// Report builds the report summary for scope, or the default scope when
// scope is empty.
func (s *Service) Report(scope string) (reporting.Summary, error) {
	sc, err := s.resolveScope(scope)
	if err != nil {
		return reporting.Summary{}, err
	}
	snap := s.reg.Snapshot(sc)
	return reporting.Generate(reporting.Input{
		Scope:              string(sc),
		TotalBeds:          snap.TotalBeds,
		OccupiedBeds:       snap.OccupiedBeds,
		OccupiedPerService: snap.OccupiedPerService,
		Histories:          snap.Histories,
		GeneratedAt:        s.now(),
	}), nil
}

// Census is a head count of the beds.
type Census struct {
	TotalBeds          int
	OccupiedBeds       int
	OccupancyRate      float64
	OccupiedPerService map[string]int
}

func (s *Service) Census() Census {
	snap := s.reg.Snapshot(ScopeOccupied)
	return Census{
		TotalBeds:          snap.TotalBeds,
		OccupiedBeds:       snap.OccupiedBeds,
		OccupancyRate:      reporting.OccupancyRate(snap.TotalBeds, snap.OccupiedBeds),
		OccupiedPerService: snap.OccupiedPerService,
	}
}

func (s *Service) resolveScope(scope string) (Scope, error) {
	if scope == "" {
		return s.scope, nil
	}
	return ParseScope(scope)
}

func (s *Service) publishOccupancy() {
	c := s.reg.Snapshot(ScopeOccupied)
	s.recorder.Occupancy(c.OccupiedBeds, c.TotalBeds)
}

package clinical

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/bedtracker/internal/domain/patient"
)

var (
	ErrDischargeBeforeAdmission = errors.New("discharge date is before admission date")
	ErrAlreadyDischarged        = errors.New("clinical history already has a discharge date")
)

const timestampLayout = "2006-01-02 15:04"

// ClinicalHistory is the record kept for one hospital stay. It is created at
// admission and mutated through the stay; the discharge date can be recorded
// exactly once, and only through Discharge.
type ClinicalHistory struct {
	ID               uuid.UUID          `json:"id"`
	Patient          patient.Patient    `json:"patient"`
	VitalSigns       patient.VitalSigns `json:"vital_signs"`
	Service          string             `json:"service"`
	AdmissionDate    time.Time          `json:"admission_date"`
	ChronicDisease   bool               `json:"chronic_disease"`
	EvolutionNotes   []string           `json:"evolution_notes"`
	DiagnosticImages []string           `json:"diagnostic_images"`
	ExamResults      []string           `json:"exam_results"`
	Medicines        []string           `json:"medicines"`

	dischargeDate *time.Time
}

// NewHistory opens a clinical history for an admission.
func NewHistory(p patient.Patient, vitals patient.VitalSigns, service string, admittedAt time.Time) *ClinicalHistory {
	return &ClinicalHistory{
		ID:               uuid.New(),
		Patient:          p,
		VitalSigns:       vitals,
		Service:          service,
		AdmissionDate:    admittedAt,
		EvolutionNotes:   []string{},
		DiagnosticImages: []string{},
		ExamResults:      []string{},
		Medicines:        []string{},
	}
}

func (h *ClinicalHistory) AddEvolutionNote(note string) {
	h.EvolutionNotes = append(h.EvolutionNotes, note)
}

func (h *ClinicalHistory) AddDiagnosticImage(image string) {
	h.DiagnosticImages = append(h.DiagnosticImages, image)
}

func (h *ClinicalHistory) AddExamResult(result string) {
	h.ExamResults = append(h.ExamResults, result)
}

func (h *ClinicalHistory) AddMedicine(medicine string) {
	h.Medicines = append(h.Medicines, medicine)
}

// DischargeDate returns nil while the patient is still admitted.
func (h *ClinicalHistory) DischargeDate() *time.Time {
	if h.dischargeDate == nil {
		return nil
	}
	d := *h.dischargeDate
	return &d
}

func (h *ClinicalHistory) Discharged() bool {
	return h.dischargeDate != nil
}

// Discharge records the discharge date. It fails without side effects if a
// date was already recorded or if at precedes the admission date.
func (h *ClinicalHistory) Discharge(at time.Time) error {
	if h.dischargeDate != nil {
		return ErrAlreadyDischarged
	}
	if at.Before(h.AdmissionDate) {
		return fmt.Errorf("discharge %s, admission %s: %w",
			at.Format(timestampLayout), h.AdmissionDate.Format(timestampLayout), ErrDischargeBeforeAdmission)
	}
	h.dischargeDate = &at
	return nil
}

// LengthOfStay reports the elapsed time between admission and discharge.
// ok is false while the patient is still admitted.
func (h *ClinicalHistory) LengthOfStay() (stay time.Duration, ok bool) {
	if h.dischargeDate == nil {
		return 0, false
	}
	return h.dischargeDate.Sub(h.AdmissionDate), true
}

// Clone returns a deep copy that shares no slices with h.
func (h *ClinicalHistory) Clone() *ClinicalHistory {
	c := *h
	c.EvolutionNotes = append([]string{}, h.EvolutionNotes...)
	c.DiagnosticImages = append([]string{}, h.DiagnosticImages...)
	c.ExamResults = append([]string{}, h.ExamResults...)
	c.Medicines = append([]string{}, h.Medicines...)
	c.dischargeDate = h.DischargeDate()
	return &c
}

func (h *ClinicalHistory) MarshalJSON() ([]byte, error) {
	type plain ClinicalHistory
	return json.Marshal(struct {
		*plain
		DischargeDate *time.Time `json:"discharge_date,omitempty"`
	}{
		plain:         (*plain)(h),
		DischargeDate: h.dischargeDate,
	})
}

func (h *ClinicalHistory) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Admission Date: %s\n", h.AdmissionDate.Format(timestampLayout))
	if h.dischargeDate != nil {
		fmt.Fprintf(&b, "Discharge Date: %s\n", h.dischargeDate.Format(timestampLayout))
	}
	fmt.Fprintf(&b, "Service: %s\n", h.Service)
	fmt.Fprintf(&b, "Chronic Disease: %t\n", h.ChronicDisease)
	fmt.Fprintf(&b, "%s\n%s\n", h.Patient, h.VitalSigns)
	writeList(&b, "Evolution Notes", h.EvolutionNotes)
	writeList(&b, "Diagnostic Images", h.DiagnosticImages)
	writeList(&b, "Exam Results", h.ExamResults)
	writeList(&b, "Medications", h.Medicines)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	b.WriteString(title + ":\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

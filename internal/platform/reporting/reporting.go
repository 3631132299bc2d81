package reporting

import (
	"sort"
	"time"

	"github.com/ehr/bedtracker/internal/domain/clinical"
)

// OccupancyRate returns the percentage of occupied beds. It is 0 when there
// are no beds.
func OccupancyRate(totalBeds, occupiedBeds int) float64 {
	if totalBeds <= 0 {
		return 0.0
	}
	return float64(occupiedBeds) / float64(totalBeds) * 100.0
}

// AdmissionsAndDischargesPerService counts histories per service. A history
// without a discharge date counts as an admission, otherwise as a discharge,
// never both.
func AdmissionsAndDischargesPerService(histories []*clinical.ClinicalHistory) (admissions, discharges map[string]int) {
	admissions = map[string]int{}
	discharges = map[string]int{}
	for _, h := range histories {
		if h == nil {
			continue
		}
		if h.Discharged() {
			discharges[h.Service]++
		} else {
			admissions[h.Service]++
		}
	}
	return admissions, discharges
}

// AvgStayPerService averages the length of stay of discharged histories per
// service. Histories without a service are skipped.
func AvgStayPerService(histories []*clinical.ClinicalHistory) map[string]time.Duration {
	total := map[string]time.Duration{}
	count := map[string]int{}
	for _, h := range histories {
		if h == nil || h.Service == "" {
			continue
		}
		stay, ok := h.LengthOfStay()
		if !ok {
			continue
		}
		total[h.Service] += stay
		count[h.Service]++
	}

	avg := make(map[string]time.Duration, len(total))
	for service, sum := range total {
		avg[service] = sum / time.Duration(count[service])
	}
	return avg
}

// PatientsWithChronicDiseases returns the sorted set of names of patients
// flagged with a chronic disease. Patients sharing a name appear once.
func PatientsWithChronicDiseases(histories []*clinical.ClinicalHistory) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, h := range histories {
		if h == nil || !h.ChronicDisease || seen[h.Patient.Name] {
			continue
		}
		seen[h.Patient.Name] = true
		names = append(names, h.Patient.Name)
	}
	sort.Strings(names)
	return names
}

// MedsPerService concatenates the medicines of every history with a service,
// keeping per-history order and input order. Duplicates are kept.
func MedsPerService(histories []*clinical.ClinicalHistory) map[string][]string {
	meds := map[string][]string{}
	for _, h := range histories {
		if h == nil || h.Service == "" {
			continue
		}
		meds[h.Service] = append(meds[h.Service], h.Medicines...)
	}
	return meds
}

// Input is everything Generate needs; callers take it from one consistent
// view of the bed registry.
type Input struct {
	Scope              string
	TotalBeds          int
	OccupiedBeds       int
	OccupiedPerService map[string]int
	Histories          []*clinical.ClinicalHistory
	GeneratedAt        time.Time
}

// Summary holds every aggregate of a report.
type Summary struct {
	Scope              string                   `json:"scope"`
	GeneratedAt        time.Time                `json:"generated_at"`
	TotalBeds          int                      `json:"total_beds"`
	OccupiedBeds       int                      `json:"occupied_beds"`
	OccupancyRate      float64                  `json:"occupancy_rate"`
	OccupiedPerService map[string]int           `json:"occupied_beds_per_service"`
	HistoryCount       int                      `json:"history_count"`
	Admissions         map[string]int           `json:"admissions_per_service"`
	Discharges         map[string]int           `json:"discharges_per_service"`
	AverageStay        map[string]time.Duration `json:"-"`
	AverageStaySeconds map[string]float64       `json:"average_stay_seconds_per_service"`
	ChronicPatients    []string                 `json:"patients_with_chronic_diseases"`
	Medicines          map[string][]string      `json:"medicines_per_service"`
}

// Empty reports whether the summary covers no clinical history.
func (s Summary) Empty() bool { return s.HistoryCount == 0 }

func Generate(in Input) Summary {
	admissions, discharges := AdmissionsAndDischargesPerService(in.Histories)
	avg := AvgStayPerService(in.Histories)
	seconds := make(map[string]float64, len(avg))
	for service, d := range avg {
		seconds[service] = d.Seconds()
	}
	perService := in.OccupiedPerService
	if perService == nil {
		perService = map[string]int{}
	}
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	return Summary{
		Scope:              in.Scope,
		GeneratedAt:        generated,
		TotalBeds:          in.TotalBeds,
		OccupiedBeds:       in.OccupiedBeds,
		OccupancyRate:      OccupancyRate(in.TotalBeds, in.OccupiedBeds),
		OccupiedPerService: perService,
		HistoryCount:       len(in.Histories),
		Admissions:         admissions,
		Discharges:         discharges,
		AverageStay:        avg,
		AverageStaySeconds: seconds,
		ChronicPatients:    PatientsWithChronicDiseases(in.Histories),
		Medicines:          MedsPerService(in.Histories),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

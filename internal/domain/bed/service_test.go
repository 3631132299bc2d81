package bed

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/bedtracker/internal/domain/clinical"
	"github.com/ehr/bedtracker/internal/domain/patient"
)

var testCatalog = []string{"Internal Medicine", "Cardiology", "Neurology", "Pediatrics"}

type fakeRecorder struct {
	admitted   []string
	discharged map[string]time.Duration
	occupied   int
	total      int
	failures   map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{discharged: map[string]time.Duration{}, failures: map[string]int{}}
}

func (f *fakeRecorder) Admitted(service string) { f.admitted = append(f.admitted, service) }
func (f *fakeRecorder) Discharged(service string, stay time.Duration) {
	f.discharged[service] += stay
}
func (f *fakeRecorder) Occupancy(occupied, total int) { f.occupied, f.total = occupied, total }
func (f *fakeRecorder) TransitionFailed(op string)    { f.failures[op]++ }

func newTestService(t *testing.T, beds int) (*Service, *fakeRecorder, *bytes.Buffer) {
	t.Helper()
	reg := newTestRegistry(t, beds)
	var logs bytes.Buffer
	svc := NewService(reg, testCatalog, zerolog.New(&logs))
	svc.now = func() time.Time { return admittedAt.Add(72 * time.Hour) }
	rec := newFakeRecorder()
	svc.SetRecorder(rec)
	return svc, rec, &logs
}

func admitRequest(t *testing.T, name, service string) AdmitRequest {
	t.Helper()
	vitals, err := patient.NewVitalSigns(120, 37, 96, 16)
	require.NoError(t, err)
	return AdmitRequest{
		Patient:    patient.Patient{ID: "id-" + name, Name: name},
		VitalSigns: vitals,
		Service:    service,
		AdmittedAt: admittedAt,
	}
}

func TestService_SetRecorderPublishesOccupancy(t *testing.T) {
	_, rec, _ := newTestService(t, 10)
	assert.Equal(t, 0, rec.occupied)
	assert.Equal(t, 10, rec.total)
}

func TestService_Admit(t *testing.T) {
	svc, rec, logs := newTestService(t, 3)

	st, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Number)
	assert.True(t, st.Occupied)
	assert.Equal(t, "Cardiology", st.Service)
	assert.Equal(t, "Ana", st.History.Patient.Name)

	assert.Equal(t, []string{"Cardiology"}, rec.admitted)
	assert.Equal(t, 1, rec.occupied)
	assert.Contains(t, logs.String(), `"message":"patient admitted"`)
	assert.Contains(t, logs.String(), `"bed":1`)
}

func TestService_AdmitToExplicitBed(t *testing.T) {
	svc, _, _ := newTestService(t, 3)

	req := admitRequest(t, "Ana", "Neurology")
	req.BedNumber = 3
	st, err := svc.Admit(req)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Number)

	req = admitRequest(t, "Luis", "Neurology")
	req.BedNumber = 3
	_, err = svc.Admit(req)
	assert.ErrorIs(t, err, ErrBedOccupied)
}

func TestService_AdmitNegativeBedNumber(t *testing.T) {
	svc, rec, _ := newTestService(t, 3)

	req := admitRequest(t, "Ana", "Neurology")
	req.BedNumber = -3
	_, err := svc.Admit(req)
	assert.ErrorIs(t, err, ErrBedNotFound)
	assert.Equal(t, 1, rec.failures["admit"])

	st, err := svc.GetBed(1)
	require.NoError(t, err)
	assert.False(t, st.Occupied)
}

func TestService_AdmitDefaultsAdmissionTime(t *testing.T) {
	svc, _, _ := newTestService(t, 3)
	req := admitRequest(t, "Ana", "Neurology")
	req.AdmittedAt = time.Time{}

	st, err := svc.Admit(req)
	require.NoError(t, err)
	assert.Equal(t, admittedAt.Add(72*time.Hour), st.History.AdmissionDate)
}

func TestService_AdmitUnknownService(t *testing.T) {
	svc, rec, _ := newTestService(t, 3)
	_, err := svc.Admit(admitRequest(t, "Ana", "Dermatology"))
	assert.ErrorIs(t, err, ErrUnknownService)
	assert.Equal(t, 1, rec.failures["admit"])
	assert.Empty(t, rec.admitted)
}

func TestService_AdmitNoVacantBed(t *testing.T) {
	svc, rec, logs := newTestService(t, 1)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)

	_, err = svc.Admit(admitRequest(t, "Luis", "Cardiology"))
	assert.ErrorIs(t, err, ErrNoVacantBed)
	assert.Equal(t, 1, rec.failures["admit"])
	assert.Contains(t, logs.String(), "admission rejected")
}

func TestService_HistoryUpdates(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)

	require.NoError(t, svc.SetChronicDisease(1, true))
	require.NoError(t, svc.AddEvolutionNote(1, "stable"))
	require.NoError(t, svc.AddDiagnosticImage(1, "chest.png"))
	require.NoError(t, svc.AddExamResult(1, "troponin.pdf"))
	require.NoError(t, svc.AddMedicine(1, "Aspirin"))
	require.NoError(t, svc.AddMedicine(1, "Heparin"))

	st, err := svc.GetBed(1)
	require.NoError(t, err)
	h := st.History
	assert.True(t, h.ChronicDisease)
	assert.Equal(t, []string{"stable"}, h.EvolutionNotes)
	assert.Equal(t, []string{"chest.png"}, h.DiagnosticImages)
	assert.Equal(t, []string{"troponin.pdf"}, h.ExamResults)
	assert.Equal(t, []string{"Aspirin", "Heparin"}, h.Medicines)

	assert.ErrorIs(t, svc.AddMedicine(2, "Aspirin"), ErrBedEmpty)
	assert.ErrorIs(t, svc.SetChronicDisease(9, true), ErrBedNotFound)
}

func TestService_Discharge(t *testing.T) {
	svc, rec, logs := newTestService(t, 2)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)

	h, err := svc.Discharge(1, admittedAt.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Ana", h.Patient.Name)
	assert.Equal(t, admittedAt.Add(4*time.Hour), *h.DischargeDate())

	assert.Equal(t, 4*time.Hour, rec.discharged["Cardiology"])
	assert.Equal(t, 0, rec.occupied)
	assert.Contains(t, logs.String(), "patient discharged")

	st, _ := svc.GetBed(1)
	assert.False(t, st.Occupied)

	_, err = svc.Discharge(1, admittedAt.Add(5*time.Hour))
	assert.ErrorIs(t, err, ErrBedEmpty)
	assert.Equal(t, 1, rec.failures["discharge"])
}

func TestService_DischargeDefaultsToNow(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)

	h, err := svc.Discharge(1, time.Time{})
	require.NoError(t, err)
	stay, ok := h.LengthOfStay()
	assert.True(t, ok)
	assert.Equal(t, 72*time.Hour, stay)
}

func TestService_DischargeBeforeAdmission(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)

	_, err = svc.Discharge(1, admittedAt.Add(-time.Minute))
	assert.ErrorIs(t, err, clinical.ErrDischargeBeforeAdmission)
	st, _ := svc.GetBed(1)
	assert.True(t, st.Occupied)
}

func TestService_ListBeds(t *testing.T) {
	svc, _, _ := newTestService(t, 3)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)

	all, err := svc.ListBeds("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	occupied, err := svc.ListBeds("occupied")
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, 1, occupied[0].Number)

	vacant, err := svc.ListBeds("vacant")
	require.NoError(t, err)
	assert.Len(t, vacant, 2)

	_, err = svc.ListBeds("broken")
	assert.Error(t, err)
}

func TestService_ListHistories(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.Admit(admitRequest(t, name, "Cardiology"))
		require.NoError(t, err)
	}
	_, err := svc.Discharge(1, admittedAt.Add(time.Hour))
	require.NoError(t, err)

	page, total, err := svc.ListHistories("", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "A", page[0].Patient.Name)

	page, total, err = svc.ListHistories("all", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "C", page[0].Patient.Name)

	page, total, err = svc.ListHistories("occupied", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, page, 2)

	page, _, err = svc.ListHistories("all", 10, 99)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, _, err = svc.ListHistories("nope", 10, 0)
	assert.Error(t, err)
}

func TestService_ReportScopes(t *testing.T) {
	svc, _, _ := newTestService(t, 4)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)
	_, err = svc.Admit(admitRequest(t, "Luis", "Cardiology"))
	require.NoError(t, err)
	require.NoError(t, svc.SetChronicDisease(2, true))
	_, err = svc.Discharge(1, admittedAt.Add(6*time.Hour))
	require.NoError(t, err)

	all, err := svc.Report("")
	require.NoError(t, err)
	assert.Equal(t, "all", all.Scope)
	assert.Equal(t, 2, all.HistoryCount)
	assert.Equal(t, 25.0, all.OccupancyRate)
	assert.Equal(t, map[string]int{"Cardiology": 1}, all.Admissions)
	assert.Equal(t, map[string]int{"Cardiology": 1}, all.Discharges)
	assert.Equal(t, 6*time.Hour, all.AverageStay["Cardiology"])
	assert.Equal(t, []string{"Luis"}, all.ChronicPatients)

	svc.SetDefaultScope(ScopeOccupied)
	occ, err := svc.Report("")
	require.NoError(t, err)
	assert.Equal(t, "occupied", occ.Scope)
	assert.Equal(t, 1, occ.HistoryCount)
	assert.Empty(t, occ.Discharges)
	assert.Empty(t, occ.AverageStay)

	_, err = svc.Report("bogus")
	assert.Error(t, err)
}

func TestService_Census(t *testing.T) {
	svc, _, _ := newTestService(t, 4)
	_, err := svc.Admit(admitRequest(t, "Ana", "Cardiology"))
	require.NoError(t, err)
	_, err = svc.Admit(admitRequest(t, "Eva", "Neurology"))
	require.NoError(t, err)

	c := svc.Census()
	assert.Equal(t, 4, c.TotalBeds)
	assert.Equal(t, 2, c.OccupiedBeds)
	assert.Equal(t, 50.0, c.OccupancyRate)
	assert.Equal(t, map[string]int{"Cardiology": 1, "Neurology": 1}, c.OccupiedPerService)
}

func TestService_Catalog(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	assert.Equal(t, testCatalog, svc.Services())
	assert.True(t, svc.ValidService("Cardiology"))
	assert.False(t, svc.ValidService("cardiology"))
	assert.Equal(t, 1, svc.TotalBeds())

	services := svc.Services()
	services[0] = "changed"
	assert.Equal(t, "Internal Medicine", svc.Services()[0])
}

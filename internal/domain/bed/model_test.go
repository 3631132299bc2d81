package bed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/bedtracker/internal/domain/clinical"
	"github.com/ehr/bedtracker/internal/domain/patient"
)

var admittedAt = time.Date(2023, 10, 15, 2, 40, 0, 0, time.UTC)

func newHistory(t *testing.T, name, service string) *clinical.ClinicalHistory {
	t.Helper()
	vitals, err := patient.NewVitalSigns(120, 37, 96, 16)
	require.NoError(t, err)
	return clinical.NewHistory(patient.Patient{ID: "id-" + name, Name: name, Gender: "F"}, vitals, service, admittedAt)
}

func assertInvariant(t *testing.T, b *Bed) {
	t.Helper()
	assert.Equal(t, b.Occupied(), b.ClinicalHistory() != nil)
	if !b.Occupied() {
		assert.Empty(t, b.Service())
	}
}

func TestNew_IsVacant(t *testing.T) {
	b := New(7)
	assert.Equal(t, 7, b.Number())
	assert.False(t, b.Occupied())
	assert.Nil(t, b.ClinicalHistory())
	assertInvariant(t, b)
}

func TestAdmitAndRelease(t *testing.T) {
	b := New(1)
	h := newHistory(t, "P", "Cardiology")

	require.NoError(t, b.Admit(h, "Cardiology"))
	assert.True(t, b.Occupied())
	assert.Equal(t, "Cardiology", b.Service())
	assert.Same(t, h, b.ClinicalHistory())
	assertInvariant(t, b)

	released, err := b.Release()
	require.NoError(t, err)
	assert.Same(t, h, released)
	assert.False(t, b.Occupied())
	assert.Empty(t, b.Service())
	assertInvariant(t, b)

	require.NoError(t, b.Admit(newHistory(t, "Q", "Neurology"), "Neurology"))
	assert.Equal(t, "Neurology", b.Service())
	assertInvariant(t, b)
}

func TestAdmit_OccupiedBedFailsWithoutStateChange(t *testing.T) {
	b := New(3)
	first := newHistory(t, "P", "Cardiology")
	require.NoError(t, b.Admit(first, "Cardiology"))

	for i := 0; i < 2; i++ {
		err := b.Admit(newHistory(t, "Q", "Neurology"), "Neurology")
		assert.ErrorIs(t, err, ErrBedOccupied)
		assert.Contains(t, err.Error(), "bed 3")
		assert.Same(t, first, b.ClinicalHistory())
		assert.Equal(t, "Cardiology", b.Service())
		assertInvariant(t, b)
	}
}

func TestRelease_VacantBedFailsWithoutStateChange(t *testing.T) {
	b := New(4)
	for i := 0; i < 2; i++ {
		h, err := b.Release()
		assert.ErrorIs(t, err, ErrBedEmpty)
		assert.Nil(t, h)
		assert.False(t, b.Occupied())
		assertInvariant(t, b)
	}
}

func TestAdmit_NilHistory(t *testing.T) {
	b := New(1)
	assert.ErrorIs(t, b.Admit(nil, "Cardiology"), ErrNilHistory)
	assert.False(t, b.Occupied())
}

func TestAdmit_NilHistoryOnOccupiedBed(t *testing.T) {
	b := New(1)
	h := newHistory(t, "P", "Cardiology")
	require.NoError(t, b.Admit(h, "Cardiology"))

	assert.ErrorIs(t, b.Admit(nil, "Neurology"), ErrBedOccupied)
	assert.Same(t, h, b.ClinicalHistory())
	assert.Equal(t, "Cardiology", b.Service())
	assertInvariant(t, b)
}

func TestService_NotSyncedWithHistoryEdits(t *testing.T) {
	b := New(1)
	h := newHistory(t, "P", "Cardiology")
	require.NoError(t, b.Admit(h, "Cardiology"))

	h.Service = "Neurology"
	assert.Equal(t, "Cardiology", b.Service())
}

func TestStatus_CopiesHistory(t *testing.T) {
	b := New(2)
	h := newHistory(t, "P", "Cardiology")
	require.NoError(t, b.Admit(h, "Cardiology"))

	st := b.Status()
	assert.Equal(t, 2, st.Number)
	assert.True(t, st.Occupied)
	assert.Equal(t, "Cardiology", st.Service)
	require.NotNil(t, st.History)
	assert.NotSame(t, h, st.History)

	st.History.AddMedicine("Aspirin")
	assert.Empty(t, h.Medicines)

	vacant := New(5).Status()
	assert.False(t, vacant.Occupied)
	assert.Nil(t, vacant.History)
}

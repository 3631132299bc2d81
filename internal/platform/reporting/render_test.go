package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/bedtracker/internal/domain/clinical"
)

func TestRender(t *testing.T) {
	s := Generate(Input{
		Scope:              "occupied",
		TotalBeds:          4,
		OccupiedBeds:       2,
		OccupiedPerService: map[string]int{"Neurology": 1, "Cardiology": 1},
		Histories: []*clinical.ClinicalHistory{
			history(t, "Ana", "Neurology", 0, true, "Levetiracetam"),
			history(t, "Luis", "Cardiology", 0, false, "Aspirin", "Heparin"),
		},
		GeneratedAt: base,
	})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "Report scope: occupied (2 clinical histories)\n")
	assert.Contains(t, out, "Hospital Occupancy Rate: 50.00 % (2 of 4 beds)\n")
	assert.Contains(t, out, "Admissions Per Service:\n  Cardiology: 1\n  Neurology: 1\n")
	assert.Contains(t, out, "Discharges Per Service:\n  (none)\n")
	assert.Contains(t, out, "Patients With Chronic Diseases:\n  - Ana\n")
	assert.Contains(t, out, "  Cardiology: Aspirin, Heparin\n")
}

func TestFormatStay(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatStay(0))
	assert.Equal(t, "03:00:00", FormatStay(3*time.Hour))
	assert.Equal(t, "01:30:15", FormatStay(time.Hour+30*time.Minute+15*time.Second+400*time.Millisecond))
	assert.Equal(t, "2d 04:05:06", FormatStay(52*time.Hour+5*time.Minute+6*time.Second))
}

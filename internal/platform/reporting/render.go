package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Render writes the plain-text report shown by the interactive shell. Map
// entries are printed in service order so the output is stable.
func Render(w io.Writer, s Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Report scope: %s (%d clinical histories)\n", s.Scope, s.HistoryCount)
	fmt.Fprintf(&b, "Hospital Occupancy Rate: %.2f %% (%d of %d beds)\n", s.OccupancyRate, s.OccupiedBeds, s.TotalBeds)
	writeCounts(&b, "Occupied Beds Per Service", s.OccupiedPerService)
	writeCounts(&b, "Admissions Per Service", s.Admissions)
	writeCounts(&b, "Discharges Per Service", s.Discharges)

	b.WriteString("Average Length Of Stay By Service:\n")
	if len(s.AverageStay) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, service := range sortedKeys(s.AverageStay) {
		fmt.Fprintf(&b, "  %s: %s\n", service, FormatStay(s.AverageStay[service]))
	}

	b.WriteString("Patients With Chronic Diseases:\n")
	if len(s.ChronicPatients) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, name := range s.ChronicPatients {
		fmt.Fprintf(&b, "  - %s\n", name)
	}

	b.WriteString("Prescription Of Medications By Service:\n")
	if len(s.Medicines) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, service := range sortedKeys(s.Medicines) {
		fmt.Fprintf(&b, "  %s: %s\n", service, strings.Join(s.Medicines[service], ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	b.WriteString(title + ":\n")
	if len(counts) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, service := range sortedKeys(counts) {
		fmt.Fprintf(b, "  %s: %d\n", service, counts[service])
	}
}

// FormatStay renders a duration as "[Nd ]HH:MM:SS", truncated to seconds.
func FormatStay(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

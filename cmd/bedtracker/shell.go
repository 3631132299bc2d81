package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/bedtracker/internal/config"
	"github.com/ehr/bedtracker/internal/domain/bed"
	"github.com/ehr/bedtracker/internal/domain/clinical"
	"github.com/ehr/bedtracker/internal/domain/patient"
	"github.com/ehr/bedtracker/internal/platform/reporting"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

func shellCmd() *cobra.Command {
	var (
		beds  int
		scope string
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run the interactive ward menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("beds") {
				cfg.BedCount = beds
			}
			if cmd.Flags().Changed("scope") {
				cfg.ReportScope = strings.ToLower(scope)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			// Keep the menu readable: only warnings reach stderr.
			logger := newLogger(cfg, cmd.ErrOrStderr()).Level(zerolog.WarnLevel)
			svc, err := newBedService(cfg, logger)
			if err != nil {
				return err
			}
			return newShell(svc, cmd.InOrStdin(), cmd.OutOrStdout()).Run()
		},
	}
	cmd.Flags().IntVar(&beds, "beds", 0, "Number of beds (overrides BED_COUNT)")
	cmd.Flags().StringVar(&scope, "scope", "", "Report scope: all or occupied (overrides REPORT_SCOPE)")
	return cmd
}

// errQuit ends the menu loop without an error.
var errQuit = errors.New("quit")

type shell struct {
	svc *bed.Service
	in  *bufio.Scanner
	out io.Writer
	now func() time.Time
}

func newShell(svc *bed.Service, in io.Reader, out io.Writer) *shell {
	return &shell{
		svc: svc,
		in:  bufio.NewScanner(in),
		out: out,
		now: time.Now,
	}
}

func (s *shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// ask prints prompt and returns the next trimmed input line. Closed input
// ends the session.
func (s *shell) ask(prompt string) (string, error) {
	s.printf("%s", prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *shell) Run() error {
	s.printf("\n\t\tWard Bed Tracker (%d beds)\n", s.svc.TotalBeds())
	for {
		s.printf("\n\tMain Menu\n")
		s.printf("1. Admit Patient\n")
		s.printf("2. Add To Clinical History\n")
		s.printf("3. Discharge Patient\n")
		s.printf("4. Generate Report\n")
		s.printf("5. Export Report\n")
		s.printf("6. Bed Status\n")
		s.printf("7. Exit\n")

		op, err := s.ask("Enter The Option: ")
		if err != nil {
			return quitErr(err)
		}

		switch op {
		case "1":
			err = s.admit()
		case "2":
			err = s.updateHistory()
		case "3":
			err = s.discharge()
		case "4":
			err = s.report()
		case "5":
			err = s.export()
		case "6":
			s.status()
		case "7":
			var confirm string
			confirm, err = s.ask("Are you sure you want to exit? (Y/N): ")
			if err == nil && strings.EqualFold(confirm, "Y") {
				s.printf("\n\t\tHave a great day :)\n\n")
				return nil
			}
		default:
			s.printf("Invalid option, please select numbers from 1 - 7\n")
		}
		if err != nil {
			return quitErr(err)
		}
	}
}

func quitErr(err error) error {
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func (s *shell) admit() error {
	s.printf("\nEnter The Patient Information\n")
	var p patient.Patient
	var err error
	if p.ID, err = s.ask("ID: "); err != nil {
		return err
	}
	if p.Name, err = s.ask("Name: "); err != nil {
		return err
	}
	if p.Gender, err = s.ask("Gender (M/F): "); err != nil {
		return err
	}
	if p.BirthDate, err = s.askTime("Birth Date (YYYY-MM-DD): ", dateLayout); err != nil {
		return s.recoverable(err)
	}

	s.printf("\nEnter the Patient Vital Signs\n")
	var v [4]float64
	prompts := [4]string{
		"Blood Pressure (mmHg): ",
		"Temperature (°C): ",
		"Oxygen saturation (%): ",
		"Respiratory rate (bpm): ",
	}
	for i, prompt := range prompts {
		if v[i], err = s.askFloat(prompt); err != nil {
			return s.recoverable(err)
		}
	}
	vitals, err := patient.NewVitalSigns(v[0], v[1], v[2], v[3])
	if err != nil {
		return s.recoverable(err)
	}

	admittedAt, err := s.askTime("Admission date (YYYY-MM-DD HH:mm): ", dateTimeLayout)
	if err != nil {
		return s.recoverable(err)
	}

	var service string
	for {
		if service, err = s.ask("Medical Service: "); err != nil {
			return err
		}
		if s.svc.ValidService(service) {
			break
		}
		s.printf("Non existent service, services available: %s\n", strings.Join(s.svc.Services(), ", "))
	}

	st, err := s.svc.Admit(bed.AdmitRequest{
		Patient:    p,
		VitalSigns: vitals,
		Service:    service,
		AdmittedAt: admittedAt,
	})
	if errors.Is(err, bed.ErrNoVacantBed) {
		s.printf("No bed available\n")
		return nil
	}
	if err != nil {
		return s.recoverable(err)
	}
	s.printf("Patient %s admitted in bed %d\n", p.Name, st.Number)
	return nil
}

func (s *shell) updateHistory() error {
	number, ok, err := s.askOccupiedBed("Number of bed of patient to update: ")
	if err != nil || !ok {
		return err
	}

	for {
		s.printf("\n\tClinical History Menu\n")
		s.printf("1. Set Chronic Disease\n")
		s.printf("2. Add Evolution Note\n")
		s.printf("3. Attach Diagnostic Image\n")
		s.printf("4. Add Exam Result\n")
		s.printf("5. Add Medicine\n")
		s.printf("6. Done\n")

		op, err := s.ask("Enter The Option: ")
		if err != nil {
			return err
		}

		var add func(int, string) error
		var prompt string
		switch op {
		case "1":
			chronic, err := s.askYesNo("Does the patient have a chronic disease? (Y/N): ")
			if err != nil {
				return err
			}
			if err := s.svc.SetChronicDisease(number, chronic); err != nil {
				return s.recoverable(err)
			}
			continue
		case "2":
			add, prompt = s.svc.AddEvolutionNote, "Write the evolution note: "
		case "3":
			add, prompt = s.svc.AddDiagnosticImage, "Paste the image route: "
		case "4":
			add, prompt = s.svc.AddExamResult, "Enter the exam result: "
		case "5":
			add, prompt = s.svc.AddMedicine, "Enter prescription: "
		case "6":
			s.printf("Saving...\n")
			return nil
		default:
			s.printf("Invalid option, please select numbers from 1 - 6\n")
			continue
		}

		value, err := s.ask(prompt)
		if err != nil {
			return err
		}
		if value == "" {
			s.printf("Nothing entered\n")
			continue
		}
		if err := add(number, value); err != nil {
			return s.recoverable(err)
		}
	}
}

func (s *shell) discharge() error {
	number, ok, err := s.askOccupiedBed("Number of bed of patient to discharge: ")
	if err != nil || !ok {
		return err
	}
	at, err := s.askTime("Discharge date (YYYY-MM-DD HH:mm): ", dateTimeLayout)
	if err != nil {
		return s.recoverable(err)
	}
	if _, err := s.svc.Discharge(number, at); err != nil {
		return s.recoverable(err)
	}
	s.printf("Patient discharged from bed %d\n", number)
	return nil
}

func (s *shell) report() error {
	summary, err := s.svc.Report("")
	if err != nil {
		return s.recoverable(err)
	}
	if summary.Empty() {
		s.printf("No histories to generate a report.\n")
		return nil
	}
	s.printf("\n")
	return reporting.Render(s.out, summary)
}

func (s *shell) export() error {
	summary, err := s.svc.Report("")
	if err != nil {
		return s.recoverable(err)
	}
	if summary.Empty() {
		s.printf("No histories to generate a report.\n")
		return nil
	}
	def := "bed-report-" + s.now().Format("20060102-150405") + ".xlsx"
	path, err := s.ask(fmt.Sprintf("File path [%s]: ", def))
	if err != nil {
		return err
	}
	if path == "" {
		path = def
	}
	data, err := reporting.ExportXLSX(summary)
	if err != nil {
		return s.recoverable(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.printf("Error: %v\n", err)
		return nil
	}
	s.printf("Report written to %s\n", path)
	return nil
}

func (s *shell) status() {
	occupied, _ := s.svc.ListBeds("occupied")
	s.printf("\n%d of %d beds occupied\n", len(occupied), s.svc.TotalBeds())
	for _, st := range occupied {
		s.printf("Bed %d: %s, %s since %s\n",
			st.Number, st.History.Patient.Name, st.Service, st.History.AdmissionDate.Format(dateTimeLayout))
	}
}

// askOccupiedBed reads a bed number and reports whether it holds a patient.
func (s *shell) askOccupiedBed(prompt string) (int, bool, error) {
	raw, err := s.ask(prompt)
	if err != nil {
		return 0, false, err
	}
	number, err := strconv.Atoi(raw)
	if err != nil {
		s.printf("Invalid bed number %q\n", raw)
		return 0, false, nil
	}
	st, err := s.svc.GetBed(number)
	if err != nil {
		return 0, false, s.recoverable(err)
	}
	if !st.Occupied {
		s.printf("The bed %d is not occupied\n", number)
		return 0, false, nil
	}
	return number, true, nil
}

func (s *shell) askYesNo(prompt string) (bool, error) {
	for {
		answer, err := s.ask(prompt)
		if err != nil {
			return false, err
		}
		switch strings.ToUpper(answer) {
		case "Y":
			return true, nil
		case "N":
			return false, nil
		}
		s.printf("\nPlease enter Y or N\n")
	}
}

func (s *shell) askFloat(prompt string) (float64, error) {
	raw, err := s.ask(prompt)
	if err != nil {
		return 0, err
	}
	f, perr := strconv.ParseFloat(raw, 64)
	if perr != nil {
		return 0, inputError{fmt.Errorf("%q is not a number", raw)}
	}
	return f, nil
}

func (s *shell) askTime(prompt, layout string) (time.Time, error) {
	raw, err := s.ask(prompt)
	if err != nil {
		return time.Time{}, err
	}
	t, perr := time.Parse(layout, raw)
	if perr != nil {
		return time.Time{}, inputError{fmt.Errorf("%q does not match %s", raw, layout)}
	}
	return t, nil
}

// inputError marks a bad answer that sends the user back to the menu.
type inputError struct{ err error }

func (e inputError) Error() string { return e.err.Error() }
func (e inputError) Unwrap() error { return e.err }

// recoverable prints domain and input errors and swallows them; I/O errors
// and quit pass through.
func (s *shell) recoverable(err error) error {
	if errors.Is(err, errQuit) {
		return err
	}
	var ie inputError
	if errors.As(err, &ie) || isDomainError(err) {
		s.printf("Error: %v\n", err)
		return nil
	}
	return err
}

func isDomainError(err error) bool {
	for _, target := range []error{
		bed.ErrBedNotFound, bed.ErrBedOccupied, bed.ErrBedEmpty, bed.ErrNoVacantBed,
		bed.ErrUnknownService, bed.ErrHistoryInUse, bed.ErrNilHistory,
		clinical.ErrDischargeBeforeAdmission, clinical.ErrAlreadyDischarged,
		patient.ErrVitalOutOfRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

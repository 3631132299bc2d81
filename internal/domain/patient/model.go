package patient

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrVitalOutOfRange is returned when a vital sign reading falls outside the
// range accepted for that measurement. The stored value is left unchanged.
var ErrVitalOutOfRange = errors.New("vital sign out of range")

const birthDateLayout = "2006-01-02"

// Patient holds the identity of an admitted person. IDs are not required to
// be unique.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	BirthDate time.Time `json:"birth_date"`
}

func (p Patient) String() string {
	return fmt.Sprintf("ID: %s\nName: %s\nGender: %s\nBirth Date: %s",
		p.ID, p.Name, p.Gender, p.BirthDate.Format(birthDateLayout))
}

// VitalSigns is a snapshot of a patient's vital signs taken at admission.
// Values can only change through the setters, which reject out-of-range
// readings instead of storing them.
type VitalSigns struct {
	bloodPressure    float64
	temperature      float64
	oxygenSaturation float64
	breathingRate    float64
}

// NewVitalSigns validates every reading and returns the snapshot.
func NewVitalSigns(bloodPressure, temperature, oxygenSaturation, breathingRate float64) (VitalSigns, error) {
	var v VitalSigns
	if err := v.SetBloodPressure(bloodPressure); err != nil {
		return VitalSigns{}, err
	}
	if err := v.SetTemperature(temperature); err != nil {
		return VitalSigns{}, err
	}
	if err := v.SetOxygenSaturation(oxygenSaturation); err != nil {
		return VitalSigns{}, err
	}
	if err := v.SetBreathingRate(breathingRate); err != nil {
		return VitalSigns{}, err
	}
	return v, nil
}

func (v VitalSigns) BloodPressure() float64    { return v.bloodPressure }
func (v VitalSigns) Temperature() float64      { return v.temperature }
func (v VitalSigns) OxygenSaturation() float64 { return v.oxygenSaturation }
func (v VitalSigns) BreathingRate() float64    { return v.breathingRate }

func (v *VitalSigns) SetBloodPressure(mmHg float64) error {
	if mmHg < 0 {
		return outOfRange("blood_pressure", mmHg)
	}
	v.bloodPressure = mmHg
	return nil
}

func (v *VitalSigns) SetTemperature(celsius float64) error {
	if celsius < 0 {
		return outOfRange("temperature", celsius)
	}
	v.temperature = celsius
	return nil
}

// SetOxygenSaturation accepts a percentage in [0, 100].
func (v *VitalSigns) SetOxygenSaturation(percent float64) error {
	if percent < 0 || percent > 100 {
		return outOfRange("oxygen_saturation", percent)
	}
	v.oxygenSaturation = percent
	return nil
}

func (v *VitalSigns) SetBreathingRate(bpm float64) error {
	if bpm < 0 {
		return outOfRange("breathing_rate", bpm)
	}
	v.breathingRate = bpm
	return nil
}

func outOfRange(field string, value float64) error {
	return fmt.Errorf("%s %v: %w", field, value, ErrVitalOutOfRange)
}

func (v VitalSigns) String() string {
	return fmt.Sprintf("Blood Pressure: %v mmHg\nTemperature: %v °C\nOxygen Saturation: %v%%\nBreathing Rate: %v bpm",
		v.bloodPressure, v.temperature, v.oxygenSaturation, v.breathingRate)
}

type vitalSignsJSON struct {
	BloodPressure    float64 `json:"blood_pressure"`
	Temperature      float64 `json:"temperature"`
	OxygenSaturation float64 `json:"oxygen_saturation"`
	BreathingRate    float64 `json:"breathing_rate"`
}

func (v VitalSigns) MarshalJSON() ([]byte, error) {
	return json.Marshal(vitalSignsJSON{
		BloodPressure:    v.bloodPressure,
		Temperature:      v.temperature,
		OxygenSaturation: v.oxygenSaturation,
		BreathingRate:    v.breathingRate,
	})
}

// UnmarshalJSON decodes and validates a reading; invalid payloads leave v
// untouched.
func (v *VitalSigns) UnmarshalJSON(data []byte) error {
	var raw vitalSignsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewVitalSigns(raw.BloodPressure, raw.Temperature, raw.OxygenSaturation, raw.BreathingRate)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// PatientIDBase is added to the registration sequence number to form the
// display identifier, so the first patient is P1001.
const PatientIDBase = 1000

// Patient maps to the patient table.
type Patient struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     string    `db:"patient_id" json:"patientID"`
	Name          string    `db:"name" json:"name"`
	DateOfBirth   *Date     `db:"date_of_birth" json:"dateOfBirth"`
	AdmissionDate *Date     `db:"admission_date" json:"admissionDate"`
}

// FormatPatientID returns the display identifier for the n-th registration.
func FormatPatientID(n int64) string {
	return "P" + strconv.FormatInt(PatientIDBase+n, 10)
}

// CreatePatientRequest is the body accepted by POST /patients. Identifier
// fields are not part of it; they are always assigned server side.
type CreatePatientRequest struct {
	Name          string `json:"name"`
	DateOfBirth   *Date  `json:"dateOfBirth"`
	AdmissionDate *Date  `json:"admissionDate"`
}

// ToPatient builds an unregistered draft.
func (r CreatePatientRequest) ToPatient() *Patient {
	return &Patient{
		Name:          r.Name,
		DateOfBirth:   nonZero(r.DateOfBirth),
		AdmissionDate: nonZero(r.AdmissionDate),
	}
}

// nonZero maps an empty date ("" on the wire) to an absent one.
func nonZero(d *Date) *Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

// NewDate returns the date y-m-d at UTC midnight.
func NewDate(y int, m time.Month, d int) Date {
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// DateFromTime truncates t to its calendar date. A nil t yields nil.
func DateFromTime(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	d := NewDate(t.Year(), t.Month(), t.Day())
	return &d
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// TimePtr returns the date as a *time.Time for drivers; nil stays nil.
func (d *Date) TimePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

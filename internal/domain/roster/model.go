package roster

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldmed/pma/internal/domain/intake"
)

// TriageStatus is the severity category assigned to a patient at the post.
type TriageStatus string

const (
	StatusCritical  TriageStatus = "critical"  // UA
	StatusDelayed   TriageStatus = "delayed"   // UR
	StatusMinor     TriageStatus = "minor"     // UIMP
	StatusDeceased  TriageStatus = "deceased"  // DCD
	StatusUntriaged TriageStatus = "untriaged"
)

// SeverityRank orders statuses for the operational roster view. Lower is
// more urgent.
func (s TriageStatus) SeverityRank() int {
	switch s {
	case StatusCritical:
		return 0
	case StatusDelayed:
		return 1
	case StatusMinor:
		return 2
	case StatusDeceased:
		return 3
	default:
		return 4
	}
}

// Valid reports whether s is one of the known triage statuses.
func (s TriageStatus) Valid() bool {
	switch s {
	case StatusCritical, StatusDelayed, StatusMinor, StatusDeceased, StatusUntriaged:
		return true
	}
	return false
}

// Disposition is the outcome of a patient's stay at the post.
type Disposition string

const (
	DispositionNone      Disposition = "none"
	DispositionReturned  Disposition = "returned_to_activity"
	DispositionEvacuated Disposition = "evacuated"
)

// Valid reports whether d is one of the known dispositions.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionNone, DispositionReturned, DispositionEvacuated:
		return true
	}
	return false
}

// VitalSigns are display-only measurements taken during assessment.
type VitalSigns struct {
	HeartRate        *int     `db:"heart_rate" json:"heart_rate,omitempty"`
	BloodPressureSys *int     `db:"blood_pressure_sys" json:"blood_pressure_sys,omitempty"`
	BloodPressureDia *int     `db:"blood_pressure_dia" json:"blood_pressure_dia,omitempty"`
	RespiratoryRate  *int     `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation *int     `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Temperature      *float64 `db:"temperature" json:"temperature,omitempty"`
}

// MeanArterialPressure derives MAP from systolic/diastolic pressure.
// Returns nil when either component is missing.
func (v VitalSigns) MeanArterialPressure() *float64 {
	if v.BloodPressureSys == nil || v.BloodPressureDia == nil {
		return nil
	}
	m := (float64(*v.BloodPressureSys) + 2*float64(*v.BloodPressureDia)) / 3
	return &m
}

// GlasgowScore holds the three Glasgow Coma Scale sub-scores.
type GlasgowScore struct {
	Eye    *int `db:"gcs_eye" json:"eye,omitempty"`
	Verbal *int `db:"gcs_verbal" json:"verbal,omitempty"`
	Motor  *int `db:"gcs_motor" json:"motor,omitempty"`
}

// Total recomputes the total GCS from the sub-scores. Returns nil unless
// all three sub-scores are present.
func (g GlasgowScore) Total() *int {
	if g.Eye == nil || g.Verbal == nil || g.Motor == nil {
		return nil
	}
	t := *g.Eye + *g.Verbal + *g.Motor
	return &t
}

// Validate checks the sub-score ranges (eye 1-4, verbal 1-5, motor 1-6).
// Absent sub-scores are allowed.
func (g GlasgowScore) Validate() error {
	if g.Eye != nil && (*g.Eye < 1 || *g.Eye > 4) {
		return fmt.Errorf("gcs eye score %d out of range [1,4]", *g.Eye)
	}
	if g.Verbal != nil && (*g.Verbal < 1 || *g.Verbal > 5) {
		return fmt.Errorf("gcs verbal score %d out of range [1,5]", *g.Verbal)
	}
	if g.Motor != nil && (*g.Motor < 1 || *g.Motor > 6) {
		return fmt.Errorf("gcs motor score %d out of range [1,6]", *g.Motor)
	}
	return nil
}

// InjuryMarker is one injury annotation on the body diagram.
type InjuryMarker struct {
	Position    string `json:"position"`
	Side        string `json:"side"` // front or back view
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// PatientRecord is one patient admitted to the advanced medical post.
type PatientRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	BibNumber  *string   `db:"bib_number" json:"bib_number,omitempty"`
	AdmittedAt time.Time `db:"admitted_at" json:"admitted_at"`

	TriageStatus TriageStatus `db:"triage_status" json:"triage_status"`

	FirstName *string `db:"first_name" json:"first_name,omitempty"`
	LastName  *string `db:"last_name" json:"last_name,omitempty"`
	Sex       *string `db:"sex" json:"sex,omitempty"`
	ApproxAge *int    `db:"approx_age" json:"approx_age,omitempty"`
	Sector    *string `db:"sector" json:"sector,omitempty"`

	Motive *string `db:"motive" json:"motive,omitempty"`

	Vitals            VitalSigns     `json:"vitals"`
	Glasgow           GlasgowScore   `json:"glasgow"`
	PrimarySurveyNote *string        `db:"primary_survey_note" json:"primary_survey_note,omitempty"`
	InjuryMarkers     []InjuryMarker `db:"injury_markers" json:"injury_markers,omitempty"`

	// Structured intake facts; source of truth for what the legacy text
	// fields carry in encoded form.
	Team       *string  `db:"team" json:"team,omitempty"`
	Mechanisms []string `db:"mechanisms" json:"mechanisms,omitempty"`
	CareActs   []string `db:"care_acts" json:"care_acts,omitempty"`

	Disposition Disposition `db:"disposition" json:"disposition"`

	// Legacy free-text fields, rendered by the intake codec.
	Circumstances *string `db:"circumstances" json:"circumstances,omitempty"`
	Observations  *string `db:"observations" json:"observations,omitempty"`

	// Version is bumped on every update and checked at write time;
	// a stale write is rejected with ErrVersionConflict.
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DispositionEvent is one append-only entry in a patient's disposition log.
type DispositionEvent struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	PatientID   uuid.UUID   `db:"patient_id" json:"patient_id"`
	Kind        Disposition `db:"kind" json:"kind"`
	ActorName   string      `db:"actor_name" json:"actor_name"`
	Destination *string     `db:"destination" json:"destination,omitempty"`
	OccurredAt  time.Time   `db:"occurred_at" json:"occurred_at"`
}

// DisplayName renders the patient's name for operator-facing listings,
// falling back to the bib number or a placeholder when identity is unknown.
func (p *PatientRecord) DisplayName() string {
	switch {
	case p.FirstName != nil && p.LastName != nil:
		return *p.FirstName + " " + *p.LastName
	case p.LastName != nil:
		return *p.LastName
	case p.FirstName != nil:
		return *p.FirstName
	case p.BibNumber != nil:
		return "Bib " + *p.BibNumber
	default:
		return "Unknown"
	}
}

// IntakeFacts assembles the codec input from the structured columns.
func (p *PatientRecord) IntakeFacts() intake.Facts {
	f := intake.Facts{Mechanisms: p.Mechanisms, CareActs: p.CareActs}
	if p.Team != nil {
		f.Team = *p.Team
	}
	if p.Motive != nil {
		f.Narrative = *p.Motive
	}
	if p.Observations != nil {
		f.Observation = *p.Observations
	}
	switch p.Disposition {
	case DispositionReturned:
		f.Decision = "ReturnedToActivity"
	case DispositionEvacuated:
		f.Decision = "Evacuated"
	}
	return f
}

// ElapsedLabel renders whole minutes since admission for display:
// "59 min" below one hour, "1h 0m" from there on.
func (p *PatientRecord) ElapsedLabel(now time.Time) string {
	return ElapsedLabel(p.AdmittedAt, now)
}

// ElapsedLabel formats the whole minutes elapsed between two instants.
func ElapsedLabel(from, now time.Time) string {
	mins := int(now.Sub(from).Minutes())
	if mins < 0 {
		mins = 0
	}
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

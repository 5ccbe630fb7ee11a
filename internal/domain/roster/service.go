package roster

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fieldmed/pma/internal/domain/intake"
	"github.com/fieldmed/pma/internal/platform/db"
)

// Service owns the roster of patients admitted to the post. Operations that
// touch both a record and its disposition log run inside one transaction so
// a rejected write never leaves a stray event behind.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// inTx runs fn inside a transaction on the post-scoped connection. Callers
// without one (unit tests, conn-less contexts) run fn directly.
func (s *Service) inTx(ctx context.Context, fn func(context.Context) error) error {
	txCtx, tx, err := db.WithTx(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNoConn) {
			return fn(ctx)
		}
		return err
	}
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Admit registers a patient with the minimum quick-intake facts. At least a
// bib number or a sector must be present; the triage status defaults to
// minor. The admission timestamp is set once here and never mutated.
func (s *Service) Admit(ctx context.Context, p *PatientRecord) error {
	if (p.BibNumber == nil || *p.BibNumber == "") && (p.Sector == nil || *p.Sector == "") {
		return &ValidationError{Field: "bib_number", Reason: "a bib number or a sector is required"}
	}
	if p.TriageStatus == "" {
		p.TriageStatus = StatusMinor
	}
	if !p.TriageStatus.Valid() {
		return &ValidationError{Field: "triage_status", Reason: "unknown triage status"}
	}
	if err := p.Glasgow.Validate(); err != nil {
		return &ValidationError{Field: "glasgow", Reason: err.Error()}
	}
	if p.Disposition == "" {
		p.Disposition = DispositionNone
	}
	if !p.Disposition.Valid() {
		return &ValidationError{Field: "disposition", Reason: "unknown disposition"}
	}
	if p.AdmittedAt.IsZero() {
		p.AdmittedAt = time.Now().UTC()
	}
	s.renderLegacyFields(p)
	return s.repo.Create(ctx, p)
}

// StructuredIntake is the full multi-section intake form.
type StructuredIntake struct {
	Identity    IntakeIdentity    `json:"identity"`
	Context     IntakeContext     `json:"context"`
	Assessment  IntakeAssessment  `json:"assessment"`
	Care        IntakeCare        `json:"care"`
	Disposition IntakeDisposition `json:"disposition"`
}

type IntakeIdentity struct {
	BibNumber *string `json:"bib_number,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Sex       *string `json:"sex,omitempty"`
	ApproxAge *int    `json:"approx_age,omitempty"`
	Sector    *string `json:"sector,omitempty"`
}

type IntakeContext struct {
	Team       string   `json:"team,omitempty"`
	Mechanisms []string `json:"mechanisms,omitempty"`
	Narrative  string   `json:"narrative,omitempty"`
}

type IntakeAssessment struct {
	TriageStatus      TriageStatus   `json:"triage_status,omitempty"`
	Vitals            VitalSigns     `json:"vitals"`
	Glasgow           GlasgowScore   `json:"glasgow"`
	PrimarySurveyNote *string        `json:"primary_survey_note,omitempty"`
	InjuryMarkers     []InjuryMarker `json:"injury_markers,omitempty"`
}

type IntakeCare struct {
	Acts        []string `json:"acts,omitempty"`
	Observation string   `json:"observation,omitempty"`
}

type IntakeDisposition struct {
	Decision    Disposition `json:"decision,omitempty"`
	Destination *string     `json:"destination,omitempty"`
}

// AdmitStructured runs the full multi-section intake and stores the encoded
// mechanism/team/care/disposition facts in the legacy text fields. When the
// intake already carries a disposition decision, the matching disposition
// event is appended as well.
func (s *Service) AdmitStructured(ctx context.Context, in *StructuredIntake, actorName string) (*PatientRecord, error) {
	p := &PatientRecord{
		BibNumber:         in.Identity.BibNumber,
		FirstName:         in.Identity.FirstName,
		LastName:          in.Identity.LastName,
		Sex:               in.Identity.Sex,
		ApproxAge:         in.Identity.ApproxAge,
		Sector:            in.Identity.Sector,
		TriageStatus:      in.Assessment.TriageStatus,
		Vitals:            in.Assessment.Vitals,
		Glasgow:           in.Assessment.Glasgow,
		PrimarySurveyNote: in.Assessment.PrimarySurveyNote,
		InjuryMarkers:     in.Assessment.InjuryMarkers,
		Mechanisms:        in.Context.Mechanisms,
		CareActs:          in.Care.Acts,
		Disposition:       in.Disposition.Decision,
	}
	if in.Context.Team != "" {
		p.Team = &in.Context.Team
	}
	if in.Context.Narrative != "" {
		p.Motive = &in.Context.Narrative
	}
	if in.Care.Observation != "" {
		p.Observations = &in.Care.Observation
	}
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.Admit(ctx, p); err != nil {
			return err
		}
		if p.Disposition == DispositionReturned || p.Disposition == DispositionEvacuated {
			ev := &DispositionEvent{
				PatientID:   p.ID,
				Kind:        p.Disposition,
				ActorName:   actorName,
				Destination: in.Disposition.Destination,
				OccurredAt:  time.Now().UTC(),
			}
			return s.repo.AddDispositionEvent(ctx, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// Update edits a record. The caller supplies the version it read; the store
// rejects the write with ErrVersionConflict if another operator wrote first.
func (s *Service) Update(ctx context.Context, p *PatientRecord) error {
	if !p.TriageStatus.Valid() {
		return &ValidationError{Field: "triage_status", Reason: "unknown triage status"}
	}
	if p.Disposition == "" {
		p.Disposition = DispositionNone
	}
	if !p.Disposition.Valid() {
		return &ValidationError{Field: "disposition", Reason: "unknown disposition"}
	}
	if err := p.Glasgow.Validate(); err != nil {
		return &ValidationError{Field: "glasgow", Reason: err.Error()}
	}
	s.renderLegacyFields(p)
	return s.repo.Update(ctx, p)
}

// ReTriage overwrites the triage status. Any status is reachable from any
// other; rapid re-assessment in the field must never be blocked by a
// transition rule.
func (s *Service) ReTriage(ctx context.Context, id uuid.UUID, status TriageStatus) (*PatientRecord, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "triage_status", Reason: "unknown triage status"}
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.TriageStatus = status
	s.renderLegacyFields(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Discharge appends a timestamped disposition event and sets the record's
// disposition, in one transaction: a version-conflicted update must not
// leave an orphaned event. The record stays on the roster and its triage
// status is untouched; history remains visible to the operators.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, kind Disposition, destination *string, actorName string) (*PatientRecord, error) {
	if kind != DispositionReturned && kind != DispositionEvacuated {
		return nil, &ValidationError{Field: "kind", Reason: "disposition must be returned_to_activity or evacuated"}
	}
	var p *PatientRecord
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		ev := &DispositionEvent{
			PatientID:   id,
			Kind:        kind,
			ActorName:   actorName,
			Destination: destination,
			OccurredAt:  time.Now().UTC(),
		}
		if err := s.repo.AddDispositionEvent(ctx, ev); err != nil {
			return err
		}
		p.Disposition = kind
		s.renderLegacyFields(p)
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Remove hard-deletes a record. Irreversible; reserved for administrative
// cleanup.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// List returns the roster filtered by f and ordered for the operational
// view: severity rank first (critical < delayed < minor < deceased <
// untriaged), most recent admission first within a rank. The same-severity
// tie-break is newest-first on purpose; see DESIGN.md.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*PatientRecord, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	SortOperational(items)
	return items, nil
}

func (s *Service) DispositionEvents(ctx context.Context, patientID uuid.UUID) ([]*DispositionEvent, error) {
	return s.repo.ListDispositionEvents(ctx, patientID)
}

// SortOperational sorts records in place for the operational view.
func SortOperational(items []*PatientRecord) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].TriageStatus.SeverityRank(), items[j].TriageStatus.SeverityRank()
		if ri != rj {
			return ri < rj
		}
		return items[i].AdmittedAt.After(items[j].AdmittedAt)
	})
}

// renderLegacyFields re-encodes the structured facts into the legacy
// circumstances/observations text. Generic patient-record consumers keep
// reading those fields; the structured columns stay the source of truth.
func (s *Service) renderLegacyFields(p *PatientRecord) {
	f := p.IntakeFacts()
	circ := intake.EncodeCircumstances(f)
	obs := intake.EncodeObservations(f)
	p.Circumstances = &circ
	if obs == "" {
		p.Observations = nil
	} else {
		p.Observations = &obs
	}
}

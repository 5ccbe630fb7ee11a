package roster

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockRepo is an in-memory Repository for service tests.
type mockRepo struct {
	patients map[uuid.UUID]*PatientRecord
	events   map[uuid.UUID][]*DispositionEvent

	failCreate error
	failUpdate error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*PatientRecord),
		events:   make(map[uuid.UUID][]*DispositionEvent),
	}
}

func (m *mockRepo) Create(ctx context.Context, p *PatientRecord) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Version = 1
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(ctx context.Context, p *PatientRecord) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	stored, ok := m.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != p.Version {
		return ErrVersionConflict
	}
	p.Version++
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context, f ListFilter) ([]*PatientRecord, error) {
	var out []*PatientRecord
	for _, p := range m.patients {
		if f.Status != nil && p.TriageStatus != *f.Status {
			continue
		}
		if f.Search != "" && !matchesSearch(p, f.Search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func matchesSearch(p *PatientRecord, q string) bool {
	q = strings.ToLower(q)
	for _, s := range []*string{p.FirstName, p.LastName, p.BibNumber, p.Motive} {
		if s != nil && strings.Contains(strings.ToLower(*s), q) {
			return true
		}
	}
	return false
}

func (m *mockRepo) AddDispositionEvent(ctx context.Context, ev *DispositionEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	cp := *ev
	m.events[ev.PatientID] = append(m.events[ev.PatientID], &cp)
	return nil
}

func (m *mockRepo) ListDispositionEvents(ctx context.Context, patientID uuid.UUID) ([]*DispositionEvent, error) {
	return m.events[patientID], nil
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func TestAdmit_RequiresBibOrSector(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.Admit(context.Background(), &PatientRecord{})
	if err == nil {
		t.Fatal("expected validation error for empty intake")
	}
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdmit_WithBibOnly(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("42")}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.TriageStatus != StatusMinor {
		t.Errorf("expected default status minor, got %s", p.TriageStatus)
	}
	if p.AdmittedAt.IsZero() {
		t.Error("expected admission timestamp to be set")
	}
	if p.Disposition != DispositionNone {
		t.Errorf("expected disposition none, got %s", p.Disposition)
	}
	if len(repo.patients) != 1 {
		t.Errorf("expected 1 stored patient, got %d", len(repo.patients))
	}
}

func TestAdmit_WithSectorOnly(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &PatientRecord{Sector: strptr("Finish line")}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdmit_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &PatientRecord{BibNumber: strptr("1"), TriageStatus: "purple"}
	if err := svc.Admit(context.Background(), p); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdmit_RejectsInvalidGlasgow(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &PatientRecord{
		BibNumber: strptr("1"),
		Glasgow:   GlasgowScore{Eye: intptr(5)},
	}
	if err := svc.Admit(context.Background(), p); !IsValidation(err) {
		t.Fatalf("expected validation error for eye score 5, got %v", err)
	}
}

func TestAdmit_PreservesAdmittedAt(t *testing.T) {
	svc := NewService(newMockRepo())
	admitted := time.Date(2026, 6, 21, 14, 30, 0, 0, time.UTC)
	p := &PatientRecord{BibNumber: strptr("9"), AdmittedAt: admitted}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.AdmittedAt.Equal(admitted) {
		t.Errorf("admission timestamp changed: %v", p.AdmittedAt)
	}
}

func TestAdmit_RendersLegacyFields(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &PatientRecord{
		BibNumber:  strptr("12"),
		Team:       strptr("Team A"),
		Mechanisms: []string{"Fall", "Heat exhaustion"},
		Motive:     strptr("Collapsed near aid station"),
	}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Circumstances == nil {
		t.Fatal("expected circumstances to be rendered")
	}
	want := "Team: Team A | Meca: Fall, Heat exhaustion | Collapsed near aid station"
	if *p.Circumstances != want {
		t.Errorf("circumstances = %q, want %q", *p.Circumstances, want)
	}
}

func TestAdmitStructured_FullIntake(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	dest := strptr("CH Annecy")
	in := &StructuredIntake{
		Identity: IntakeIdentity{BibNumber: strptr("77"), FirstName: strptr("Lea"), LastName: strptr("Brun")},
		Context:  IntakeContext{Team: "Bravo", Mechanisms: []string{"Fall"}, Narrative: "Tripped on descent"},
		Assessment: IntakeAssessment{
			TriageStatus: StatusDelayed,
			Glasgow:      GlasgowScore{Eye: intptr(4), Verbal: intptr(5), Motor: intptr(6)},
		},
		Care:        IntakeCare{Acts: []string{"Splint"}, Observation: "stable"},
		Disposition: IntakeDisposition{Decision: DispositionEvacuated, Destination: dest},
	}

	p, err := svc.AdmitStructured(context.Background(), in, "J. Moreau")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.TriageStatus != StatusDelayed {
		t.Errorf("expected status delayed, got %s", p.TriageStatus)
	}
	if total := p.Glasgow.Total(); total == nil || *total != 15 {
		t.Errorf("expected GCS total 15, got %v", total)
	}
	if p.Observations == nil || !strings.Contains(*p.Observations, "[Soins: Splint]") {
		t.Errorf("expected encoded care acts in observations, got %v", p.Observations)
	}
	if p.Observations != nil && !strings.Contains(*p.Observations, "[Décision: Evacuated]") {
		t.Errorf("expected encoded decision in observations, got %q", *p.Observations)
	}

	events := repo.events[p.ID]
	if len(events) != 1 {
		t.Fatalf("expected 1 disposition event, got %d", len(events))
	}
	if events[0].Kind != DispositionEvacuated {
		t.Errorf("expected evacuated event, got %s", events[0].Kind)
	}
	if events[0].ActorName != "J. Moreau" {
		t.Errorf("expected actor 'J. Moreau', got %s", events[0].ActorName)
	}
}

func TestAdmitStructured_NoDecisionNoEvent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	in := &StructuredIntake{Identity: IntakeIdentity{BibNumber: strptr("5")}}
	p, err := svc.AdmitStructured(context.Background(), in, "Operator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.events[p.ID]) != 0 {
		t.Errorf("expected no disposition events, got %d", len(repo.events[p.ID]))
	}
}

func TestReTriage_AnyTransition(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("3"), TriageStatus: StatusDeceased}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No transition restrictions, even away from deceased.
	updated, err := svc.ReTriage(context.Background(), p.ID, StatusCritical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TriageStatus != StatusCritical {
		t.Errorf("expected critical, got %s", updated.TriageStatus)
	}
}

func TestReTriage_UnknownStatus(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.ReTriage(context.Background(), uuid.New(), "bogus")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReTriage_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.ReTriage(context.Background(), uuid.New(), StatusMinor)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDischarge_AppendsEventAndKeepsStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("8"), TriageStatus: StatusCritical}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dest := strptr("CH Chambery")
	updated, err := svc.Discharge(context.Background(), p.ID, DispositionEvacuated, dest, "A. Petit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Disposition != DispositionEvacuated {
		t.Errorf("expected evacuated disposition, got %s", updated.Disposition)
	}
	if updated.TriageStatus != StatusCritical {
		t.Errorf("discharge must not touch triage status, got %s", updated.TriageStatus)
	}

	events := repo.events[p.ID]
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Destination == nil || *events[0].Destination != "CH Chambery" {
		t.Errorf("unexpected destination %v", events[0].Destination)
	}
}

func TestDischarge_AccumulatesHistory(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("8")}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Discharge(context.Background(), p.ID, DispositionReturned, nil, "Op"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Discharge(context.Background(), p.ID, DispositionEvacuated, strptr("Hospital"), "Op"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, _ := svc.DispositionEvents(context.Background(), p.ID)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestDischarge_UpdateFailurePropagates(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("8")}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.failUpdate = ErrVersionConflict
	_, err := svc.Discharge(context.Background(), p.ID, DispositionReturned, nil, "Op")
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestAdmit_RejectsUnknownDisposition(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &PatientRecord{BibNumber: strptr("1"), Disposition: "kept_overnight"}
	if err := svc.Admit(context.Background(), p); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdate_RejectsUnknownDisposition(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("2")}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Disposition = "kept_overnight"
	if err := svc.Update(context.Background(), p); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDischarge_RejectsNone(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Discharge(context.Background(), uuid.New(), DispositionNone, nil, "Op")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdate_VersionConflict(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("21")}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two operators read the same version.
	first, _ := svc.Get(context.Background(), p.ID)
	second, _ := svc.Get(context.Background(), p.ID)

	first.Motive = strptr("Ankle sprain")
	if err := svc.Update(context.Background(), first); err != nil {
		t.Fatalf("first write should succeed: %v", err)
	}

	second.Motive = strptr("Cramp")
	err := svc.Update(context.Background(), second)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for stale write, got %v", err)
	}
}

func TestList_OperationalOrdering(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	base := time.Date(2026, 6, 21, 10, 0, 0, 0, time.UTC)

	admit := func(bib string, st TriageStatus, at time.Time) {
		t.Helper()
		p := &PatientRecord{BibNumber: strptr(bib), TriageStatus: st, AdmittedAt: at}
		if err := svc.Admit(context.Background(), p); err != nil {
			t.Fatalf("admit %s: %v", bib, err)
		}
	}

	admit("m-old", StatusMinor, base)
	admit("c-old", StatusCritical, base.Add(5*time.Minute))
	admit("d-1", StatusDelayed, base.Add(10*time.Minute))
	admit("c-new", StatusCritical, base.Add(20*time.Minute))
	admit("m-new", StatusMinor, base.Add(30*time.Minute))
	admit("dcd", StatusDeceased, base.Add(1*time.Minute))
	admit("unk", StatusUntriaged, base.Add(2*time.Minute))

	items, err := svc.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, p := range items {
		got = append(got, *p.BibNumber)
	}
	// Severity first, newest admission first within the same severity.
	want := []string{"c-new", "c-old", "d-1", "m-new", "m-old", "dcd", "unk"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s (order %v)", i, want[i], got[i], got)
		}
	}
}

func TestList_StatusFilter(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	for _, st := range []TriageStatus{StatusCritical, StatusMinor, StatusMinor} {
		p := &PatientRecord{Sector: strptr("s"), TriageStatus: st}
		if err := svc.Admit(context.Background(), p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	minor := StatusMinor
	items, err := svc.List(context.Background(), ListFilter{Status: &minor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 minor patients, got %d", len(items))
	}
}

func TestRemove(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &PatientRecord{BibNumber: strptr("99")}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Remove(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

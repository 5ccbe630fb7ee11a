package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldmed/pma/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, bib_number, admitted_at, triage_status,
	first_name, last_name, sex, approx_age, sector, motive,
	heart_rate, blood_pressure_sys, blood_pressure_dia, respiratory_rate,
	oxygen_saturation, temperature, gcs_eye, gcs_verbal, gcs_motor,
	primary_survey_note, injury_markers, team, mechanisms, care_acts,
	disposition, circumstances, observations, version, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*PatientRecord, error) {
	var p PatientRecord
	err := row.Scan(&p.ID, &p.BibNumber, &p.AdmittedAt, &p.TriageStatus,
		&p.FirstName, &p.LastName, &p.Sex, &p.ApproxAge, &p.Sector, &p.Motive,
		&p.Vitals.HeartRate, &p.Vitals.BloodPressureSys, &p.Vitals.BloodPressureDia, &p.Vitals.RespiratoryRate,
		&p.Vitals.OxygenSaturation, &p.Vitals.Temperature, &p.Glasgow.Eye, &p.Glasgow.Verbal, &p.Glasgow.Motor,
		&p.PrimarySurveyNote, &p.InjuryMarkers, &p.Team, &p.Mechanisms, &p.CareActs,
		&p.Disposition, &p.Circumstances, &p.Observations, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *PatientRecord) error {
	p.ID = uuid.New()
	p.Version = 1
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_record (id, bib_number, admitted_at, triage_status,
			first_name, last_name, sex, approx_age, sector, motive,
			heart_rate, blood_pressure_sys, blood_pressure_dia, respiratory_rate,
			oxygen_saturation, temperature, gcs_eye, gcs_verbal, gcs_motor,
			primary_survey_note, injury_markers, team, mechanisms, care_acts,
			disposition, circumstances, observations, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`,
		p.ID, p.BibNumber, p.AdmittedAt, p.TriageStatus,
		p.FirstName, p.LastName, p.Sex, p.ApproxAge, p.Sector, p.Motive,
		p.Vitals.HeartRate, p.Vitals.BloodPressureSys, p.Vitals.BloodPressureDia, p.Vitals.RespiratoryRate,
		p.Vitals.OxygenSaturation, p.Vitals.Temperature, p.Glasgow.Eye, p.Glasgow.Verbal, p.Glasgow.Motor,
		p.PrimarySurveyNote, p.InjuryMarkers, p.Team, p.Mechanisms, p.CareActs,
		p.Disposition, p.Circumstances, p.Observations, p.Version)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient_record WHERE id = $1`, id))
}

// Update writes the record only when the stored version matches p.Version.
// admitted_at is deliberately not in the SET list: it is set once at
// creation and never mutated.
func (r *repoPG) Update(ctx context.Context, p *PatientRecord) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_record SET bib_number=$3, triage_status=$4,
			first_name=$5, last_name=$6, sex=$7, approx_age=$8, sector=$9, motive=$10,
			heart_rate=$11, blood_pressure_sys=$12, blood_pressure_dia=$13, respiratory_rate=$14,
			oxygen_saturation=$15, temperature=$16, gcs_eye=$17, gcs_verbal=$18, gcs_motor=$19,
			primary_survey_note=$20, injury_markers=$21, team=$22, mechanisms=$23, care_acts=$24,
			disposition=$25, circumstances=$26, observations=$27,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2`,
		p.ID, p.Version, p.BibNumber, p.TriageStatus,
		p.FirstName, p.LastName, p.Sex, p.ApproxAge, p.Sector, p.Motive,
		p.Vitals.HeartRate, p.Vitals.BloodPressureSys, p.Vitals.BloodPressureDia, p.Vitals.RespiratoryRate,
		p.Vitals.OxygenSaturation, p.Vitals.Temperature, p.Glasgow.Eye, p.Glasgow.Verbal, p.Glasgow.Motor,
		p.PrimarySurveyNote, p.InjuryMarkers, p.Team, p.Mechanisms, p.CareActs,
		p.Disposition, p.Circumstances, p.Observations)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var stored int
		err := r.conn(ctx).QueryRow(ctx, `SELECT version FROM patient_record WHERE id = $1`, p.ID).Scan(&stored)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrVersionConflict
	}
	p.Version++
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_record WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*PatientRecord, error) {
	query := `SELECT ` + patientCols + ` FROM patient_record WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Search != "" {
		query += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR bib_number ILIKE $%d OR motive ILIKE $%d)`, idx, idx, idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(` AND triage_status = $%d`, idx)
		args = append(args, *f.Status)
		idx++
	}
	query += ` ORDER BY admitted_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientRecord
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) AddDispositionEvent(ctx context.Context, e *DispositionEvent) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO disposition_event (id, patient_id, kind, actor_name, destination, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.PatientID, e.Kind, e.ActorName, e.Destination, e.OccurredAt)
	return err
}

func (r *repoPG) ListDispositionEvents(ctx context.Context, patientID uuid.UUID) ([]*DispositionEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, kind, actor_name, destination, occurred_at
		FROM disposition_event WHERE patient_id = $1 ORDER BY occurred_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DispositionEvent
	for rows.Next() {
		var e DispositionEvent
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Kind, &e.ActorName, &e.Destination, &e.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

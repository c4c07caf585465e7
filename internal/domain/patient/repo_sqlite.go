package patient

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS patient (
	id             TEXT PRIMARY KEY,
	patient_id     TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	date_of_birth  TEXT,
	admission_date TEXT,
	created_at     TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_patient_patient_id ON patient (patient_id);`

type patientRepoSQLite struct{ db *sql.DB }

// NewPatientRepoSQLite creates the patient table if needed and returns a
// repository over db.
func NewPatientRepoSQLite(ctx context.Context, db *sql.DB) (PatientRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create patient table: %w", err)
	}
	return &patientRepoSQLite{db: db}, nil
}

func (r *patientRepoSQLite) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patient (id, patient_id, name, date_of_birth, admission_date)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID.String(), p.PatientID, p.Name, dateText(p.DateOfBirth), dateText(p.AdmissionDate))
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *patientRepoSQLite) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+patientCols+` FROM patient ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []*Patient{}
	for rows.Next() {
		var (
			p        Patient
			id       string
			dob, adm sql.NullString
		)
		if err := rows.Scan(&id, &p.PatientID, &p.Name, &dob, &adm); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse patient id %q: %w", id, err)
		}
		if p.DateOfBirth, err = textDate(dob); err != nil {
			return nil, err
		}
		if p.AdmissionDate, err = textDate(adm); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return items, nil
}

func (r *patientRepoSQLite) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}

func dateText(d *Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func textDate(s sql.NullString) (*Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

package repo

import (
	"context"
	"database/sql"
	"strings"

	"trayline/internal/domain"
)

const caseCols = `id,tenant_id,procedure,case_date,location,doctor,tray_id,tray_other,notes,created_at`

func scanCase(row rowScanner) (domain.Case, error) {
	var (
		c                        domain.Case
		doctor, trayOther, notes sql.NullString
		trayID                   sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.TenantID, &c.Procedure, &c.CaseDate, &c.Location,
		&doctor, &trayID, &trayOther, &notes, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Doctor = strPtr(doctor)
	c.TrayID = int64Ptr(trayID)
	c.TrayOther = strPtr(trayOther)
	c.Notes = strPtr(notes)
	return c, nil
}

func (r Repo) InsertCase(ctx context.Context, c domain.Case) (domain.Case, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO cases(tenant_id,procedure,case_date,location,doctor,tray_id,tray_other,notes,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		c.TenantID, c.Procedure, c.CaseDate, c.Location, c.Doctor, c.TrayID, c.TrayOther, c.Notes, c.CreatedAt)
	if err != nil {
		return domain.Case{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Case{}, err
	}
	return r.GetCase(ctx, c.TenantID, id)
}

func (r Repo) GetCase(ctx context.Context, tenantID string, id int64) (domain.Case, error) {
	return scanCase(r.DB.QueryRowContext(ctx, `SELECT `+caseCols+` FROM cases WHERE id=? AND tenant_id=?`, id, tenantID))
}

type CaseFilters struct {
	TenantID  string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

func (r Repo) ListCases(ctx context.Context, f CaseFilters) ([]domain.Case, error) {
	clauses := []string{"tenant_id=?"}
	args := []any{f.TenantID}
	if f.StartDate != "" {
		clauses = append(clauses, "case_date>=?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		clauses = append(clauses, "case_date<=?")
		args = append(args, f.EndDate)
	}
	query := `SELECT ` + caseCols + ` FROM cases WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY case_date`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// CaseUpdate carries the optional fields of a case update; nil fields keep
// their current values.
type CaseUpdate struct {
	Procedure *string
	CaseDate  *string
	Location  *string
	Doctor    *string
	TrayID    *int64
	TrayOther *string
	Notes     *string
}

func (r Repo) UpdateCase(ctx context.Context, tenantID string, id int64, u CaseUpdate) (domain.Case, error) {
	var (
		fields []string
		args   []any
	)
	if u.Procedure != nil {
		fields = append(fields, "procedure=?")
		args = append(args, *u.Procedure)
	}
	if u.CaseDate != nil {
		fields = append(fields, "case_date=?")
		args = append(args, *u.CaseDate)
	}
	if u.Location != nil {
		fields = append(fields, "location=?")
		args = append(args, *u.Location)
	}
	if u.Doctor != nil {
		fields = append(fields, "doctor=?")
		args = append(args, nullable(*u.Doctor))
	}
	if u.TrayID != nil {
		fields = append(fields, "tray_id=?")
		args = append(args, *u.TrayID)
	}
	if u.TrayOther != nil {
		fields = append(fields, "tray_other=?")
		args = append(args, nullable(*u.TrayOther))
	}
	if u.Notes != nil {
		fields = append(fields, "notes=?")
		args = append(args, nullable(*u.Notes))
	}
	if len(fields) > 0 {
		args = append(args, id, tenantID)
		res, err := r.DB.ExecContext(ctx, `UPDATE cases SET `+strings.Join(fields, ",")+` WHERE id=? AND tenant_id=?`, args...)
		if err != nil {
			return domain.Case{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Case{}, ErrNotFound
		}
	}
	return r.GetCase(ctx, tenantID, id)
}

func (r Repo) DeleteCase(ctx context.Context, tenantID string, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM cases WHERE id=? AND tenant_id=?`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

package repo

import (
	"context"
	"database/sql"
	"strings"

	"trayline/internal/domain"
)

const doctorCols = `id,tenant_id,name,specialty,phone,email,hospital,created_at,updated_at`

func scanDoctor(row rowScanner) (domain.Doctor, error) {
	var (
		d                                 domain.Doctor
		specialty, phone, email, hospital sql.NullString
	)
	err := row.Scan(&d.ID, &d.TenantID, &d.Name, &specialty, &phone, &email, &hospital, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Specialty = strPtr(specialty)
	d.Phone = strPtr(phone)
	d.Email = strPtr(email)
	d.Hospital = strPtr(hospital)
	return d, nil
}

func (r Repo) InsertDoctor(ctx context.Context, d domain.Doctor) (domain.Doctor, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO doctors(tenant_id,name,specialty,phone,email,hospital,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		d.TenantID, d.Name, d.Specialty, d.Phone, d.Email, d.Hospital, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return domain.Doctor{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Doctor{}, err
	}
	return r.GetDoctor(ctx, d.TenantID, id)
}

func (r Repo) GetDoctor(ctx context.Context, tenantID string, id int64) (domain.Doctor, error) {
	return scanDoctor(r.DB.QueryRowContext(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id=? AND tenant_id=?`, id, tenantID))
}

func (r Repo) ListDoctors(ctx context.Context, tenantID string) ([]domain.Doctor, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+doctorCols+` FROM doctors WHERE tenant_id=? ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

type DoctorUpdate struct {
	Name      *string
	Specialty *string
	Phone     *string
	Email     *string
	Hospital  *string
}

func (r Repo) UpdateDoctor(ctx context.Context, tenantID string, id int64, u DoctorUpdate, now string) (domain.Doctor, error) {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.Specialty != nil {
		fields = append(fields, "specialty=?")
		args = append(args, nullable(*u.Specialty))
	}
	if u.Phone != nil {
		fields = append(fields, "phone=?")
		args = append(args, nullable(*u.Phone))
	}
	if u.Email != nil {
		fields = append(fields, "email=?")
		args = append(args, nullable(*u.Email))
	}
	if u.Hospital != nil {
		fields = append(fields, "hospital=?")
		args = append(args, nullable(*u.Hospital))
	}
	if len(fields) > 0 {
		fields = append(fields, "updated_at=?")
		args = append(args, now, id, tenantID)
		res, err := r.DB.ExecContext(ctx, `UPDATE doctors SET `+strings.Join(fields, ",")+` WHERE id=? AND tenant_id=?`, args...)
		if err != nil {
			return domain.Doctor{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Doctor{}, ErrNotFound
		}
	}
	return r.GetDoctor(ctx, tenantID, id)
}

func (r Repo) DeleteDoctor(ctx context.Context, tenantID string, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM doctors WHERE id=? AND tenant_id=?`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

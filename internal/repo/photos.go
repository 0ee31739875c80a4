package repo

import (
	"context"
	"database/sql"

	"trayline/internal/domain"
)

const photoCols = `id,tenant_id,entity_type,entity_id,filename,image_data,caption,created_at`

func scanPhoto(row rowScanner) (domain.Photo, error) {
	var (
		p       domain.Photo
		caption sql.NullString
	)
	err := row.Scan(&p.ID, &p.TenantID, &p.EntityType, &p.EntityID, &p.Filename, &p.ImageData, &caption, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Caption = strPtr(caption)
	return p, nil
}

func (r Repo) InsertPhoto(ctx context.Context, p domain.Photo) (domain.Photo, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO photos(tenant_id,entity_type,entity_id,filename,image_data,caption,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.TenantID, p.EntityType, p.EntityID, p.Filename, p.ImageData, p.Caption, p.CreatedAt)
	if err != nil {
		return domain.Photo{}, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

func (r Repo) GetPhoto(ctx context.Context, tenantID string, id int64) (domain.Photo, error) {
	return scanPhoto(r.DB.QueryRowContext(ctx, `SELECT `+photoCols+` FROM photos WHERE id=? AND tenant_id=?`, id, tenantID))
}

func (r Repo) ListPhotos(ctx context.Context, tenantID, entityType string, entityID int64) ([]domain.Photo, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+photoCols+` FROM photos WHERE tenant_id=? AND entity_type=? AND entity_id=? ORDER BY id`, tenantID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) DeletePhoto(ctx context.Context, tenantID string, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM photos WHERE id=? AND tenant_id=?`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

package repo

import (
	"context"
	"database/sql"
	"strings"

	"trayline/internal/domain"
)

const noteCols = `id,tenant_id,title,content,created_at,updated_at`

func scanNote(row rowScanner) (domain.Note, error) {
	var n domain.Note
	err := row.Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	return n, err
}

func (r Repo) InsertNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO notes(tenant_id,title,content,created_at,updated_at) VALUES (?,?,?,?,?)`,
		n.TenantID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return domain.Note{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Note{}, err
	}
	return r.GetNote(ctx, n.TenantID, id)
}

func (r Repo) GetNote(ctx context.Context, tenantID string, id int64) (domain.Note, error) {
	return scanNote(r.DB.QueryRowContext(ctx, `SELECT `+noteCols+` FROM notes WHERE id=? AND tenant_id=?`, id, tenantID))
}

func (r Repo) ListNotes(ctx context.Context, tenantID string) ([]domain.Note, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+noteCols+` FROM notes WHERE tenant_id=? ORDER BY updated_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) UpdateNote(ctx context.Context, tenantID string, id int64, title, content *string, now string) (domain.Note, error) {
	var (
		fields []string
		args   []any
	)
	if title != nil {
		fields = append(fields, "title=?")
		args = append(args, *title)
	}
	if content != nil {
		fields = append(fields, "content=?")
		args = append(args, *content)
	}
	if len(fields) > 0 {
		fields = append(fields, "updated_at=?")
		args = append(args, now, id, tenantID)
		res, err := r.DB.ExecContext(ctx, `UPDATE notes SET `+strings.Join(fields, ",")+` WHERE id=? AND tenant_id=?`, args...)
		if err != nil {
			return domain.Note{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Note{}, ErrNotFound
		}
	}
	return r.GetNote(ctx, tenantID, id)
}

func (r Repo) DeleteNote(ctx context.Context, tenantID string, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM note_pins WHERE note_id=?`, id); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM notes WHERE id=? AND tenant_id=?`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertNotePin(ctx context.Context, p domain.NotePin) (domain.NotePin, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO note_pins(note_id,entity_type,entity_id,created_at) VALUES (?,?,?,?)`,
		p.NoteID, p.EntityType, p.EntityID, p.CreatedAt)
	if err != nil {
		return domain.NotePin{}, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

func (r Repo) DeleteNotePin(ctx context.Context, noteID int64, entityType string, entityID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM note_pins WHERE note_id=? AND entity_type=? AND entity_id=?`,
		noteID, entityType, entityID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListNotePins(ctx context.Context, noteID int64) ([]domain.NotePin, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,note_id,entity_type,entity_id,created_at FROM note_pins WHERE note_id=? ORDER BY id`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.NotePin
	for rows.Next() {
		var p domain.NotePin
		if err := rows.Scan(&p.ID, &p.NoteID, &p.EntityType, &p.EntityID, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ListNotesForEntity returns every note pinned to one entity.
func (r Repo) ListNotesForEntity(ctx context.Context, tenantID, entityType string, entityID int64) ([]domain.Note, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT n.id,n.tenant_id,n.title,n.content,n.created_at,n.updated_at
FROM notes n JOIN note_pins p ON p.note_id=n.id
WHERE n.tenant_id=? AND p.entity_type=? AND p.entity_id=? ORDER BY n.updated_at DESC`, tenantID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

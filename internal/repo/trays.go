package repo

import (
	"context"
	"database/sql"
	"strings"

	"trayline/internal/domain"
)

const trayCols = `id,name,status,priority_numeric,priority_partial,color,last_seen_lat,last_seen_lng,last_seen_at,last_location_type,last_location_name,linked_case_id`

func scanTray(row rowScanner) (domain.Tray, error) {
	var (
		t                        domain.Tray
		numeric                  sql.NullInt64
		partial                  int
		lat, lng                 sql.NullFloat64
		seenAt, locType, locName sql.NullString
		caseID                   sql.NullString
	)
	err := row.Scan(&t.ID, &t.Name, &t.Status, &numeric, &partial, &t.Color,
		&lat, &lng, &seenAt, &locType, &locName, &caseID)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.PriorityNumeric = intPtr(numeric)
	t.PriorityPartial = partial != 0
	t.LastSeenLat = floatPtr(lat)
	t.LastSeenLng = floatPtr(lng)
	t.LastSeenAt = strPtr(seenAt)
	t.LastLocationType = strPtr(locType)
	t.LastLocationName = strPtr(locName)
	t.LinkedCaseID = strPtr(caseID)
	return t, nil
}

func (r Repo) InsertTray(ctx context.Context, name string) (domain.Tray, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO trays(name) VALUES (?)`, name)
	if err != nil {
		return domain.Tray{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Tray{}, err
	}
	return r.GetTray(ctx, id)
}

func getTray(ctx context.Context, q runner, id int64) (domain.Tray, error) {
	return scanTray(q.QueryRowContext(ctx, `SELECT `+trayCols+` FROM trays WHERE id=?`, id))
}

func (r Repo) GetTray(ctx context.Context, id int64) (domain.Tray, error) {
	return getTray(ctx, r.DB, id)
}

func (r Repo) GetTrayTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Tray, error) {
	return getTray(ctx, tx, id)
}

func (r Repo) GetTrayByName(ctx context.Context, name string) (domain.Tray, error) {
	return scanTray(r.DB.QueryRowContext(ctx, `SELECT `+trayCols+` FROM trays WHERE name=?`, name))
}

type TrayFilters struct {
	Status string
	Color  string
	Limit  int
	Offset int
}

func (r Repo) ListTrays(ctx context.Context, f TrayFilters) ([]domain.Tray, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Color != "" {
		clauses = append(clauses, "color=?")
		args = append(args, f.Color)
	}
	query := `SELECT ` + trayCols + ` FROM trays`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name"
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
	var res []domain.Tray
	for rows.Next() {
		t, err := scanTray(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// UpdateTrayStateTx writes the recomputed status/priority/color triple.
func (r Repo) UpdateTrayStateTx(ctx context.Context, tx *sql.Tx, id int64, status string, numeric *int, partial bool, color string) error {
	res, err := tx.ExecContext(ctx, `UPDATE trays SET status=?, priority_numeric=?, priority_partial=?, color=? WHERE id=?`,
		status, numeric, boolInt(partial), color, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateTrayLastSeenTx(ctx context.Context, tx *sql.Tx, id int64, lat, lng float64, at string) error {
	_, err := tx.ExecContext(ctx, `UPDATE trays SET last_seen_lat=?, last_seen_lng=?, last_seen_at=? WHERE id=?`,
		lat, lng, at, id)
	return err
}

func (r Repo) UpdateTrayLocationTx(ctx context.Context, tx *sql.Tx, id int64, locType, locName *string, at string) error {
	_, err := tx.ExecContext(ctx, `UPDATE trays SET last_location_type=?, last_location_name=?, last_seen_at=? WHERE id=?`,
		locType, locName, at, id)
	return err
}

func (r Repo) LinkTrayCaseTx(ctx context.Context, tx *sql.Tx, id int64, caseID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE trays SET linked_case_id=? WHERE id=?`, caseID, id)
	return err
}

func (r Repo) InsertTrayItem(ctx context.Context, it domain.TrayItem) (domain.TrayItem, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO tray_items(tray_id,sku,name,is_critical,qty_expected,qty_on_hand) VALUES (?,?,?,?,?,?)`,
		it.TrayID, it.SKU, it.Name, boolInt(it.IsCritical), it.QtyExpected, it.QtyOnHand)
	if err != nil {
		return domain.TrayItem{}, err
	}
	it.ID, err = res.LastInsertId()
	return it, err
}

const trayItemCols = `id,tray_id,sku,name,is_critical,qty_expected,qty_on_hand`

func scanTrayItem(row rowScanner) (domain.TrayItem, error) {
	var (
		it               domain.TrayItem
		critical         int
		expected, onHand sql.NullInt64
	)
	err := row.Scan(&it.ID, &it.TrayID, &it.SKU, &it.Name, &critical, &expected, &onHand)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	it.IsCritical = critical != 0
	it.QtyExpected = intPtr(expected)
	it.QtyOnHand = intPtr(onHand)
	return it, nil
}

// GetTrayItemTx loads one item and checks tray ownership.
func (r Repo) GetTrayItemTx(ctx context.Context, tx *sql.Tx, trayID, itemID int64) (domain.TrayItem, error) {
	return scanTrayItem(tx.QueryRowContext(ctx, `SELECT `+trayItemCols+` FROM tray_items WHERE id=? AND tray_id=?`, itemID, trayID))
}

func listTrayItems(ctx context.Context, q runner, trayID int64) ([]domain.TrayItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+trayItemCols+` FROM tray_items WHERE tray_id=? ORDER BY id`, trayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TrayItem
	for rows.Next() {
		it, err := scanTrayItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

func (r Repo) ListTrayItems(ctx context.Context, trayID int64) ([]domain.TrayItem, error) {
	return listTrayItems(ctx, r.DB, trayID)
}

func (r Repo) ListTrayItemsTx(ctx context.Context, tx *sql.Tx, trayID int64) ([]domain.TrayItem, error) {
	return listTrayItems(ctx, tx, trayID)
}

func (r Repo) UpdateTrayItemQtyTx(ctx context.Context, tx *sql.Tx, itemID int64, qtyOnHand int) error {
	_, err := tx.ExecContext(ctx, `UPDATE tray_items SET qty_on_hand=? WHERE id=?`, qtyOnHand, itemID)
	return err
}

// ResetTrayItemsToExpectedTx sets on-hand = expected for every item that has
// an expected quantity.
func (r Repo) ResetTrayItemsToExpectedTx(ctx context.Context, tx *sql.Tx, trayID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE tray_items SET qty_on_hand=qty_expected WHERE tray_id=? AND qty_expected IS NOT NULL`, trayID)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package repo

import (
	"context"
	"database/sql"
	"strings"

	"trayline/internal/domain"
)

const standaloneCols = `id,tenant_id,name,item_type,sku,status,priority_numeric,priority_partial,color,qty_expected,qty_on_hand,is_critical,last_seen_lat,last_seen_lng,last_seen_at,last_location_type,last_location_name,created_at`

func scanStandalone(row rowScanner) (domain.StandaloneItem, error) {
	var (
		it                       domain.StandaloneItem
		sku                      sql.NullString
		numeric                  sql.NullInt64
		partial, critical        int
		expected, onHand         sql.NullInt64
		lat, lng                 sql.NullFloat64
		seenAt, locType, locName sql.NullString
	)
	err := row.Scan(&it.ID, &it.TenantID, &it.Name, &it.ItemType, &sku, &it.Status,
		&numeric, &partial, &it.Color, &expected, &onHand, &critical,
		&lat, &lng, &seenAt, &locType, &locName, &it.CreatedAt)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	it.SKU = strPtr(sku)
	it.PriorityNumeric = intPtr(numeric)
	it.PriorityPartial = partial != 0
	it.QtyExpected = intPtr(expected)
	it.QtyOnHand = intPtr(onHand)
	it.IsCritical = critical != 0
	it.LastSeenLat = floatPtr(lat)
	it.LastSeenLng = floatPtr(lng)
	it.LastSeenAt = strPtr(seenAt)
	it.LastLocationType = strPtr(locType)
	it.LastLocationName = strPtr(locName)
	return it, nil
}

func (r Repo) InsertStandaloneItem(ctx context.Context, it domain.StandaloneItem) (domain.StandaloneItem, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO standalone_items(tenant_id,name,item_type,sku,qty_expected,qty_on_hand,is_critical,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		it.TenantID, it.Name, it.ItemType, it.SKU, it.QtyExpected, it.QtyOnHand, boolInt(it.IsCritical), it.CreatedAt)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	return r.GetStandaloneItem(ctx, it.TenantID, id)
}

func getStandaloneItem(ctx context.Context, q runner, tenantID string, id int64) (domain.StandaloneItem, error) {
	return scanStandalone(q.QueryRowContext(ctx, `SELECT `+standaloneCols+` FROM standalone_items WHERE id=? AND tenant_id=?`, id, tenantID))
}

func (r Repo) GetStandaloneItem(ctx context.Context, tenantID string, id int64) (domain.StandaloneItem, error) {
	return getStandaloneItem(ctx, r.DB, tenantID, id)
}

func (r Repo) GetStandaloneItemTx(ctx context.Context, tx *sql.Tx, tenantID string, id int64) (domain.StandaloneItem, error) {
	return getStandaloneItem(ctx, tx, tenantID, id)
}

type StandaloneFilters struct {
	TenantID string
	Status   string
	ItemType string
	Limit    int
	Offset   int
}

func (r Repo) ListStandaloneItems(ctx context.Context, f StandaloneFilters) ([]domain.StandaloneItem, error) {
	clauses := []string{"tenant_id=?"}
	args := []any{f.TenantID}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.ItemType != "" {
		clauses = append(clauses, "item_type=?")
		args = append(args, f.ItemType)
	}
	query := `SELECT ` + standaloneCols + ` FROM standalone_items WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY name`
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
	var res []domain.StandaloneItem
	for rows.Next() {
		it, err := scanStandalone(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

func (r Repo) UpdateStandaloneStateTx(ctx context.Context, tx *sql.Tx, id int64, status string, numeric *int, partial bool, color string) error {
	res, err := tx.ExecContext(ctx, `UPDATE standalone_items SET status=?, priority_numeric=?, priority_partial=?, color=? WHERE id=?`,
		status, numeric, boolInt(partial), color, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateStandaloneLastSeenTx(ctx context.Context, tx *sql.Tx, id int64, lat, lng float64, at string) error {
	_, err := tx.ExecContext(ctx, `UPDATE standalone_items SET last_seen_lat=?, last_seen_lng=?, last_seen_at=? WHERE id=?`,
		lat, lng, at, id)
	return err
}

func (r Repo) UpdateStandaloneLocationTx(ctx context.Context, tx *sql.Tx, id int64, locType, locName *string, at string) error {
	_, err := tx.ExecContext(ctx, `UPDATE standalone_items SET last_location_type=?, last_location_name=?, last_seen_at=? WHERE id=?`,
		locType, locName, at, id)
	return err
}

func (r Repo) UpdateStandaloneQtyTx(ctx context.Context, tx *sql.Tx, id int64, qtyOnHand int) error {
	_, err := tx.ExecContext(ctx, `UPDATE standalone_items SET qty_on_hand=? WHERE id=?`, qtyOnHand, id)
	return err
}

// ResetStandaloneQtyToExpectedTx sets on-hand = expected when an expected
// quantity is defined.
func (r Repo) ResetStandaloneQtyToExpectedTx(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE standalone_items SET qty_on_hand=qty_expected WHERE id=? AND qty_expected IS NOT NULL`, id)
	return err
}

// StandaloneUpdate carries the optional fields of a standalone-item update;
// nil fields keep their current values.
type StandaloneUpdate struct {
	Name        *string
	ItemType    *string
	SKU         *string
	QtyExpected *int
	QtyOnHand   *int
	IsCritical  *bool
}

func (r Repo) UpdateStandaloneItem(ctx context.Context, tenantID string, id int64, u StandaloneUpdate) (domain.StandaloneItem, error) {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.ItemType != nil {
		fields = append(fields, "item_type=?")
		args = append(args, *u.ItemType)
	}
	if u.SKU != nil {
		fields = append(fields, "sku=?")
		args = append(args, nullable(*u.SKU))
	}
	if u.QtyExpected != nil {
		fields = append(fields, "qty_expected=?")
		args = append(args, *u.QtyExpected)
	}
	if u.QtyOnHand != nil {
		fields = append(fields, "qty_on_hand=?")
		args = append(args, *u.QtyOnHand)
	}
	if u.IsCritical != nil {
		fields = append(fields, "is_critical=?")
		args = append(args, boolInt(*u.IsCritical))
	}
	if len(fields) > 0 {
		args = append(args, id, tenantID)
		res, err := r.DB.ExecContext(ctx, `UPDATE standalone_items SET `+strings.Join(fields, ",")+` WHERE id=? AND tenant_id=?`, args...)
		if err != nil {
			return domain.StandaloneItem{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.StandaloneItem{}, ErrNotFound
		}
	}
	return r.GetStandaloneItem(ctx, tenantID, id)
}

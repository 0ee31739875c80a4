package repo

import (
	"context"
	"database/sql"

	"trayline/internal/domain"
)

const taskCols = `id,tray_id,status,created_at,updated_at`

func scanTask(row rowScanner) (domain.RestockTask, error) {
	var t domain.RestockTask
	err := row.Scan(&t.ID, &t.TrayID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// GetOpenTaskTx returns the single open task for a tray, or ErrNotFound.
func (r Repo) GetOpenTaskTx(ctx context.Context, tx *sql.Tx, trayID int64) (domain.RestockTask, error) {
	return scanTask(tx.QueryRowContext(ctx, `SELECT `+taskCols+` FROM restock_tasks WHERE tray_id=? AND status='open'`, trayID))
}

// InsertTaskTx creates an open task. The partial unique index on
// (tray_id) WHERE status='open' rejects a second open task for the same
// tray; callers detect that with IsUniqueViolation and re-select.
func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, trayID int64, now string) (domain.RestockTask, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO restock_tasks(tray_id,status,created_at,updated_at) VALUES (?,'open',?,?)`,
		trayID, now, now)
	if err != nil {
		return domain.RestockTask{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.RestockTask{}, err
	}
	return domain.RestockTask{ID: id, TrayID: trayID, Status: domain.TaskOpen, CreatedAt: now, UpdatedAt: now}, nil
}

func (r Repo) TouchTaskTx(ctx context.Context, tx *sql.Tx, taskID int64, now string) error {
	_, err := tx.ExecContext(ctx, `UPDATE restock_tasks SET updated_at=? WHERE id=?`, now, taskID)
	return err
}

func (r Repo) CloseTaskTx(ctx context.Context, tx *sql.Tx, taskID int64, now string) error {
	_, err := tx.ExecContext(ctx, `UPDATE restock_tasks SET status='closed', updated_at=? WHERE id=?`, now, taskID)
	return err
}

func (r Repo) ListTasks(ctx context.Context, trayID int64) ([]domain.RestockTask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskCols+` FROM restock_tasks WHERE tray_id=? ORDER BY id DESC`, trayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RestockTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

const taskItemCols = `id,task_id,item_id,qty_missing,reason,restocked,restocked_at,restocked_by`

func scanTaskItem(row rowScanner) (domain.RestockTaskItem, error) {
	var (
		ti          domain.RestockTaskItem
		qtyMissing  sql.NullInt64
		reason, by  sql.NullString
		restockedAt sql.NullString
		restocked   int
	)
	err := row.Scan(&ti.ID, &ti.TaskID, &ti.ItemID, &qtyMissing, &reason, &restocked, &restockedAt, &by)
	if err == sql.ErrNoRows {
		return ti, ErrNotFound
	}
	if err != nil {
		return ti, err
	}
	ti.QtyMissing = intPtr(qtyMissing)
	ti.Reason = strPtr(reason)
	ti.Restocked = restocked != 0
	ti.RestockedAt = strPtr(restockedAt)
	ti.RestockedBy = strPtr(by)
	return ti, nil
}

// GetUnresolvedTaskItemTx finds the open flag row for (task, item), if any.
func (r Repo) GetUnresolvedTaskItemTx(ctx context.Context, tx *sql.Tx, taskID, itemID int64) (domain.RestockTaskItem, error) {
	return scanTaskItem(tx.QueryRowContext(ctx, `SELECT `+taskItemCols+` FROM restock_task_items WHERE task_id=? AND item_id=? AND restocked=0`, taskID, itemID))
}

func (r Repo) InsertTaskItemTx(ctx context.Context, tx *sql.Tx, ti domain.RestockTaskItem) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO restock_task_items(task_id,item_id,qty_missing,reason,restocked) VALUES (?,?,?,?,0)`,
		ti.TaskID, ti.ItemID, ti.QtyMissing, ti.Reason)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ReflagTaskItemTx updates reason/qty on an existing unresolved row. Nil
// fields keep their current values.
func (r Repo) ReflagTaskItemTx(ctx context.Context, tx *sql.Tx, id int64, qtyMissing *int, reason *string) error {
	_, err := tx.ExecContext(ctx, `UPDATE restock_task_items SET qty_missing=COALESCE(?,qty_missing), reason=COALESCE(?,reason) WHERE id=?`,
		qtyMissing, reason, id)
	return err
}

func (r Repo) ResolveTaskItemTx(ctx context.Context, tx *sql.Tx, id int64, qtyMissing *int, by, at string) error {
	_, err := tx.ExecContext(ctx, `UPDATE restock_task_items SET restocked=1, restocked_at=?, restocked_by=?, qty_missing=COALESCE(?,qty_missing) WHERE id=?`,
		at, by, qtyMissing, id)
	return err
}

// ResolveAllTaskItemsTx marks every unresolved row of a task resolved.
func (r Repo) ResolveAllTaskItemsTx(ctx context.Context, tx *sql.Tx, taskID int64, by, at string) error {
	_, err := tx.ExecContext(ctx, `UPDATE restock_task_items SET restocked=1, restocked_at=?, restocked_by=? WHERE task_id=? AND restocked=0`,
		at, by, taskID)
	return err
}

func (r Repo) ListUnresolvedTaskItemsTx(ctx context.Context, tx *sql.Tx, taskID int64) ([]domain.RestockTaskItem, error) {
	return listTaskItems(ctx, tx, taskID, true)
}

func (r Repo) ListTaskItems(ctx context.Context, taskID int64) ([]domain.RestockTaskItem, error) {
	return listTaskItems(ctx, r.DB, taskID, false)
}

func (r Repo) ListTaskItemsTx(ctx context.Context, tx *sql.Tx, taskID int64) ([]domain.RestockTaskItem, error) {
	return listTaskItems(ctx, tx, taskID, false)
}

func listTaskItems(ctx context.Context, q runner, taskID int64, unresolvedOnly bool) ([]domain.RestockTaskItem, error) {
	query := `SELECT ` + taskItemCols + ` FROM restock_task_items WHERE task_id=?`
	if unresolvedOnly {
		query += ` AND restocked=0`
	}
	query += ` ORDER BY id`
	rows, err := q.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RestockTaskItem
	for rows.Next() {
		ti, err := scanTaskItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ti)
	}
	return res, rows.Err()
}

// CountOpenTasks returns the number of open tasks for a tray. Used by tests
// to assert the at-most-one-open invariant.
func (r Repo) CountOpenTasks(ctx context.Context, trayID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM restock_tasks WHERE tray_id=? AND status='open'`, trayID).Scan(&n)
	return n, err
}

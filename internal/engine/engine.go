// Package engine implements the tray and standalone-item lifecycle: drop-off,
// inventory check, partial and full restock. Every operation runs as one
// transaction covering state changes, quantity bookkeeping, restock-task
// transitions, and the audit event.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trayline/internal/config"
	"trayline/internal/domain"
	"trayline/internal/events"
	"trayline/internal/priority"
	"trayline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

// New wires an Engine over an open database.
func New(conn *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     conn,
		Repo:   repo.Repo{DB: conn},
		Events: events.Writer{DB: conn},
		Config: cfg,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

type GPS struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (g GPS) validate() error {
	if g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("invalid gps: lat %v out of range", g.Lat)
	}
	if g.Lng < -180 || g.Lng > 180 {
		return fmt.Errorf("invalid gps: lng %v out of range", g.Lng)
	}
	return nil
}

func validateLocationType(lt *string) error {
	if lt == nil {
		return nil
	}
	if !domain.ValidLocationType(*lt) {
		return fmt.Errorf("invalid location_type %q", *lt)
	}
	return nil
}

// NewPriority is the caller-assigned priority after a partial restock:
// "partial" or "1".."3".
type NewPriority string

func (p NewPriority) parse() (numeric *int, partial bool, err error) {
	switch p {
	case "partial":
		return nil, true, nil
	case "1", "2", "3":
		n := int(p[0] - '0')
		return &n, false, nil
	default:
		return nil, false, fmt.Errorf("invalid new_priority %q", string(p))
	}
}

// TaskView is a restock task with its line items.
type TaskView struct {
	domain.RestockTask
	Items []domain.RestockTaskItem `json:"items"`
}

// TrayView is the fully recomputed state returned by every lifecycle call.
type TrayView struct {
	domain.Tray
	Items    []domain.TrayItem `json:"items"`
	OpenTask *TaskView         `json:"open_task,omitempty"`
}

func (e *Engine) trayViewTx(ctx context.Context, tx *sql.Tx, trayID int64) (TrayView, error) {
	t, err := e.Repo.GetTrayTx(ctx, tx, trayID)
	if err != nil {
		return TrayView{}, err
	}
	items, err := e.Repo.ListTrayItemsTx(ctx, tx, trayID)
	if err != nil {
		return TrayView{}, err
	}
	view := TrayView{Tray: t, Items: items}
	task, err := e.Repo.GetOpenTaskTx(ctx, tx, trayID)
	if err == nil {
		taskItems, err := e.Repo.ListTaskItemsTx(ctx, tx, task.ID)
		if err != nil {
			return TrayView{}, err
		}
		view.OpenTask = &TaskView{RestockTask: task, Items: taskItems}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return TrayView{}, err
	}
	return view, nil
}

// ensureOpenTask is get-or-create for the single open task of a tray. The
// partial unique index closes the check-then-act race: a losing insert is
// detected as a unique violation and the winner's row is re-selected once.
func (e *Engine) ensureOpenTask(ctx context.Context, tx *sql.Tx, trayID int64, now string) (domain.RestockTask, error) {
	task, err := e.Repo.GetOpenTaskTx(ctx, tx, trayID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.RestockTask{}, err
	}
	task, err = e.Repo.InsertTaskTx(ctx, tx, trayID, now)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return e.Repo.GetOpenTaskTx(ctx, tx, trayID)
		}
		return domain.RestockTask{}, err
	}
	return task, nil
}

type DropOffInput struct {
	TrayID       int64
	ActorID      string
	GPS          GPS
	LocationType *string
	LocationName *string
	CaseID       *string
	Notes        *string
	DeviceMeta   *string
}

// DropOff marks the tray in_location and records its last-seen position.
func (e *Engine) DropOff(ctx context.Context, in DropOffInput) (TrayView, error) {
	if err := in.GPS.validate(); err != nil {
		return TrayView{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return TrayView{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return TrayView{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	tray, err := e.Repo.GetTrayTx(ctx, tx, in.TrayID)
	if err != nil {
		return TrayView{}, fmt.Errorf("tray %d: %w", in.TrayID, err)
	}

	status := domain.StatusInLocation
	color := priority.Color(tray.PriorityNumeric, tray.PriorityPartial, status == domain.StatusReady)
	if err := e.Repo.UpdateTrayStateTx(ctx, tx, tray.ID, status, tray.PriorityNumeric, tray.PriorityPartial, color); err != nil {
		return TrayView{}, err
	}
	if err := e.Repo.UpdateTrayLastSeenTx(ctx, tx, tray.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return TrayView{}, err
	}
	if err := e.Repo.UpdateTrayLocationTx(ctx, tx, tray.ID, in.LocationType, in.LocationName, now); err != nil {
		return TrayView{}, err
	}
	if in.CaseID != nil && *in.CaseID != "" {
		if err := e.Repo.LinkTrayCaseTx(ctx, tx, tray.ID, *in.CaseID); err != nil {
			return TrayView{}, err
		}
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "dropoff",
		EntityKind:   domain.EntityTray,
		EntityID:     tray.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		CaseID:       in.CaseID,
		Notes:        in.Notes,
		DeviceMeta:   in.DeviceMeta,
	}); err != nil {
		return TrayView{}, err
	}

	view, err := e.trayViewTx(ctx, tx, tray.ID)
	if err != nil {
		return TrayView{}, err
	}
	return view, tx.Commit()
}

type CheckItem struct {
	ItemID     int64
	Reason     *string
	QtyMissing *int
	QtyUsed    *int
}

type InventoryCheckInput struct {
	TrayID  int64
	ActorID string
	GPS     GPS
	Items   []CheckItem

	CaseWithin72h      bool
	CaseCountPerWeek   float64
	TrayAvgWeekly      float64
	AnyCriticalMissing bool

	UserPriorityNumeric *int
	UserPriorityPartial *bool

	LocationType *string
	LocationName *string
}

// InventoryCheck flags shortages, decrements on-hand counts, escalates
// priority through the non-downgrade merge, and opens a restock task if one
// is not already open.
func (e *Engine) InventoryCheck(ctx context.Context, in InventoryCheckInput) (TrayView, error) {
	if len(in.Items) == 0 {
		return TrayView{}, fmt.Errorf("at least one item is required")
	}
	if err := in.GPS.validate(); err != nil {
		return TrayView{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return TrayView{}, err
	}
	if in.UserPriorityNumeric != nil && (*in.UserPriorityNumeric < 1 || *in.UserPriorityNumeric > 3) {
		return TrayView{}, fmt.Errorf("invalid priority %d", *in.UserPriorityNumeric)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return TrayView{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	tray, err := e.Repo.GetTrayTx(ctx, tx, in.TrayID)
	if err != nil {
		return TrayView{}, fmt.Errorf("tray %d: %w", in.TrayID, err)
	}

	task, err := e.ensureOpenTask(ctx, tx, tray.ID, now)
	if err != nil {
		return TrayView{}, err
	}

	flagged := make([]events.EventPayload, 0, len(in.Items))
	for _, ci := range in.Items {
		item, err := e.Repo.GetTrayItemTx(ctx, tx, tray.ID, ci.ItemID)
		if err != nil {
			return TrayView{}, fmt.Errorf("item %d in tray %d: %w", ci.ItemID, tray.ID, err)
		}

		if ci.QtyUsed != nil && *ci.QtyUsed > 0 {
			current := 0
			if item.QtyOnHand != nil {
				current = *item.QtyOnHand
			}
			next := current - *ci.QtyUsed
			if next < 0 {
				next = 0
			}
			if err := e.Repo.UpdateTrayItemQtyTx(ctx, tx, item.ID, next); err != nil {
				return TrayView{}, err
			}
		}

		existing, err := e.Repo.GetUnresolvedTaskItemTx(ctx, tx, task.ID, item.ID)
		if errors.Is(err, repo.ErrNotFound) {
			_, err = e.Repo.InsertTaskItemTx(ctx, tx, domain.RestockTaskItem{
				TaskID:     task.ID,
				ItemID:     item.ID,
				QtyMissing: ci.QtyMissing,
				Reason:     ci.Reason,
			})
			if err != nil {
				return TrayView{}, err
			}
		} else if err != nil {
			return TrayView{}, err
		} else {
			if err := e.Repo.ReflagTaskItemTx(ctx, tx, existing.ID, ci.QtyMissing, ci.Reason); err != nil {
				return TrayView{}, err
			}
		}

		entry := events.EventPayload{"item_id": item.ID}
		if ci.QtyUsed != nil {
			entry["qty_used"] = *ci.QtyUsed
		}
		if ci.QtyMissing != nil {
			entry["qty_missing"] = *ci.QtyMissing
		}
		flagged = append(flagged, entry)
	}

	suggested := priority.SuggestEscalation(in.CaseWithin72h, in.CaseCountPerWeek, in.TrayAvgWeekly, in.AnyCriticalMissing)
	incomingNumeric := in.UserPriorityNumeric
	if incomingNumeric == nil {
		incomingNumeric = suggested
	}
	incomingPartial := false
	if in.UserPriorityPartial != nil {
		incomingPartial = *in.UserPriorityPartial
	}
	numeric, partial := priority.MergeNonDowngrade(tray.PriorityNumeric, tray.PriorityPartial, incomingNumeric, incomingPartial)

	status := domain.StatusNeedsRestock
	color := priority.Color(numeric, partial, status == domain.StatusReady)
	if err := e.Repo.UpdateTrayStateTx(ctx, tx, tray.ID, status, numeric, partial, color); err != nil {
		return TrayView{}, err
	}
	if err := e.Repo.UpdateTrayLastSeenTx(ctx, tx, tray.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return TrayView{}, err
	}
	if in.LocationType != nil {
		if err := e.Repo.UpdateTrayLocationTx(ctx, tx, tray.ID, in.LocationType, in.LocationName, now); err != nil {
			return TrayView{}, err
		}
	}
	if err := e.Repo.TouchTaskTx(ctx, tx, task.ID, now); err != nil {
		return TrayView{}, err
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "inventory_check",
		EntityKind:   domain.EntityTray,
		EntityID:     tray.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		Payload:      events.EventPayload{"items_flagged": flagged},
	}); err != nil {
		return TrayView{}, err
	}

	view, err := e.trayViewTx(ctx, tx, tray.ID)
	if err != nil {
		return TrayView{}, err
	}
	return view, tx.Commit()
}

type RestockFullInput struct {
	TrayID       int64
	ActorID      string
	GPS          GPS
	LocationType *string
	LocationName *string
	DeviceMeta   *string
	Notes        *string
}

// RestockFull is the hard reset: every unresolved task item resolves, the
// open task closes, on-hand counts return to expected, and priority clears.
// This is the only path that lowers urgency.
func (e *Engine) RestockFull(ctx context.Context, in RestockFullInput) (TrayView, error) {
	if err := in.GPS.validate(); err != nil {
		return TrayView{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return TrayView{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return TrayView{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	tray, err := e.Repo.GetTrayTx(ctx, tx, in.TrayID)
	if err != nil {
		return TrayView{}, fmt.Errorf("tray %d: %w", in.TrayID, err)
	}

	if err := e.Repo.ResetTrayItemsToExpectedTx(ctx, tx, tray.ID); err != nil {
		return TrayView{}, err
	}

	task, err := e.Repo.GetOpenTaskTx(ctx, tx, tray.ID)
	if err == nil {
		if err := e.Repo.ResolveAllTaskItemsTx(ctx, tx, task.ID, in.ActorID, now); err != nil {
			return TrayView{}, err
		}
		if err := e.Repo.CloseTaskTx(ctx, tx, task.ID, now); err != nil {
			return TrayView{}, err
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return TrayView{}, err
	}

	color := priority.Color(nil, false, true)
	if err := e.Repo.UpdateTrayStateTx(ctx, tx, tray.ID, domain.StatusReady, nil, false, color); err != nil {
		return TrayView{}, err
	}
	if err := e.Repo.UpdateTrayLastSeenTx(ctx, tx, tray.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return TrayView{}, err
	}
	if in.LocationType != nil {
		if err := e.Repo.UpdateTrayLocationTx(ctx, tx, tray.ID, in.LocationType, in.LocationName, now); err != nil {
			return TrayView{}, err
		}
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "restock_full",
		EntityKind:   domain.EntityTray,
		EntityID:     tray.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		Notes:        in.Notes,
		DeviceMeta:   in.DeviceMeta,
	}); err != nil {
		return TrayView{}, err
	}

	view, err := e.trayViewTx(ctx, tx, tray.ID)
	if err != nil {
		return TrayView{}, err
	}
	return view, tx.Commit()
}

type RestockItem struct {
	ItemID       int64
	QtyRestocked *int
}

type RestockPartialInput struct {
	TrayID       int64
	ActorID      string
	GPS          GPS
	Items        []RestockItem
	NewPriority  NewPriority
	LocationType *string
	LocationName *string
	DeviceMeta   *string
	Notes        *string
}

// RestockPartial resolves the reported task items, tops up on-hand counts
// capped at expected, and assigns the caller-supplied priority. The task
// closes the moment no unresolved items remain; "partial" degrades to no
// urgency at that point.
func (e *Engine) RestockPartial(ctx context.Context, in RestockPartialInput) (TrayView, error) {
	if len(in.Items) == 0 {
		return TrayView{}, fmt.Errorf("at least one item is required")
	}
	if err := in.GPS.validate(); err != nil {
		return TrayView{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return TrayView{}, err
	}
	newNumeric, newPartial, err := in.NewPriority.parse()
	if err != nil {
		return TrayView{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return TrayView{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	tray, err := e.Repo.GetTrayTx(ctx, tx, in.TrayID)
	if err != nil {
		return TrayView{}, fmt.Errorf("tray %d: %w", in.TrayID, err)
	}

	task, err := e.ensureOpenTask(ctx, tx, tray.ID, now)
	if err != nil {
		return TrayView{}, err
	}

	byID := make(map[int64]RestockItem, len(in.Items))
	restocked := make([]events.EventPayload, 0, len(in.Items))
	for _, ri := range in.Items {
		byID[ri.ItemID] = ri

		item, err := e.Repo.GetTrayItemTx(ctx, tx, tray.ID, ri.ItemID)
		if err != nil {
			return TrayView{}, fmt.Errorf("item %d in tray %d: %w", ri.ItemID, tray.ID, err)
		}
		if ri.QtyRestocked != nil && *ri.QtyRestocked > 0 {
			current := 0
			if item.QtyOnHand != nil {
				current = *item.QtyOnHand
			}
			next := current + *ri.QtyRestocked
			if item.QtyExpected != nil && next > *item.QtyExpected {
				next = *item.QtyExpected
			}
			if err := e.Repo.UpdateTrayItemQtyTx(ctx, tx, item.ID, next); err != nil {
				return TrayView{}, err
			}
		}

		entry := events.EventPayload{"item_id": ri.ItemID}
		if ri.QtyRestocked != nil {
			entry["qty_restocked"] = *ri.QtyRestocked
		}
		restocked = append(restocked, entry)
	}

	openItems, err := e.Repo.ListUnresolvedTaskItemsTx(ctx, tx, task.ID)
	if err != nil {
		return TrayView{}, err
	}
	for _, oi := range openItems {
		ri, ok := byID[oi.ItemID]
		if !ok {
			continue
		}
		qtyMissing := oi.QtyMissing
		if ri.QtyRestocked != nil {
			missing := 0
			if oi.QtyMissing != nil {
				missing = *oi.QtyMissing
			}
			remaining := missing - *ri.QtyRestocked
			if remaining < 0 {
				remaining = 0
			}
			qtyMissing = &remaining
		}
		if err := e.Repo.ResolveTaskItemTx(ctx, tx, oi.ID, qtyMissing, in.ActorID, now); err != nil {
			return TrayView{}, err
		}
	}

	remaining, err := e.Repo.ListUnresolvedTaskItemsTx(ctx, tx, task.ID)
	if err != nil {
		return TrayView{}, err
	}

	status := domain.StatusReady
	if len(remaining) > 0 {
		status = domain.StatusNeedsRestock
	}
	if newNumeric == nil && newPartial {
		newPartial = len(remaining) > 0
	}
	color := priority.Color(newNumeric, newPartial, status == domain.StatusReady)
	if err := e.Repo.UpdateTrayStateTx(ctx, tx, tray.ID, status, newNumeric, newPartial, color); err != nil {
		return TrayView{}, err
	}
	if err := e.Repo.UpdateTrayLastSeenTx(ctx, tx, tray.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return TrayView{}, err
	}
	if in.LocationType != nil {
		if err := e.Repo.UpdateTrayLocationTx(ctx, tx, tray.ID, in.LocationType, in.LocationName, now); err != nil {
			return TrayView{}, err
		}
	}
	if len(remaining) == 0 {
		if err := e.Repo.CloseTaskTx(ctx, tx, task.ID, now); err != nil {
			return TrayView{}, err
		}
	} else if err := e.Repo.TouchTaskTx(ctx, tx, task.ID, now); err != nil {
		return TrayView{}, err
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "restock_partial",
		EntityKind:   domain.EntityTray,
		EntityID:     tray.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		Notes:        in.Notes,
		DeviceMeta:   in.DeviceMeta,
		Payload:      events.EventPayload{"restocked_items": restocked},
	}); err != nil {
		return TrayView{}, err
	}

	view, err := e.trayViewTx(ctx, tx, tray.ID)
	if err != nil {
		return TrayView{}, err
	}
	return view, tx.Commit()
}

// CreateTray seeds a tray in the ready state.
func (e *Engine) CreateTray(ctx context.Context, name string) (TrayView, error) {
	if name == "" {
		return TrayView{}, fmt.Errorf("name is required")
	}
	t, err := e.Repo.InsertTray(ctx, name)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return TrayView{}, fmt.Errorf("tray name %q conflicts with an existing tray", name)
		}
		return TrayView{}, err
	}
	items, err := e.Repo.ListTrayItems(ctx, t.ID)
	if err != nil {
		return TrayView{}, err
	}
	return TrayView{Tray: t, Items: items}, nil
}

type AddTrayItemInput struct {
	TrayID      int64
	SKU         string
	Name        string
	IsCritical  bool
	QtyExpected *int
	QtyOnHand   *int
}

// AddTrayItem registers one sub-item. A missing on-hand count starts at the
// expected quantity.
func (e *Engine) AddTrayItem(ctx context.Context, in AddTrayItemInput) (domain.TrayItem, error) {
	if in.SKU == "" || in.Name == "" {
		return domain.TrayItem{}, fmt.Errorf("sku and name are required")
	}
	if _, err := e.Repo.GetTray(ctx, in.TrayID); err != nil {
		return domain.TrayItem{}, fmt.Errorf("tray %d: %w", in.TrayID, err)
	}
	onHand := in.QtyOnHand
	if onHand == nil {
		onHand = in.QtyExpected
	}
	it, err := e.Repo.InsertTrayItem(ctx, domain.TrayItem{
		TrayID:      in.TrayID,
		SKU:         in.SKU,
		Name:        in.Name,
		IsCritical:  in.IsCritical,
		QtyExpected: in.QtyExpected,
		QtyOnHand:   onHand,
	})
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.TrayItem{}, fmt.Errorf("sku %q conflicts with an existing item in tray %d", in.SKU, in.TrayID)
		}
		return domain.TrayItem{}, err
	}
	return it, nil
}

// GetTrayView assembles the full read view outside any transaction.
func (e *Engine) GetTrayView(ctx context.Context, trayID int64) (TrayView, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return TrayView{}, err
	}
	defer tx.Rollback()
	view, err := e.trayViewTx(ctx, tx, trayID)
	if err != nil {
		return TrayView{}, err
	}
	return view, tx.Commit()
}

// GetTrayViewByName resolves a tray through its unique name.
func (e *Engine) GetTrayViewByName(ctx context.Context, name string) (TrayView, error) {
	t, err := e.Repo.GetTrayByName(ctx, name)
	if err != nil {
		return TrayView{}, fmt.Errorf("tray %q: %w", name, err)
	}
	return e.GetTrayView(ctx, t.ID)
}

package engine

import (
	"context"
	"fmt"

	"trayline/internal/domain"
	"trayline/internal/events"
	"trayline/internal/priority"
)

func (e *Engine) tenantID() string {
	if e.Config != nil {
		return e.Config.Tenant.ID
	}
	return ""
}

type CreateStandaloneItemInput struct {
	Name        string
	ItemType    string
	SKU         *string
	QtyExpected *int
	QtyOnHand   *int
	IsCritical  bool
}

func (e *Engine) CreateStandaloneItem(ctx context.Context, in CreateStandaloneItemInput) (domain.StandaloneItem, error) {
	if in.Name == "" || in.ItemType == "" {
		return domain.StandaloneItem{}, fmt.Errorf("name and item_type are required")
	}
	onHand := in.QtyOnHand
	if onHand == nil {
		onHand = in.QtyExpected
	}
	return e.Repo.InsertStandaloneItem(ctx, domain.StandaloneItem{
		TenantID:    e.tenantID(),
		Name:        in.Name,
		ItemType:    in.ItemType,
		SKU:         in.SKU,
		QtyExpected: in.QtyExpected,
		QtyOnHand:   onHand,
		IsCritical:  in.IsCritical,
		CreatedAt:   e.nowRFC3339(),
	})
}

type StandaloneDropOffInput struct {
	ItemID       int64
	ActorID      string
	GPS          GPS
	LocationType *string
	LocationName *string
	Notes        *string
	DeviceMeta   *string
}

// StandaloneDropOff marks the item in_location and records where it was left.
func (e *Engine) StandaloneDropOff(ctx context.Context, in StandaloneDropOffInput) (domain.StandaloneItem, error) {
	if err := in.GPS.validate(); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return domain.StandaloneItem{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	item, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), in.ItemID)
	if err != nil {
		return domain.StandaloneItem{}, fmt.Errorf("standalone item %d: %w", in.ItemID, err)
	}

	status := domain.StatusInLocation
	color := priority.Color(item.PriorityNumeric, item.PriorityPartial, status == domain.StatusReady)
	if err := e.Repo.UpdateStandaloneStateTx(ctx, tx, item.ID, status, item.PriorityNumeric, item.PriorityPartial, color); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := e.Repo.UpdateStandaloneLastSeenTx(ctx, tx, item.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := e.Repo.UpdateStandaloneLocationTx(ctx, tx, item.ID, in.LocationType, in.LocationName, now); err != nil {
		return domain.StandaloneItem{}, err
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "dropoff_standalone",
		EntityKind:   domain.EntityStandaloneItem,
		EntityID:     item.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		Notes:        in.Notes,
		DeviceMeta:   in.DeviceMeta,
	}); err != nil {
		return domain.StandaloneItem{}, err
	}

	out, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), item.ID)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	return out, tx.Commit()
}

type StandaloneCheckInput struct {
	ItemID  int64
	ActorID string
	GPS     GPS
	QtyUsed *int

	UserPriorityNumeric *int
	UserPriorityPartial *bool

	LocationType *string
	LocationName *string
}

// StandaloneInventoryCheck decrements the on-hand count, flags the item
// needs_restock, and escalates priority through the same non-downgrade merge
// trays use.
func (e *Engine) StandaloneInventoryCheck(ctx context.Context, in StandaloneCheckInput) (domain.StandaloneItem, error) {
	if err := in.GPS.validate(); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return domain.StandaloneItem{}, err
	}
	if in.UserPriorityNumeric != nil && (*in.UserPriorityNumeric < 1 || *in.UserPriorityNumeric > 3) {
		return domain.StandaloneItem{}, fmt.Errorf("invalid priority %d", *in.UserPriorityNumeric)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	item, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), in.ItemID)
	if err != nil {
		return domain.StandaloneItem{}, fmt.Errorf("standalone item %d: %w", in.ItemID, err)
	}

	qtyUsed := 0
	if in.QtyUsed != nil && *in.QtyUsed > 0 {
		qtyUsed = *in.QtyUsed
		current := 0
		if item.QtyOnHand != nil {
			current = *item.QtyOnHand
		}
		next := current - qtyUsed
		if next < 0 {
			next = 0
		}
		if err := e.Repo.UpdateStandaloneQtyTx(ctx, tx, item.ID, next); err != nil {
			return domain.StandaloneItem{}, err
		}
	}

	incomingPartial := false
	if in.UserPriorityPartial != nil {
		incomingPartial = *in.UserPriorityPartial
	}
	numeric, partial := priority.MergeNonDowngrade(item.PriorityNumeric, item.PriorityPartial, in.UserPriorityNumeric, incomingPartial)

	status := domain.StatusNeedsRestock
	color := priority.Color(numeric, partial, status == domain.StatusReady)
	if err := e.Repo.UpdateStandaloneStateTx(ctx, tx, item.ID, status, numeric, partial, color); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := e.Repo.UpdateStandaloneLastSeenTx(ctx, tx, item.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return domain.StandaloneItem{}, err
	}
	if in.LocationType != nil {
		if err := e.Repo.UpdateStandaloneLocationTx(ctx, tx, item.ID, in.LocationType, in.LocationName, now); err != nil {
			return domain.StandaloneItem{}, err
		}
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "inventory_check_standalone",
		EntityKind:   domain.EntityStandaloneItem,
		EntityID:     item.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		Payload:      events.EventPayload{"standalone_item_id": item.ID, "qty_used": qtyUsed},
	}); err != nil {
		return domain.StandaloneItem{}, err
	}

	out, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), item.ID)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	return out, tx.Commit()
}

type StandaloneRestockFullInput struct {
	ItemID       int64
	ActorID      string
	GPS          GPS
	LocationType *string
	LocationName *string
	DeviceMeta   *string
	Notes        *string
}

// StandaloneRestockFull is the hard reset for a standalone item.
func (e *Engine) StandaloneRestockFull(ctx context.Context, in StandaloneRestockFullInput) (domain.StandaloneItem, error) {
	if err := in.GPS.validate(); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return domain.StandaloneItem{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	item, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), in.ItemID)
	if err != nil {
		return domain.StandaloneItem{}, fmt.Errorf("standalone item %d: %w", in.ItemID, err)
	}

	if err := e.Repo.ResetStandaloneQtyToExpectedTx(ctx, tx, item.ID); err != nil {
		return domain.StandaloneItem{}, err
	}
	color := priority.Color(nil, false, true)
	if err := e.Repo.UpdateStandaloneStateTx(ctx, tx, item.ID, domain.StatusReady, nil, false, color); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := e.Repo.UpdateStandaloneLastSeenTx(ctx, tx, item.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return domain.StandaloneItem{}, err
	}
	if in.LocationType != nil {
		if err := e.Repo.UpdateStandaloneLocationTx(ctx, tx, item.ID, in.LocationType, in.LocationName, now); err != nil {
			return domain.StandaloneItem{}, err
		}
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "restock_full_standalone",
		EntityKind:   domain.EntityStandaloneItem,
		EntityID:     item.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		Notes:        in.Notes,
		DeviceMeta:   in.DeviceMeta,
	}); err != nil {
		return domain.StandaloneItem{}, err
	}

	out, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), item.ID)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	return out, tx.Commit()
}

type StandaloneRestockPartialInput struct {
	ItemID       int64
	ActorID      string
	GPS          GPS
	QtyRestocked *int
	NewPriority  NewPriority
	LocationType *string
	LocationName *string
	DeviceMeta   *string
	Notes        *string
}

// StandaloneRestockPartial tops up the on-hand count capped at expected. The
// item returns to ready once on-hand reaches expected; otherwise it stays
// needs_restock with the caller-assigned priority.
func (e *Engine) StandaloneRestockPartial(ctx context.Context, in StandaloneRestockPartialInput) (domain.StandaloneItem, error) {
	if err := in.GPS.validate(); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := validateLocationType(in.LocationType); err != nil {
		return domain.StandaloneItem{}, err
	}
	newNumeric, newPartial, err := in.NewPriority.parse()
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	item, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), in.ItemID)
	if err != nil {
		return domain.StandaloneItem{}, fmt.Errorf("standalone item %d: %w", in.ItemID, err)
	}

	onHand := 0
	if item.QtyOnHand != nil {
		onHand = *item.QtyOnHand
	}
	qtyRestocked := 0
	if in.QtyRestocked != nil && *in.QtyRestocked > 0 {
		qtyRestocked = *in.QtyRestocked
		onHand += qtyRestocked
		if item.QtyExpected != nil && onHand > *item.QtyExpected {
			onHand = *item.QtyExpected
		}
		if err := e.Repo.UpdateStandaloneQtyTx(ctx, tx, item.ID, onHand); err != nil {
			return domain.StandaloneItem{}, err
		}
	}

	status := domain.StatusNeedsRestock
	numeric, partial := newNumeric, newPartial
	if item.QtyExpected != nil && onHand >= *item.QtyExpected {
		status = domain.StatusReady
		numeric, partial = nil, false
	}
	color := priority.Color(numeric, partial, status == domain.StatusReady)
	if err := e.Repo.UpdateStandaloneStateTx(ctx, tx, item.ID, status, numeric, partial, color); err != nil {
		return domain.StandaloneItem{}, err
	}
	if err := e.Repo.UpdateStandaloneLastSeenTx(ctx, tx, item.ID, in.GPS.Lat, in.GPS.Lng, now); err != nil {
		return domain.StandaloneItem{}, err
	}
	if in.LocationType != nil {
		if err := e.Repo.UpdateStandaloneLocationTx(ctx, tx, item.ID, in.LocationType, in.LocationName, now); err != nil {
			return domain.StandaloneItem{}, err
		}
	}

	if _, err := e.Events.Append(ctx, tx, events.Record{
		Type:         "restock_partial_standalone",
		EntityKind:   domain.EntityStandaloneItem,
		EntityID:     item.ID,
		ActorID:      in.ActorID,
		GPSLat:       &in.GPS.Lat,
		GPSLng:       &in.GPS.Lng,
		LocationType: in.LocationType,
		Notes:        in.Notes,
		DeviceMeta:   in.DeviceMeta,
		Payload:      events.EventPayload{"standalone_item_id": item.ID, "qty_restocked": qtyRestocked},
	}); err != nil {
		return domain.StandaloneItem{}, err
	}

	out, err := e.Repo.GetStandaloneItemTx(ctx, tx, e.tenantID(), item.ID)
	if err != nil {
		return domain.StandaloneItem{}, err
	}
	return out, tx.Commit()
}

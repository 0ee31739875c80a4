package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Record carries the per-event context recorded alongside the payload.
type Record struct {
	Type         string
	EntityKind   string
	EntityID     int64
	ActorID      string
	GPSLat       *float64
	GPSLng       *float64
	LocationType *string
	CaseID       *string
	Notes        *string
	DeviceMeta   *string
	Payload      EventPayload
}

// Append inserts one immutable audit row inside the caller's transaction
// and returns its id.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, rec Record) (int64, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if rec.Payload == nil {
		rec.Payload = EventPayload{}
	}
	data, err := json.Marshal(rec.Payload)
	if err != nil {
		return 0, fmt.Errorf("marshal event payload: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,gps_lat,gps_lng,location_type,case_id,notes,device_meta,payload_json) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts, rec.Type, rec.EntityKind, rec.EntityID, rec.ActorID,
		rec.GPSLat, rec.GPSLng, rec.LocationType, rec.CaseID, rec.Notes, rec.DeviceMeta, string(data))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

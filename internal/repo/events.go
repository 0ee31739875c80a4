package repo

import (
	"context"
	"database/sql"
	"strings"

	"trayline/internal/domain"
)

type EventFilters struct {
	Type       string
	EntityKind string
	EntityID   int64
	Since      string
	Limit      int
}

func (r Repo) ListEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != 0 {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Since != "" {
		clauses = append(clauses, "ts>=?")
		args = append(args, f.Since)
	}
	query := `SELECT id,ts,type,entity_kind,entity_id,actor_id,gps_lat,gps_lng,location_type,case_id,notes,device_meta,payload_json FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func scanEvent(rows rowScanner) (domain.Event, error) {
	var (
		e                                         domain.Event
		lat, lng                                  sql.NullFloat64
		locType, caseID, notes, deviceMeta, payld sql.NullString
	)
	err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID,
		&lat, &lng, &locType, &caseID, &notes, &deviceMeta, &payld)
	if err != nil {
		return e, err
	}
	e.GPSLat = floatPtr(lat)
	e.GPSLng = floatPtr(lng)
	e.LocationType = strPtr(locType)
	e.CaseID = strPtr(caseID)
	e.Notes = strPtr(notes)
	e.DeviceMeta = strPtr(deviceMeta)
	if payld.Valid {
		e.Payload = payld.String
	}
	return e, nil
}

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"trayline/internal/domain"
	"trayline/internal/engine"
	"trayline/internal/repo"
)

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "item-utilization",
		Method:      http.MethodGet,
		Path:        "/metrics/item-utilization",
		Summary:     "Per-item usage derived from inventory-check history",
	}, func(ctx context.Context, input *struct {
		Days int `query:"days" minimum:"0" maximum:"3650" required:"false"`
	}) (*struct {
		Body []engine.ItemMetric `json:"body"`
	}, error) {
		metrics, err := e.ItemUtilization(ctx, input.Days)
		if err != nil {
			return nil, handleError(err)
		}
		if metrics == nil {
			metrics = []engine.ItemMetric{}
		}
		return &struct {
			Body []engine.ItemMetric `json:"body"`
		}{Body: metrics}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit event log, newest first",
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type" required:"false"`
		EntityKind string `query:"entity_kind" enum:"tray,standalone_item" required:"false"`
		EntityID   int64  `query:"entity_id" required:"false"`
		Since      string `query:"since" format:"date-time" required:"false"`
		Limit      int    `query:"limit" minimum:"1" maximum:"1000" required:"false"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		events, err := e.Repo.ListEvents(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Since:      input.Since,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if events == nil {
			events = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: events}, nil
	})
}

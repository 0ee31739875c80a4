package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"trayline/internal/domain"
	"trayline/internal/engine"
	"trayline/internal/repo"
)

func registerStandalone(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-standalone-item",
		Method:        http.MethodPost,
		Path:          "/standalone-items",
		Summary:       "Create standalone item",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateStandaloneItemRequest `json:"body"`
	}) (*struct {
		Body domain.StandaloneItem `json:"body"`
	}, error) {
		item, err := e.CreateStandaloneItem(ctx, engine.CreateStandaloneItemInput{
			Name:        input.Body.Name,
			ItemType:    input.Body.ItemType,
			SKU:         input.Body.SKU,
			QtyExpected: input.Body.QtyExpected,
			QtyOnHand:   input.Body.QtyOnHand,
			IsCritical:  input.Body.IsCritical,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StandaloneItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-standalone-items",
		Method:      http.MethodGet,
		Path:        "/standalone-items",
		Summary:     "List standalone items",
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status" enum:"ready,in_location,needs_restock" required:"false"`
		ItemType string `query:"item_type" required:"false"`
		Limit    int    `query:"limit" minimum:"1" maximum:"1000" required:"false"`
		Offset   int    `query:"offset" minimum:"0" required:"false"`
	}) (*struct {
		Body []domain.StandaloneItem `json:"body"`
	}, error) {
		items, err := e.Repo.ListStandaloneItems(ctx, repo.StandaloneFilters{
			TenantID: e.Config.Tenant.ID,
			Status:   input.Status,
			ItemType: input.ItemType,
			Limit:    input.Limit,
			Offset:   input.Offset,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.StandaloneItem{}
		}
		return &struct {
			Body []domain.StandaloneItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-standalone-item",
		Method:      http.MethodGet,
		Path:        "/standalone-items/{item_id}",
		Summary:     "Get standalone item",
	}, func(ctx context.Context, input *struct {
		ItemID int64 `path:"item_id"`
	}) (*struct {
		Body domain.StandaloneItem `json:"body"`
	}, error) {
		item, err := e.Repo.GetStandaloneItem(ctx, e.Config.Tenant.ID, input.ItemID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StandaloneItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-standalone-item",
		Method:      http.MethodPatch,
		Path:        "/standalone-items/{item_id}",
		Summary:     "Update standalone item",
	}, func(ctx context.Context, input *struct {
		ItemID int64                       `path:"item_id"`
		Body   UpdateStandaloneItemRequest `json:"body"`
	}) (*struct {
		Body domain.StandaloneItem `json:"body"`
	}, error) {
		item, err := e.Repo.UpdateStandaloneItem(ctx, e.Config.Tenant.ID, input.ItemID, repo.StandaloneUpdate{
			Name:        input.Body.Name,
			ItemType:    input.Body.ItemType,
			SKU:         input.Body.SKU,
			QtyExpected: input.Body.QtyExpected,
			QtyOnHand:   input.Body.QtyOnHand,
			IsCritical:  input.Body.IsCritical,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StandaloneItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "standalone-dropoff",
		Method:      http.MethodPost,
		Path:        "/standalone-items/{item_id}/dropoff",
		Summary:     "Record a standalone item drop-off",
	}, func(ctx context.Context, input *struct {
		ItemID int64                    `path:"item_id"`
		Body   StandaloneDropoffRequest `json:"body"`
	}) (*struct {
		Body domain.StandaloneItem `json:"body"`
	}, error) {
		item, err := e.StandaloneDropOff(ctx, engine.StandaloneDropOffInput{
			ItemID:       input.ItemID,
			ActorID:      input.Body.UserID,
			GPS:          input.Body.GPS.toEngine(),
			LocationType: input.Body.LocationType,
			LocationName: input.Body.LocationName,
			Notes:        input.Body.Notes,
			DeviceMeta:   input.Body.DeviceMeta,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StandaloneItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "standalone-inventory-check",
		Method:      http.MethodPost,
		Path:        "/standalone-items/{item_id}/inventory-check",
		Summary:     "Record standalone item usage",
	}, func(ctx context.Context, input *struct {
		ItemID int64                  `path:"item_id"`
		Body   StandaloneCheckRequest `json:"body"`
	}) (*struct {
		Body domain.StandaloneItem `json:"body"`
	}, error) {
		item, err := e.StandaloneInventoryCheck(ctx, engine.StandaloneCheckInput{
			ItemID:              input.ItemID,
			ActorID:             input.Body.UserID,
			GPS:                 input.Body.GPS.toEngine(),
			QtyUsed:             input.Body.QtyUsed,
			UserPriorityNumeric: input.Body.UserPriorityNumeric,
			UserPriorityPartial: input.Body.UserPriorityPartial,
			LocationType:        input.Body.LocationType,
			LocationName:        input.Body.LocationName,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StandaloneItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "standalone-restock-full",
		Method:      http.MethodPost,
		Path:        "/standalone-items/{item_id}/restock-full",
		Summary:     "Fully restock a standalone item",
	}, func(ctx context.Context, input *struct {
		ItemID int64                        `path:"item_id"`
		Body   StandaloneRestockFullRequest `json:"body"`
	}) (*struct {
		Body domain.StandaloneItem `json:"body"`
	}, error) {
		item, err := e.StandaloneRestockFull(ctx, engine.StandaloneRestockFullInput{
			ItemID:       input.ItemID,
			ActorID:      input.Body.UserID,
			GPS:          input.Body.GPS.toEngine(),
			LocationType: input.Body.LocationType,
			LocationName: input.Body.LocationName,
			DeviceMeta:   input.Body.DeviceMeta,
			Notes:        input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StandaloneItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "standalone-restock-partial",
		Method:      http.MethodPost,
		Path:        "/standalone-items/{item_id}/restock-partial",
		Summary:     "Partially restock a standalone item",
	}, func(ctx context.Context, input *struct {
		ItemID int64                           `path:"item_id"`
		Body   StandaloneRestockPartialRequest `json:"body"`
	}) (*struct {
		Body domain.StandaloneItem `json:"body"`
	}, error) {
		item, err := e.StandaloneRestockPartial(ctx, engine.StandaloneRestockPartialInput{
			ItemID:       input.ItemID,
			ActorID:      input.Body.UserID,
			GPS:          input.Body.GPS.toEngine(),
			QtyRestocked: input.Body.QtyRestocked,
			NewPriority:  engine.NewPriority(input.Body.NewPriority),
			LocationType: input.Body.LocationType,
			LocationName: input.Body.LocationName,
			DeviceMeta:   input.Body.DeviceMeta,
			Notes:        input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StandaloneItem `json:"body"`
		}{Body: item}, nil
	})
}

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"trayline/internal/domain"
	"trayline/internal/engine"
	"trayline/internal/repo"
)

func registerTrays(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-tray",
		Method:        http.MethodPost,
		Path:          "/trays",
		Summary:       "Create tray",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateTrayRequest `json:"body"`
	}) (*struct {
		Body engine.TrayView `json:"body"`
	}, error) {
		view, err := e.CreateTray(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.TrayView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-tray-item",
		Method:        http.MethodPost,
		Path:          "/trays/{tray_id}/items",
		Summary:       "Add an item to a tray",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		TrayID int64              `path:"tray_id"`
		Body   AddTrayItemRequest `json:"body"`
	}) (*struct {
		Body domain.TrayItem `json:"body"`
	}, error) {
		item, err := e.AddTrayItem(ctx, engine.AddTrayItemInput{
			TrayID:      input.TrayID,
			SKU:         input.Body.SKU,
			Name:        input.Body.Name,
			IsCritical:  input.Body.IsCritical,
			QtyExpected: input.Body.QtyExpected,
			QtyOnHand:   input.Body.QtyOnHand,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TrayItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-trays",
		Method:      http.MethodGet,
		Path:        "/trays",
		Summary:     "List trays",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"ready,in_location,needs_restock" required:"false"`
		Color  string `query:"color" enum:"green,blue,yellow,orange,red" required:"false"`
		Limit  int    `query:"limit" minimum:"1" maximum:"1000" required:"false"`
		Offset int    `query:"offset" minimum:"0" required:"false"`
	}) (*struct {
		Body []domain.Tray `json:"body"`
	}, error) {
		trays, err := e.Repo.ListTrays(ctx, repo.TrayFilters{
			Status: input.Status,
			Color:  input.Color,
			Limit:  input.Limit,
			Offset: input.Offset,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if trays == nil {
			trays = []domain.Tray{}
		}
		return &struct {
			Body []domain.Tray `json:"body"`
		}{Body: trays}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tray",
		Method:      http.MethodGet,
		Path:        "/trays/{tray_id}",
		Summary:     "Get tray with items and open task",
	}, func(ctx context.Context, input *struct {
		TrayID int64 `path:"tray_id"`
	}) (*struct {
		Body engine.TrayView `json:"body"`
	}, error) {
		view, err := e.GetTrayView(ctx, input.TrayID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.TrayView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tray-restock-tasks",
		Method:      http.MethodGet,
		Path:        "/trays/{tray_id}/restock-tasks",
		Summary:     "Restock-task history for a tray",
	}, func(ctx context.Context, input *struct {
		TrayID int64 `path:"tray_id"`
	}) (*struct {
		Body []domain.RestockTask `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTray(ctx, input.TrayID); err != nil {
			return nil, handleError(err)
		}
		tasks, err := e.Repo.ListTasks(ctx, input.TrayID)
		if err != nil {
			return nil, handleError(err)
		}
		if tasks == nil {
			tasks = []domain.RestockTask{}
		}
		return &struct {
			Body []domain.RestockTask `json:"body"`
		}{Body: tasks}, nil
	})
}

func registerLifecycle(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dropoff",
		Method:      http.MethodPost,
		Path:        "/scan-events/dropoff",
		Summary:     "Record a tray drop-off",
	}, func(ctx context.Context, input *struct {
		Body DropoffRequest `json:"body"`
	}) (*struct {
		Body engine.TrayView `json:"body"`
	}, error) {
		view, err := e.DropOff(ctx, engine.DropOffInput{
			TrayID:       input.Body.TrayID,
			ActorID:      input.Body.UserID,
			GPS:          input.Body.GPS.toEngine(),
			LocationType: input.Body.LocationType,
			LocationName: input.Body.LocationName,
			CaseID:       input.Body.CaseID,
			Notes:        input.Body.Notes,
			DeviceMeta:   input.Body.DeviceMeta,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.TrayView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "inventory-check",
		Method:      http.MethodPost,
		Path:        "/inventory-checks",
		Summary:     "Flag shortages after an inventory check",
	}, func(ctx context.Context, input *struct {
		Body InventoryCheckRequest `json:"body"`
	}) (*struct {
		Body engine.TrayView `json:"body"`
	}, error) {
		view, err := e.InventoryCheck(ctx, engine.InventoryCheckInput{
			TrayID:              input.Body.TrayID,
			ActorID:             input.Body.UserID,
			GPS:                 input.Body.GPS.toEngine(),
			Items:               checkItemsToEngine(input.Body.Items),
			CaseWithin72h:       input.Body.HasAssignedCaseWithin72h,
			CaseCountPerWeek:    input.Body.CaseCountPerWeek,
			TrayAvgWeekly:       input.Body.TrayAvgWeekly,
			AnyCriticalMissing:  input.Body.AnyCriticalMissing,
			UserPriorityNumeric: input.Body.UserPriorityNumeric,
			UserPriorityPartial: input.Body.UserPriorityPartial,
			LocationType:        input.Body.LocationType,
			LocationName:        input.Body.LocationName,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.TrayView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restock-full",
		Method:      http.MethodPost,
		Path:        "/restocks/full",
		Summary:     "Fully restock a tray",
	}, func(ctx context.Context, input *struct {
		Body RestockFullRequest `json:"body"`
	}) (*struct {
		Body engine.TrayView `json:"body"`
	}, error) {
		view, err := e.RestockFull(ctx, engine.RestockFullInput{
			TrayID:       input.Body.TrayID,
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
			Body engine.TrayView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restock-partial",
		Method:      http.MethodPost,
		Path:        "/restocks/partial",
		Summary:     "Partially restock a tray",
	}, func(ctx context.Context, input *struct {
		Body RestockPartialRequest `json:"body"`
	}) (*struct {
		Body engine.TrayView `json:"body"`
	}, error) {
		view, err := e.RestockPartial(ctx, engine.RestockPartialInput{
			TrayID:       input.Body.TrayID,
			ActorID:      input.Body.UserID,
			GPS:          input.Body.GPS.toEngine(),
			Items:        restockItemsToEngine(input.Body.Items),
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
			Body engine.TrayView `json:"body"`
		}{Body: view}, nil
	})
}

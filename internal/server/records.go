package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"trayline/internal/domain"
	"trayline/internal/engine"
	"trayline/internal/repo"
)

func registerCases(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-case",
		Method:        http.MethodPost,
		Path:          "/cases",
		Summary:       "Create case",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateCaseRequest `json:"body"`
	}) (*struct {
		Body domain.Case `json:"body"`
	}, error) {
		c, err := e.CreateCase(ctx, engine.CreateCaseInput{
			Procedure: input.Body.Procedure,
			CaseDate:  input.Body.CaseDate,
			Location:  input.Body.Location,
			Doctor:    input.Body.Doctor,
			TrayID:    input.Body.TrayID,
			TrayOther: input.Body.TrayOther,
			Notes:     input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Case `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cases",
		Method:      http.MethodGet,
		Path:        "/cases",
		Summary:     "List cases, optionally in a date range",
	}, func(ctx context.Context, input *struct {
		StartDate string `query:"start_date" format:"date-time" required:"false"`
		EndDate   string `query:"end_date" format:"date-time" required:"false"`
		Limit     int    `query:"limit" minimum:"1" maximum:"1000" required:"false"`
		Offset    int    `query:"offset" minimum:"0" required:"false"`
	}) (*struct {
		Body []domain.Case `json:"body"`
	}, error) {
		cases, err := e.Repo.ListCases(ctx, repo.CaseFilters{
			TenantID:  e.Config.Tenant.ID,
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			Limit:     input.Limit,
			Offset:    input.Offset,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if cases == nil {
			cases = []domain.Case{}
		}
		return &struct {
			Body []domain.Case `json:"body"`
		}{Body: cases}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-case",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}",
		Summary:     "Get case",
	}, func(ctx context.Context, input *struct {
		CaseID int64 `path:"case_id"`
	}) (*struct {
		Body domain.Case `json:"body"`
	}, error) {
		c, err := e.Repo.GetCase(ctx, e.Config.Tenant.ID, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Case `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-case",
		Method:      http.MethodPatch,
		Path:        "/cases/{case_id}",
		Summary:     "Update case",
	}, func(ctx context.Context, input *struct {
		CaseID int64             `path:"case_id"`
		Body   UpdateCaseRequest `json:"body"`
	}) (*struct {
		Body domain.Case `json:"body"`
	}, error) {
		c, err := e.Repo.UpdateCase(ctx, e.Config.Tenant.ID, input.CaseID, repo.CaseUpdate{
			Procedure: input.Body.Procedure,
			CaseDate:  input.Body.CaseDate,
			Location:  input.Body.Location,
			Doctor:    input.Body.Doctor,
			TrayID:    input.Body.TrayID,
			TrayOther: input.Body.TrayOther,
			Notes:     input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Case `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-case",
		Method:        http.MethodDelete,
		Path:          "/cases/{case_id}",
		Summary:       "Delete case",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		CaseID int64 `path:"case_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteCase(ctx, e.Config.Tenant.ID, input.CaseID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDoctors(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-doctor",
		Method:        http.MethodPost,
		Path:          "/doctors",
		Summary:       "Create doctor",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateDoctorRequest `json:"body"`
	}) (*struct {
		Body domain.Doctor `json:"body"`
	}, error) {
		d, err := e.CreateDoctor(ctx, engine.CreateDoctorInput{
			Name:      input.Body.Name,
			Specialty: input.Body.Specialty,
			Phone:     input.Body.Phone,
			Email:     input.Body.Email,
			Hospital:  input.Body.Hospital,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Doctor `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-doctors",
		Method:      http.MethodGet,
		Path:        "/doctors",
		Summary:     "List doctors",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Doctor `json:"body"`
	}, error) {
		doctors, err := e.Repo.ListDoctors(ctx, e.Config.Tenant.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if doctors == nil {
			doctors = []domain.Doctor{}
		}
		return &struct {
			Body []domain.Doctor `json:"body"`
		}{Body: doctors}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-doctor",
		Method:      http.MethodGet,
		Path:        "/doctors/{doctor_id}",
		Summary:     "Get doctor",
	}, func(ctx context.Context, input *struct {
		DoctorID int64 `path:"doctor_id"`
	}) (*struct {
		Body domain.Doctor `json:"body"`
	}, error) {
		d, err := e.Repo.GetDoctor(ctx, e.Config.Tenant.ID, input.DoctorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Doctor `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-doctor",
		Method:      http.MethodPatch,
		Path:        "/doctors/{doctor_id}",
		Summary:     "Update doctor",
	}, func(ctx context.Context, input *struct {
		DoctorID int64               `path:"doctor_id"`
		Body     UpdateDoctorRequest `json:"body"`
	}) (*struct {
		Body domain.Doctor `json:"body"`
	}, error) {
		d, err := e.UpdateDoctor(ctx, input.DoctorID, repo.DoctorUpdate{
			Name:      input.Body.Name,
			Specialty: input.Body.Specialty,
			Phone:     input.Body.Phone,
			Email:     input.Body.Email,
			Hospital:  input.Body.Hospital,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Doctor `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-doctor",
		Method:        http.MethodDelete,
		Path:          "/doctors/{doctor_id}",
		Summary:       "Delete doctor",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		DoctorID int64 `path:"doctor_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteDoctor(ctx, e.Config.Tenant.ID, input.DoctorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerNotes(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-note",
		Method:        http.MethodPost,
		Path:          "/notes",
		Summary:       "Create note",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateNoteRequest `json:"body"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		n, err := e.CreateNote(ctx, input.Body.Title, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-notes",
		Method:      http.MethodGet,
		Path:        "/notes",
		Summary:     "List notes",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Note `json:"body"`
	}, error) {
		notes, err := e.Repo.ListNotes(ctx, e.Config.Tenant.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if notes == nil {
			notes = []domain.Note{}
		}
		return &struct {
			Body []domain.Note `json:"body"`
		}{Body: notes}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-note",
		Method:      http.MethodGet,
		Path:        "/notes/{note_id}",
		Summary:     "Get note",
	}, func(ctx context.Context, input *struct {
		NoteID int64 `path:"note_id"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		n, err := e.Repo.GetNote(ctx, e.Config.Tenant.ID, input.NoteID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-note",
		Method:      http.MethodPatch,
		Path:        "/notes/{note_id}",
		Summary:     "Update note",
	}, func(ctx context.Context, input *struct {
		NoteID int64             `path:"note_id"`
		Body   UpdateNoteRequest `json:"body"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		n, err := e.UpdateNote(ctx, input.NoteID, input.Body.Title, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-note",
		Method:        http.MethodDelete,
		Path:          "/notes/{note_id}",
		Summary:       "Delete note and its pins",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		NoteID int64 `path:"note_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteNote(ctx, e.Config.Tenant.ID, input.NoteID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "pin-note",
		Method:        http.MethodPost,
		Path:          "/notes/{note_id}/pins",
		Summary:       "Pin a note to an entity",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		NoteID int64          `path:"note_id"`
		Body   PinNoteRequest `json:"body"`
	}) (*struct {
		Body domain.NotePin `json:"body"`
	}, error) {
		pin, err := e.PinNote(ctx, input.NoteID, input.Body.EntityType, input.Body.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.NotePin `json:"body"`
		}{Body: pin}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "unpin-note",
		Method:        http.MethodDelete,
		Path:          "/notes/{note_id}/pins/{entity_type}/{entity_id}",
		Summary:       "Unpin a note from an entity",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		NoteID     int64  `path:"note_id"`
		EntityType string `path:"entity_type"`
		EntityID   int64  `path:"entity_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteNotePin(ctx, input.NoteID, input.EntityType, input.EntityID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "entity-notes",
		Method:      http.MethodGet,
		Path:        "/entities/{entity_type}/{entity_id}/notes",
		Summary:     "Notes pinned to an entity",
	}, func(ctx context.Context, input *struct {
		EntityType string `path:"entity_type" enum:"tray,standalone_item,case,doctor"`
		EntityID   int64  `path:"entity_id"`
	}) (*struct {
		Body []domain.Note `json:"body"`
	}, error) {
		notes, err := e.Repo.ListNotesForEntity(ctx, e.Config.Tenant.ID, input.EntityType, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		if notes == nil {
			notes = []domain.Note{}
		}
		return &struct {
			Body []domain.Note `json:"body"`
		}{Body: notes}, nil
	})
}

func registerPhotos(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "upload-photo",
		Method:        http.MethodPost,
		Path:          "/photos",
		Summary:       "Attach a base64 photo to an entity",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body UploadPhotoRequest `json:"body"`
	}) (*struct {
		Body domain.Photo `json:"body"`
	}, error) {
		p, err := e.UploadPhoto(ctx, engine.UploadPhotoInput{
			EntityType: input.Body.EntityType,
			EntityID:   input.Body.EntityID,
			ImageData:  input.Body.ImageData,
			Caption:    input.Body.Caption,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Photo `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "entity-photos",
		Method:      http.MethodGet,
		Path:        "/entities/{entity_type}/{entity_id}/photos",
		Summary:     "Photos attached to an entity",
	}, func(ctx context.Context, input *struct {
		EntityType string `path:"entity_type" enum:"tray,standalone_item,case,doctor"`
		EntityID   int64  `path:"entity_id"`
	}) (*struct {
		Body []domain.Photo `json:"body"`
	}, error) {
		photos, err := e.Repo.ListPhotos(ctx, e.Config.Tenant.ID, input.EntityType, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		if photos == nil {
			photos = []domain.Photo{}
		}
		return &struct {
			Body []domain.Photo `json:"body"`
		}{Body: photos}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-photo",
		Method:      http.MethodGet,
		Path:        "/photos/{photo_id}",
		Summary:     "Get photo",
	}, func(ctx context.Context, input *struct {
		PhotoID int64 `path:"photo_id"`
	}) (*struct {
		Body domain.Photo `json:"body"`
	}, error) {
		p, err := e.Repo.GetPhoto(ctx, e.Config.Tenant.ID, input.PhotoID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Photo `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-photo",
		Method:        http.MethodDelete,
		Path:          "/photos/{photo_id}",
		Summary:       "Delete photo",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		PhotoID int64 `path:"photo_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeletePhoto(ctx, e.Config.Tenant.ID, input.PhotoID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

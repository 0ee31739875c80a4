package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trayline/internal/domain"
	"trayline/internal/repo"
)

type CreateCaseInput struct {
	Procedure string
	CaseDate  string
	Location  string
	Doctor    *string
	TrayID    *int64
	TrayOther *string
	Notes     *string
}

func (e *Engine) CreateCase(ctx context.Context, in CreateCaseInput) (domain.Case, error) {
	if in.Procedure == "" || in.CaseDate == "" || in.Location == "" {
		return domain.Case{}, fmt.Errorf("procedure, case_date and location are required")
	}
	if _, err := time.Parse(time.RFC3339, in.CaseDate); err != nil {
		return domain.Case{}, fmt.Errorf("invalid case_date %q", in.CaseDate)
	}
	if in.TrayID != nil {
		if _, err := e.Repo.GetTray(ctx, *in.TrayID); err != nil {
			return domain.Case{}, fmt.Errorf("tray %d: %w", *in.TrayID, err)
		}
	}
	return e.Repo.InsertCase(ctx, domain.Case{
		TenantID:  e.tenantID(),
		Procedure: in.Procedure,
		CaseDate:  in.CaseDate,
		Location:  in.Location,
		Doctor:    in.Doctor,
		TrayID:    in.TrayID,
		TrayOther: in.TrayOther,
		Notes:     in.Notes,
		CreatedAt: e.nowRFC3339(),
	})
}

type CreateDoctorInput struct {
	Name      string
	Specialty *string
	Phone     *string
	Email     *string
	Hospital  *string
}

func (e *Engine) CreateDoctor(ctx context.Context, in CreateDoctorInput) (domain.Doctor, error) {
	if in.Name == "" {
		return domain.Doctor{}, fmt.Errorf("name is required")
	}
	now := e.nowRFC3339()
	return e.Repo.InsertDoctor(ctx, domain.Doctor{
		TenantID:  e.tenantID(),
		Name:      in.Name,
		Specialty: in.Specialty,
		Phone:     in.Phone,
		Email:     in.Email,
		Hospital:  in.Hospital,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (e *Engine) UpdateDoctor(ctx context.Context, id int64, u repo.DoctorUpdate) (domain.Doctor, error) {
	return e.Repo.UpdateDoctor(ctx, e.tenantID(), id, u, e.nowRFC3339())
}

func (e *Engine) CreateNote(ctx context.Context, title, content string) (domain.Note, error) {
	if title == "" {
		return domain.Note{}, fmt.Errorf("title is required")
	}
	now := e.nowRFC3339()
	return e.Repo.InsertNote(ctx, domain.Note{
		TenantID:  e.tenantID(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (e *Engine) UpdateNote(ctx context.Context, id int64, title, content *string) (domain.Note, error) {
	return e.Repo.UpdateNote(ctx, e.tenantID(), id, title, content, e.nowRFC3339())
}

// PinNote attaches a note to a tray, standalone item, case, or doctor.
// Pinning is idempotent.
func (e *Engine) PinNote(ctx context.Context, noteID int64, entityType string, entityID int64) (domain.NotePin, error) {
	switch entityType {
	case "tray", "standalone_item", "case", "doctor":
	default:
		return domain.NotePin{}, fmt.Errorf("invalid entity_type %q", entityType)
	}
	if _, err := e.Repo.GetNote(ctx, e.tenantID(), noteID); err != nil {
		return domain.NotePin{}, fmt.Errorf("note %d: %w", noteID, err)
	}
	pin, err := e.Repo.InsertNotePin(ctx, domain.NotePin{
		NoteID:     noteID,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  e.nowRFC3339(),
	})
	if err != nil && repo.IsUniqueViolation(err) {
		pins, lerr := e.Repo.ListNotePins(ctx, noteID)
		if lerr != nil {
			return domain.NotePin{}, lerr
		}
		for _, p := range pins {
			if p.EntityType == entityType && p.EntityID == entityID {
				return p, nil
			}
		}
	}
	return pin, err
}

type UploadPhotoInput struct {
	EntityType string
	EntityID   int64
	ImageData  string
	Caption    *string
}

// UploadPhoto stores a base64 image against an entity. The stored filename
// is generated server-side.
func (e *Engine) UploadPhoto(ctx context.Context, in UploadPhotoInput) (domain.Photo, error) {
	switch in.EntityType {
	case "tray", "standalone_item", "case", "doctor":
	default:
		return domain.Photo{}, fmt.Errorf("invalid entity_type %q", in.EntityType)
	}
	if in.ImageData == "" {
		return domain.Photo{}, fmt.Errorf("image_data is required")
	}
	if _, err := base64.StdEncoding.DecodeString(in.ImageData); err != nil {
		return domain.Photo{}, fmt.Errorf("invalid image_data: not base64")
	}
	return e.Repo.InsertPhoto(ctx, domain.Photo{
		TenantID:   e.tenantID(),
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Filename:   uuid.NewString() + ".jpg",
		ImageData:  in.ImageData,
		Caption:    in.Caption,
		CreatedAt:  e.nowRFC3339(),
	})
}

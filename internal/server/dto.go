package server

import "trayline/internal/engine"

type GPSBody struct {
	Lat float64 `json:"lat" minimum:"-90" maximum:"90"`
	Lng float64 `json:"lng" minimum:"-180" maximum:"180"`
}

func (g GPSBody) toEngine() engine.GPS {
	return engine.GPS{Lat: g.Lat, Lng: g.Lng}
}

type CreateTrayRequest struct {
	Name string `json:"name" minLength:"1"`
}

type AddTrayItemRequest struct {
	SKU         string `json:"sku" minLength:"1"`
	Name        string `json:"name" minLength:"1"`
	IsCritical  bool   `json:"is_critical,omitempty"`
	QtyExpected *int   `json:"qty_expected,omitempty" minimum:"0"`
	QtyOnHand   *int   `json:"qty_on_hand,omitempty" minimum:"0"`
}

type DropoffRequest struct {
	TrayID       int64   `json:"tray_id"`
	UserID       string  `json:"user_id" minLength:"1"`
	GPS          GPSBody `json:"gps"`
	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
	CaseID       *string `json:"case_id,omitempty"`
	Notes        *string `json:"notes,omitempty" maxLength:"500"`
	DeviceMeta   *string `json:"device_meta,omitempty"`
}

type InventoryCheckItemBody struct {
	ItemID     int64   `json:"item_id"`
	Reason     *string `json:"reason,omitempty"`
	QtyMissing *int    `json:"qty_missing,omitempty" minimum:"0"`
	QtyUsed    *int    `json:"qty_used,omitempty" minimum:"0"`
}

type InventoryCheckRequest struct {
	TrayID int64                    `json:"tray_id"`
	UserID string                   `json:"user_id" minLength:"1"`
	GPS    GPSBody                  `json:"gps"`
	Items  []InventoryCheckItemBody `json:"items"`

	HasAssignedCaseWithin72h bool    `json:"has_assigned_case_within_72h,omitempty"`
	CaseCountPerWeek         float64 `json:"case_count_per_week,omitempty" minimum:"0"`
	TrayAvgWeekly            float64 `json:"tray_avg_weekly,omitempty" minimum:"0"`
	AnyCriticalMissing       bool    `json:"any_critical_missing,omitempty"`

	UserPriorityNumeric *int  `json:"user_priority_numeric,omitempty" minimum:"1" maximum:"3"`
	UserPriorityPartial *bool `json:"user_priority_partial,omitempty"`

	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
}

type RestockFullRequest struct {
	TrayID       int64   `json:"tray_id"`
	UserID       string  `json:"user_id" minLength:"1"`
	GPS          GPSBody `json:"gps"`
	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
	DeviceMeta   *string `json:"device_meta,omitempty"`
	Notes        *string `json:"notes,omitempty" maxLength:"500"`
}

type RestockPartialItemBody struct {
	ItemID       int64 `json:"item_id"`
	QtyRestocked *int  `json:"qty_restocked,omitempty" minimum:"0"`
}

type RestockPartialRequest struct {
	TrayID       int64                    `json:"tray_id"`
	UserID       string                   `json:"user_id" minLength:"1"`
	GPS          GPSBody                  `json:"gps"`
	Items        []RestockPartialItemBody `json:"items"`
	NewPriority  string                   `json:"new_priority" enum:"partial,1,2,3"`
	LocationType *string                  `json:"location_type,omitempty"`
	LocationName *string                  `json:"location_name,omitempty"`
	DeviceMeta   *string                  `json:"device_meta,omitempty"`
	Notes        *string                  `json:"notes,omitempty" maxLength:"500"`
}

type CreateStandaloneItemRequest struct {
	Name        string  `json:"name" minLength:"1"`
	ItemType    string  `json:"item_type" minLength:"1"`
	SKU         *string `json:"sku,omitempty"`
	QtyExpected *int    `json:"qty_expected,omitempty" minimum:"0"`
	QtyOnHand   *int    `json:"qty_on_hand,omitempty" minimum:"0"`
	IsCritical  bool    `json:"is_critical,omitempty"`
}

type UpdateStandaloneItemRequest struct {
	Name        *string `json:"name,omitempty"`
	ItemType    *string `json:"item_type,omitempty"`
	SKU         *string `json:"sku,omitempty"`
	QtyExpected *int    `json:"qty_expected,omitempty" minimum:"0"`
	QtyOnHand   *int    `json:"qty_on_hand,omitempty" minimum:"0"`
	IsCritical  *bool   `json:"is_critical,omitempty"`
}

type StandaloneDropoffRequest struct {
	UserID       string  `json:"user_id" minLength:"1"`
	GPS          GPSBody `json:"gps"`
	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
	Notes        *string `json:"notes,omitempty" maxLength:"500"`
	DeviceMeta   *string `json:"device_meta,omitempty"`
}

type StandaloneCheckRequest struct {
	UserID  string  `json:"user_id" minLength:"1"`
	GPS     GPSBody `json:"gps"`
	QtyUsed *int    `json:"qty_used,omitempty" minimum:"0"`

	UserPriorityNumeric *int  `json:"user_priority_numeric,omitempty" minimum:"1" maximum:"3"`
	UserPriorityPartial *bool `json:"user_priority_partial,omitempty"`

	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
}

type StandaloneRestockFullRequest struct {
	UserID       string  `json:"user_id" minLength:"1"`
	GPS          GPSBody `json:"gps"`
	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
	DeviceMeta   *string `json:"device_meta,omitempty"`
	Notes        *string `json:"notes,omitempty" maxLength:"500"`
}

type StandaloneRestockPartialRequest struct {
	UserID       string  `json:"user_id" minLength:"1"`
	GPS          GPSBody `json:"gps"`
	QtyRestocked *int    `json:"qty_restocked,omitempty" minimum:"0"`
	NewPriority  string  `json:"new_priority" enum:"partial,1,2,3"`
	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
	DeviceMeta   *string `json:"device_meta,omitempty"`
	Notes        *string `json:"notes,omitempty" maxLength:"500"`
}

type CreateCaseRequest struct {
	Procedure string  `json:"procedure" minLength:"1"`
	CaseDate  string  `json:"case_date" format:"date-time"`
	Location  string  `json:"location" minLength:"1"`
	Doctor    *string `json:"doctor,omitempty"`
	TrayID    *int64  `json:"tray_id,omitempty"`
	TrayOther *string `json:"tray_other,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type UpdateCaseRequest struct {
	Procedure *string `json:"procedure,omitempty"`
	CaseDate  *string `json:"case_date,omitempty" format:"date-time"`
	Location  *string `json:"location,omitempty"`
	Doctor    *string `json:"doctor,omitempty"`
	TrayID    *int64  `json:"tray_id,omitempty"`
	TrayOther *string `json:"tray_other,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type CreateDoctorRequest struct {
	Name      string  `json:"name" minLength:"1"`
	Specialty *string `json:"specialty,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Hospital  *string `json:"hospital,omitempty"`
}

type UpdateDoctorRequest struct {
	Name      *string `json:"name,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Hospital  *string `json:"hospital,omitempty"`
}

type CreateNoteRequest struct {
	Title   string `json:"title" minLength:"1"`
	Content string `json:"content"`
}

type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type PinNoteRequest struct {
	EntityType string `json:"entity_type" enum:"tray,standalone_item,case,doctor"`
	EntityID   int64  `json:"entity_id"`
}

type UploadPhotoRequest struct {
	EntityType string  `json:"entity_type" enum:"tray,standalone_item,case,doctor"`
	EntityID   int64   `json:"entity_id"`
	ImageData  string  `json:"image_data" minLength:"1"`
	Caption    *string `json:"caption,omitempty"`
}

func checkItemsToEngine(in []InventoryCheckItemBody) []engine.CheckItem {
	out := make([]engine.CheckItem, 0, len(in))
	for _, it := range in {
		out = append(out, engine.CheckItem{
			ItemID:     it.ItemID,
			Reason:     it.Reason,
			QtyMissing: it.QtyMissing,
			QtyUsed:    it.QtyUsed,
		})
	}
	return out
}

func restockItemsToEngine(in []RestockPartialItemBody) []engine.RestockItem {
	out := make([]engine.RestockItem, 0, len(in))
	for _, it := range in {
		out = append(out, engine.RestockItem{ItemID: it.ItemID, QtyRestocked: it.QtyRestocked})
	}
	return out
}

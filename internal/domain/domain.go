package domain

const (
	StatusReady        = "ready"
	StatusInLocation   = "in_location"
	StatusNeedsRestock = "needs_restock"
)

const (
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorYellow = "yellow"
	ColorOrange = "orange"
	ColorRed    = "red"
)

const (
	TaskOpen   = "open"
	TaskClosed = "closed"
)

const (
	EntityTray           = "tray"
	EntityStandaloneItem = "standalone_item"
)

// LocationTypes lists the accepted values for last-seen location metadata.
var LocationTypes = []string{"Hospital", "Warehouse", "Vehicle", "Office", "Home", "Storage", "Other"}

type Tray struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Status           string   `json:"status" enum:"ready,in_location,needs_restock"`
	PriorityNumeric  *int     `json:"priority_numeric,omitempty"`
	PriorityPartial  bool     `json:"priority_partial"`
	Color            string   `json:"color" enum:"green,blue,yellow,orange,red"`
	LastSeenLat      *float64 `json:"last_seen_lat,omitempty"`
	LastSeenLng      *float64 `json:"last_seen_lng,omitempty"`
	LastSeenAt       *string  `json:"last_seen_at,omitempty" format:"date-time"`
	LastLocationType *string  `json:"last_location_type,omitempty"`
	LastLocationName *string  `json:"last_location_name,omitempty"`
	LinkedCaseID     *string  `json:"linked_case_id,omitempty"`
}

type TrayItem struct {
	ID          int64  `json:"id"`
	TrayID      int64  `json:"tray_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	IsCritical  bool   `json:"is_critical"`
	QtyExpected *int   `json:"qty_expected,omitempty"`
	QtyOnHand   *int   `json:"qty_on_hand,omitempty"`
}

type RestockTask struct {
	ID        int64  `json:"id"`
	TrayID    int64  `json:"tray_id"`
	Status    string `json:"status" enum:"open,closed"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type RestockTaskItem struct {
	ID          int64   `json:"id"`
	TaskID      int64   `json:"task_id"`
	ItemID      int64   `json:"item_id"`
	QtyMissing  *int    `json:"qty_missing,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	Restocked   bool    `json:"restocked"`
	RestockedAt *string `json:"restocked_at,omitempty" format:"date-time"`
	RestockedBy *string `json:"restocked_by,omitempty"`
}

type Event struct {
	ID           int64    `json:"id"`
	TS           string   `json:"ts" format:"date-time"`
	Type         string   `json:"type"`
	EntityKind   string   `json:"entity_kind" enum:"tray,standalone_item"`
	EntityID     int64    `json:"entity_id"`
	ActorID      string   `json:"actor_id"`
	GPSLat       *float64 `json:"gps_lat,omitempty"`
	GPSLng       *float64 `json:"gps_lng,omitempty"`
	LocationType *string  `json:"location_type,omitempty"`
	CaseID       *string  `json:"case_id,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	DeviceMeta   *string  `json:"device_meta,omitempty"`
	Payload      string   `json:"payload_json"`
}

type Case struct {
	ID        int64   `json:"id"`
	TenantID  string  `json:"tenant_id"`
	Procedure string  `json:"procedure"`
	CaseDate  string  `json:"case_date" format:"date-time"`
	Location  string  `json:"location"`
	Doctor    *string `json:"doctor,omitempty"`
	TrayID    *int64  `json:"tray_id,omitempty"`
	TrayOther *string `json:"tray_other,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Doctor struct {
	ID        int64   `json:"id"`
	TenantID  string  `json:"tenant_id"`
	Name      string  `json:"name"`
	Specialty *string `json:"specialty,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Hospital  *string `json:"hospital,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Note struct {
	ID        int64  `json:"id"`
	TenantID  string `json:"tenant_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type NotePin struct {
	ID         int64  `json:"id"`
	NoteID     int64  `json:"note_id"`
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Photo struct {
	ID         int64   `json:"id"`
	TenantID   string  `json:"tenant_id"`
	EntityType string  `json:"entity_type"`
	EntityID   int64   `json:"entity_id"`
	Filename   string  `json:"filename"`
	ImageData  string  `json:"image_data"`
	Caption    *string `json:"caption,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
}

type StandaloneItem struct {
	ID               int64    `json:"id"`
	TenantID         string   `json:"tenant_id"`
	Name             string   `json:"name"`
	ItemType         string   `json:"item_type"`
	SKU              *string  `json:"sku,omitempty"`
	Status           string   `json:"status" enum:"ready,in_location,needs_restock"`
	PriorityNumeric  *int     `json:"priority_numeric,omitempty"`
	PriorityPartial  bool     `json:"priority_partial"`
	Color            string   `json:"color" enum:"green,blue,yellow,orange,red"`
	QtyExpected      *int     `json:"qty_expected,omitempty"`
	QtyOnHand        *int     `json:"qty_on_hand,omitempty"`
	IsCritical       bool     `json:"is_critical"`
	LastSeenLat      *float64 `json:"last_seen_lat,omitempty"`
	LastSeenLng      *float64 `json:"last_seen_lng,omitempty"`
	LastSeenAt       *string  `json:"last_seen_at,omitempty" format:"date-time"`
	LastLocationType *string  `json:"last_location_type,omitempty"`
	LastLocationName *string  `json:"last_location_name,omitempty"`
	CreatedAt        string   `json:"created_at" format:"date-time"`
}

// ValidLocationType reports whether t is one of the known location types.
func ValidLocationType(t string) bool {
	for _, lt := range LocationTypes {
		if lt == t {
			return true
		}
	}
	return false
}

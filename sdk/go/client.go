package traylinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Trayline HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "api/v1",
		Timeout:  10 * time.Second,
	}
}

// GPS is a latitude/longitude pair.
type GPS struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Tray represents the API tray model.
type Tray struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Status           string   `json:"status"`
	PriorityNumeric  *int     `json:"priority_numeric,omitempty"`
	PriorityPartial  bool     `json:"priority_partial"`
	Color            string   `json:"color"`
	LastSeenLat      *float64 `json:"last_seen_lat,omitempty"`
	LastSeenLng      *float64 `json:"last_seen_lng,omitempty"`
	LastSeenAt       *string  `json:"last_seen_at,omitempty"`
	LastLocationType *string  `json:"last_location_type,omitempty"`
	LastLocationName *string  `json:"last_location_name,omitempty"`
	LinkedCaseID     *string  `json:"linked_case_id,omitempty"`
}

// TrayItem is one sub-item of a tray.
type TrayItem struct {
	ID          int64  `json:"id"`
	TrayID      int64  `json:"tray_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	IsCritical  bool   `json:"is_critical"`
	QtyExpected *int   `json:"qty_expected,omitempty"`
	QtyOnHand   *int   `json:"qty_on_hand,omitempty"`
}

// RestockTask is an open or closed shortage list for a tray.
type RestockTask struct {
	ID        int64  `json:"id"`
	TrayID    int64  `json:"tray_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RestockTaskItem is one flagged line of a restock task.
type RestockTaskItem struct {
	ID          int64   `json:"id"`
	TaskID      int64   `json:"task_id"`
	ItemID      int64   `json:"item_id"`
	QtyMissing  *int    `json:"qty_missing,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	Restocked   bool    `json:"restocked"`
	RestockedAt *string `json:"restocked_at,omitempty"`
	RestockedBy *string `json:"restocked_by,omitempty"`
}

// TaskView bundles a restock task with its items.
type TaskView struct {
	RestockTask
	Items []RestockTaskItem `json:"items"`
}

// TrayView is the full tray state returned by every lifecycle call.
type TrayView struct {
	Tray
	Items    []TrayItem `json:"items"`
	OpenTask *TaskView  `json:"open_task,omitempty"`
}

// CheckItem is one flagged item of an inventory check.
type CheckItem struct {
	ItemID     int64   `json:"item_id"`
	Reason     *string `json:"reason,omitempty"`
	QtyMissing *int    `json:"qty_missing,omitempty"`
	QtyUsed    *int    `json:"qty_used,omitempty"`
}

// InventoryCheckRequest is the payload for Check.
type InventoryCheckRequest struct {
	TrayID int64       `json:"tray_id"`
	UserID string      `json:"user_id"`
	GPS    GPS         `json:"gps"`
	Items  []CheckItem `json:"items"`

	HasAssignedCaseWithin72h bool    `json:"has_assigned_case_within_72h,omitempty"`
	CaseCountPerWeek         float64 `json:"case_count_per_week,omitempty"`
	TrayAvgWeekly            float64 `json:"tray_avg_weekly,omitempty"`
	AnyCriticalMissing       bool    `json:"any_critical_missing,omitempty"`

	UserPriorityNumeric *int  `json:"user_priority_numeric,omitempty"`
	UserPriorityPartial *bool `json:"user_priority_partial,omitempty"`

	LocationType *string `json:"location_type,omitempty"`
	LocationName *string `json:"location_name,omitempty"`
}

// RestockItem is one line of a partial restock.
type RestockItem struct {
	ItemID       int64 `json:"item_id"`
	QtyRestocked *int  `json:"qty_restocked,omitempty"`
}

// Event is one audit log entry.
type Event struct {
	ID           int64    `json:"id"`
	TS           string   `json:"ts"`
	Type         string   `json:"type"`
	EntityKind   string   `json:"entity_kind"`
	EntityID     int64    `json:"entity_id"`
	ActorID      string   `json:"actor_id"`
	GPSLat       *float64 `json:"gps_lat,omitempty"`
	GPSLng       *float64 `json:"gps_lng,omitempty"`
	LocationType *string  `json:"location_type,omitempty"`
	CaseID       *string  `json:"case_id,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Payload      string   `json:"payload_json"`
}

// ItemMetric is one row of the utilization report.
type ItemMetric struct {
	ItemName     string  `json:"item_name"`
	SKU          string  `json:"sku,omitempty"`
	SourceType   string  `json:"source_type"`
	SourceName   string  `json:"source_name"`
	IsCritical   bool    `json:"is_critical"`
	TimesUsed    int     `json:"times_used"`
	TotalQty     int     `json:"total_qty_used"`
	LastUsed     *string `json:"last_used,omitempty"`
	AvgQtyPerUse float64 `json:"avg_qty_per_use"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTray creates a tray.
func (c *Client) CreateTray(ctx context.Context, name string) (TrayView, error) {
	var resp TrayView
	err := c.do(ctx, http.MethodPost, "trays", map[string]any{"name": name}, &resp)
	return resp, err
}

// AddTrayItem adds a sub-item to a tray.
func (c *Client) AddTrayItem(ctx context.Context, trayID int64, item TrayItem) (TrayItem, error) {
	body := map[string]any{
		"sku":         item.SKU,
		"name":        item.Name,
		"is_critical": item.IsCritical,
	}
	if item.QtyExpected != nil {
		body["qty_expected"] = *item.QtyExpected
	}
	if item.QtyOnHand != nil {
		body["qty_on_hand"] = *item.QtyOnHand
	}
	var resp TrayItem
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("trays/%d/items", trayID), body, &resp)
	return resp, err
}

// GetTray fetches a tray with its items and open restock task.
func (c *Client) GetTray(ctx context.Context, trayID int64) (TrayView, error) {
	var resp TrayView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("trays/%d", trayID), nil, &resp)
	return resp, err
}

// ListTrays returns trays, optionally filtered by status.
func (c *Client) ListTrays(ctx context.Context, status string) ([]Tray, error) {
	endpoint := "trays"
	if status != "" {
		endpoint += "?status=" + status
	}
	var resp []Tray
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// DropOff records a tray drop-off scan.
func (c *Client) DropOff(ctx context.Context, trayID int64, userID string, gps GPS, locationType, locationName *string) (TrayView, error) {
	body := map[string]any{
		"tray_id": trayID,
		"user_id": userID,
		"gps":     gps,
	}
	if locationType != nil {
		body["location_type"] = *locationType
	}
	if locationName != nil {
		body["location_name"] = *locationName
	}
	var resp TrayView
	err := c.do(ctx, http.MethodPost, "scan-events/dropoff", body, &resp)
	return resp, err
}

// Check submits an inventory check.
func (c *Client) Check(ctx context.Context, req InventoryCheckRequest) (TrayView, error) {
	var resp TrayView
	err := c.do(ctx, http.MethodPost, "inventory-checks", req, &resp)
	return resp, err
}

// RestockFull fully restocks a tray.
func (c *Client) RestockFull(ctx context.Context, trayID int64, userID string, gps GPS) (TrayView, error) {
	var resp TrayView
	err := c.do(ctx, http.MethodPost, "restocks/full", map[string]any{
		"tray_id": trayID,
		"user_id": userID,
		"gps":     gps,
	}, &resp)
	return resp, err
}

// RestockPartial partially restocks a tray. newPriority is "partial" or "1".."3".
func (c *Client) RestockPartial(ctx context.Context, trayID int64, userID string, gps GPS, items []RestockItem, newPriority string) (TrayView, error) {
	var resp TrayView
	err := c.do(ctx, http.MethodPost, "restocks/partial", map[string]any{
		"tray_id":      trayID,
		"user_id":      userID,
		"gps":          gps,
		"items":        items,
		"new_priority": newPriority,
	}, &resp)
	return resp, err
}

// Events returns recent audit entries.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("events?limit=%d", limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ItemUtilization returns the usage report, limited to the last days when
// days is positive.
func (c *Client) ItemUtilization(ctx context.Context, days int) ([]ItemMetric, error) {
	endpoint := "metrics/item-utilization"
	if days > 0 {
		endpoint = fmt.Sprintf("metrics/item-utilization?days=%d", days)
	}
	var resp []ItemMetric
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

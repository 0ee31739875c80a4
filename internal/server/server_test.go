package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"

	"trayline/internal/config"
	"trayline/internal/db"
	"trayline/internal/domain"
	"trayline/internal/engine"
	"trayline/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("tenant-1")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{Engine: e, BasePath: "/api/v1"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestTrayLifecycleFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/api/v1"

	res, data := doJSON(t, client, http.MethodPost, base+"/trays", map[string]any{"name": "Spine Set A"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create tray status %d: %s", res.StatusCode, string(data))
	}
	var created engine.TrayView
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal tray: %v", err)
	}
	if created.Status != domain.StatusReady || created.Color != domain.ColorGreen {
		t.Fatalf("new tray should be ready/green, got %s/%s", created.Status, created.Color)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/trays/1/items", map[string]any{
		"sku": "SCR-4.5", "name": "Screw 4.5mm", "is_critical": true, "qty_expected": 10,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add item status %d: %s", res.StatusCode, string(data))
	}
	var item domain.TrayItem
	if err := json.Unmarshal(data, &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if item.QtyOnHand == nil || *item.QtyOnHand != 10 {
		t.Fatalf("on-hand should default to expected, got %v", item.QtyOnHand)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/scan-events/dropoff", map[string]any{
		"tray_id": 1, "user_id": "rep-9",
		"gps":           map[string]any{"lat": 48.85, "lng": 2.35},
		"location_type": "Hospital", "location_name": "St. Mary",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dropoff status %d: %s", res.StatusCode, string(data))
	}
	var dropped engine.TrayView
	_ = json.Unmarshal(data, &dropped)
	if dropped.Status != domain.StatusInLocation {
		t.Fatalf("expected in_location after dropoff, got %s", dropped.Status)
	}
	if dropped.LastLocationType == nil || *dropped.LastLocationType != "Hospital" {
		t.Fatalf("location type not recorded: %v", dropped.LastLocationType)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/inventory-checks", map[string]any{
		"tray_id": 1, "user_id": "rep-9",
		"gps": map[string]any{"lat": 48.85, "lng": 2.35},
		"items": []map[string]any{
			{"item_id": item.ID, "qty_used": 4, "qty_missing": 4, "reason": "used in case"},
		},
		"any_critical_missing": true,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("inventory check status %d: %s", res.StatusCode, string(data))
	}
	var checked engine.TrayView
	if err := json.Unmarshal(data, &checked); err != nil {
		t.Fatalf("unmarshal check view: %v", err)
	}
	if checked.Status != domain.StatusNeedsRestock {
		t.Fatalf("expected needs_restock, got %s", checked.Status)
	}
	if checked.OpenTask == nil || len(checked.OpenTask.Items) != 1 {
		t.Fatalf("expected one open task item, got %+v", checked.OpenTask)
	}
	if len(checked.Items) != 1 || checked.Items[0].QtyOnHand == nil || *checked.Items[0].QtyOnHand != 6 {
		t.Fatalf("on-hand should drop to 6, got %+v", checked.Items)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/restocks/partial", map[string]any{
		"tray_id": 1, "user_id": "rep-9",
		"gps":          map[string]any{"lat": 48.85, "lng": 2.35},
		"items":        []map[string]any{{"item_id": item.ID, "qty_restocked": 2}},
		"new_priority": "partial",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("partial restock status %d: %s", res.StatusCode, string(data))
	}
	var partial engine.TrayView
	_ = json.Unmarshal(data, &partial)
	if partial.Status != domain.StatusReady {
		t.Fatalf("no unresolved items left, expected ready, got %s", partial.Status)
	}
	if partial.OpenTask != nil {
		t.Fatalf("task should have closed, got %+v", partial.OpenTask)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/restocks/full", map[string]any{
		"tray_id": 1, "user_id": "rep-9",
		"gps": map[string]any{"lat": 48.85, "lng": 2.35},
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("full restock status %d: %s", res.StatusCode, string(data))
	}
	var full engine.TrayView
	_ = json.Unmarshal(data, &full)
	if full.Status != domain.StatusReady || full.Color != domain.ColorGreen {
		t.Fatalf("expected ready/green, got %s/%s", full.Status, full.Color)
	}
	if len(full.Items) != 1 || full.Items[0].QtyOnHand == nil || *full.Items[0].QtyOnHand != 10 {
		t.Fatalf("on-hand should reset to expected, got %+v", full.Items)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/events?entity_kind=tray&entity_id=1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list events status %d: %s", res.StatusCode, string(data))
	}
	var evts []domain.Event
	if err := json.Unmarshal(data, &evts); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(evts) != 4 {
		t.Fatalf("expected 4 lifecycle events, got %d", len(evts))
	}
	if evts[0].Type != "restock_full" {
		t.Fatalf("events should be newest first, got %s", evts[0].Type)
	}
}

func TestRecordReadEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/api/v1"

	res, data := doJSON(t, client, http.MethodPost, base+"/doctors", map[string]any{
		"name": "Dr. Osei", "specialty": "Orthopedics",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create doctor: %d %s", res.StatusCode, string(data))
	}
	var doc domain.Doctor
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal doctor: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/doctors/"+itoa(doc.ID), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get doctor: %d %s", res.StatusCode, string(data))
	}
	var got domain.Doctor
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal doctor: %v", err)
	}
	if got.ID != doc.ID || got.Name != "Dr. Osei" {
		t.Fatalf("doctor = %+v", got)
	}
	if res, _ := doJSON(t, client, http.MethodGet, base+"/doctors/9999", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown doctor: %d, want 404", res.StatusCode)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/notes", map[string]any{
		"title": "Loaner set", "content": "Return by Friday",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create note: %d %s", res.StatusCode, string(data))
	}
	var note domain.Note
	if err := json.Unmarshal(data, &note); err != nil {
		t.Fatalf("unmarshal note: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/notes/"+itoa(note.ID), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get note: %d %s", res.StatusCode, string(data))
	}
	var gotNote domain.Note
	if err := json.Unmarshal(data, &gotNote); err != nil {
		t.Fatalf("unmarshal note: %v", err)
	}
	if gotNote.Title != "Loaner set" || gotNote.Content != "Return by Friday" {
		t.Fatalf("note = %+v", gotNote)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/photos", map[string]any{
		"entity_type": "doctor", "entity_id": doc.ID,
		"image_data": base64.StdEncoding.EncodeToString([]byte("jpeg bytes")),
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("upload photo: %d %s", res.StatusCode, string(data))
	}
	var photo domain.Photo
	if err := json.Unmarshal(data, &photo); err != nil {
		t.Fatalf("unmarshal photo: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/photos/"+itoa(photo.ID), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get photo: %d %s", res.StatusCode, string(data))
	}
	var gotPhoto domain.Photo
	if err := json.Unmarshal(data, &gotPhoto); err != nil {
		t.Fatalf("unmarshal photo: %v", err)
	}
	if gotPhoto.ID != photo.ID || gotPhoto.Filename == "" {
		t.Fatalf("photo = %+v", gotPhoto)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/api/v1"

	res, data := doJSON(t, client, http.MethodPost, base+"/scan-events/dropoff", map[string]any{
		"tray_id": 9999, "user_id": "rep-9",
		"gps": map[string]any{"lat": 0, "lng": 0},
	})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tray, got %d: %s", res.StatusCode, string(data))
	}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Error.Code != "not_found" {
		t.Fatalf("expected not_found code, got %q", env.Error.Code)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/trays", map[string]any{"name": "Hip Set"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create tray: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/inventory-checks", map[string]any{
		"tray_id": 1, "user_id": "rep-9",
		"gps":   map[string]any{"lat": 0, "lng": 0},
		"items": []map[string]any{},
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty items, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/restocks/partial", map[string]any{
		"tray_id": 1, "user_id": "rep-9",
		"gps":          map[string]any{"lat": 0, "lng": 0},
		"items":        []map[string]any{{"item_id": 1}},
		"new_priority": "urgent",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad priority, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/trays", map[string]any{"name": "Hip Set"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate name, got %d: %s", res.StatusCode, string(data))
	}
}

package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trayline/internal/config"
	"trayline/internal/db"
	"trayline/internal/domain"
	"trayline/internal/engine"
	"trayline/internal/migrate"
	"trayline/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("tenant-1"))
	fixed := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	eng.Now = fixed
	eng.Events.Now = fixed
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func intp(v int) *int { return &v }

func seedTray(t *testing.T, env testEnv) (engine.TrayView, domain.TrayItem) {
	t.Helper()
	tray, err := env.Engine.CreateTray(env.Ctx, "Spine Set A")
	if err != nil {
		t.Fatalf("create tray: %v", err)
	}
	item, err := env.Engine.AddTrayItem(env.Ctx, engine.AddTrayItemInput{
		TrayID:      tray.ID,
		SKU:         "SCR-4.5",
		Name:        "4.5mm screws",
		QtyExpected: intp(10),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.QtyOnHand == nil || *item.QtyOnHand != 10 {
		t.Fatalf("on-hand should default to expected, got %v", item.QtyOnHand)
	}
	return tray, item
}

func TestInventoryCheckOpensTaskAndDecrementsQty(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	view, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:  tray.ID,
		ActorID: "tester",
		GPS:     engine.GPS{Lat: 48.85, Lng: 2.35},
		Items:   []engine.CheckItem{{ItemID: item.ID, QtyUsed: intp(4), QtyMissing: intp(4)}},
	})
	if err != nil {
		t.Fatalf("inventory check: %v", err)
	}
	if view.Status != domain.StatusNeedsRestock {
		t.Fatalf("status = %s, want needs_restock", view.Status)
	}
	if view.Items[0].QtyOnHand == nil || *view.Items[0].QtyOnHand != 6 {
		t.Fatalf("on-hand = %v, want 6", view.Items[0].QtyOnHand)
	}
	if view.OpenTask == nil {
		t.Fatalf("expected an open task")
	}
	if len(view.OpenTask.Items) != 1 || view.OpenTask.Items[0].Restocked {
		t.Fatalf("expected one unresolved task item, got %+v", view.OpenTask.Items)
	}
	if view.LastSeenLat == nil || *view.LastSeenLat != 48.85 {
		t.Fatalf("last seen not updated: %v", view.LastSeenLat)
	}
}

func TestInventoryCheckIsIdempotentOnReflag(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	in := engine.InventoryCheckInput{
		TrayID:  tray.ID,
		ActorID: "tester",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
		Items:   []engine.CheckItem{{ItemID: item.ID, QtyMissing: intp(3)}},
	}
	if _, err := env.Engine.InventoryCheck(env.Ctx, in); err != nil {
		t.Fatal(err)
	}
	in.Items[0].QtyMissing = intp(5)
	view, err := env.Engine.InventoryCheck(env.Ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.OpenTask.Items) != 1 {
		t.Fatalf("re-flagging should update in place, got %d rows", len(view.OpenTask.Items))
	}
	if view.OpenTask.Items[0].QtyMissing == nil || *view.OpenTask.Items[0].QtyMissing != 5 {
		t.Fatalf("qty_missing = %v, want 5", view.OpenTask.Items[0].QtyMissing)
	}
	n, err := env.Engine.Repo.CountOpenTasks(env.Ctx, tray.ID)
	if err != nil || n != 1 {
		t.Fatalf("open tasks = %d (%v), want 1", n, err)
	}
}

func TestConcurrentChecksKeepSingleOpenTask(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
				TrayID:  tray.ID,
				ActorID: "tester",
				GPS:     engine.GPS{Lat: 1, Lng: 1},
				Items:   []engine.CheckItem{{ItemID: item.ID, QtyMissing: intp(1)}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent check: %v", err)
		}
	}
	count, err := env.Engine.Repo.CountOpenTasks(env.Ctx, tray.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("open tasks = %d, want exactly 1", count)
	}
}

func TestPartialRestockClosesTaskWhenNothingRemains(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:  tray.ID,
		ActorID: "tester",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
		Items:   []engine.CheckItem{{ItemID: item.ID, QtyUsed: intp(4), QtyMissing: intp(4)}},
	}); err != nil {
		t.Fatal(err)
	}

	view, err := env.Engine.RestockPartial(env.Ctx, engine.RestockPartialInput{
		TrayID:      tray.ID,
		ActorID:     "restocker",
		GPS:         engine.GPS{Lat: 1, Lng: 1},
		Items:       []engine.RestockItem{{ItemID: item.ID, QtyRestocked: intp(6)}},
		NewPriority: "partial",
	})
	if err != nil {
		t.Fatalf("partial restock: %v", err)
	}
	if view.Items[0].QtyOnHand == nil || *view.Items[0].QtyOnHand != 10 {
		t.Fatalf("on-hand = %v, want 10 (capped at expected)", view.Items[0].QtyOnHand)
	}
	if view.Status != domain.StatusReady {
		t.Fatalf("status = %s, want ready", view.Status)
	}
	if view.PriorityNumeric != nil || view.PriorityPartial {
		t.Fatalf("priority should degrade to none when nothing remains, got (%v,%v)", view.PriorityNumeric, view.PriorityPartial)
	}
	if view.Color != domain.ColorGreen {
		t.Fatalf("color = %s, want green", view.Color)
	}
	if view.OpenTask != nil {
		t.Fatalf("task should be closed")
	}
	n, _ := env.Engine.Repo.CountOpenTasks(env.Ctx, tray.ID)
	if n != 0 {
		t.Fatalf("open tasks = %d, want 0", n)
	}
}

func TestPartialRestockKeepsPartialWhileItemsRemain(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)
	other, err := env.Engine.AddTrayItem(env.Ctx, engine.AddTrayItemInput{
		TrayID: tray.ID, SKU: "ROD-5", Name: "5mm rods", QtyExpected: intp(4),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:  tray.ID,
		ActorID: "tester",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
		Items: []engine.CheckItem{
			{ItemID: item.ID, QtyMissing: intp(2)},
			{ItemID: other.ID, QtyMissing: intp(1)},
		},
	}); err != nil {
		t.Fatal(err)
	}

	view, err := env.Engine.RestockPartial(env.Ctx, engine.RestockPartialInput{
		TrayID:      tray.ID,
		ActorID:     "restocker",
		GPS:         engine.GPS{Lat: 1, Lng: 1},
		Items:       []engine.RestockItem{{ItemID: item.ID, QtyRestocked: intp(2)}},
		NewPriority: "partial",
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != domain.StatusNeedsRestock {
		t.Fatalf("status = %s, want needs_restock while an item remains", view.Status)
	}
	if view.PriorityNumeric != nil || !view.PriorityPartial {
		t.Fatalf("priority = (%v,%v), want (nil,true)", view.PriorityNumeric, view.PriorityPartial)
	}
	if view.Color != domain.ColorBlue {
		t.Fatalf("color = %s, want blue", view.Color)
	}
	if view.OpenTask == nil || len(view.OpenTask.Items) != 2 {
		t.Fatalf("expected the open task with both rows, got %+v", view.OpenTask)
	}
}

func TestPartialRestockRetainsRemainderOnResolvedRow(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:  tray.ID,
		ActorID: "tester",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
		Items:   []engine.CheckItem{{ItemID: item.ID, QtyMissing: intp(5)}},
	}); err != nil {
		t.Fatal(err)
	}
	view, err := env.Engine.RestockPartial(env.Ctx, engine.RestockPartialInput{
		TrayID:      tray.ID,
		ActorID:     "restocker",
		GPS:         engine.GPS{Lat: 1, Lng: 1},
		Items:       []engine.RestockItem{{ItemID: item.ID, QtyRestocked: intp(2)}},
		NewPriority: "2",
	})
	if err != nil {
		t.Fatal(err)
	}
	// Partial credit still resolves the row; the remainder is audit only.
	if view.OpenTask != nil {
		t.Fatalf("task should close, all reported rows resolved")
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, tray.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("tasks: %v %v", tasks, err)
	}
	rows, err := env.Engine.Repo.ListTaskItems(env.Ctx, tasks[0].ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("task rows: %v %v", rows, err)
	}
	if !rows[0].Restocked || rows[0].QtyMissing == nil || *rows[0].QtyMissing != 3 {
		t.Fatalf("row = %+v, want resolved with remainder 3", rows[0])
	}
	// Explicit numeric priority sticks even though the task closed, but a
	// ready tray always renders green.
	if view.PriorityNumeric == nil || *view.PriorityNumeric != 2 || view.Status != domain.StatusReady {
		t.Fatalf("priority = %v status = %s", view.PriorityNumeric, view.Status)
	}
	if view.Color != domain.ColorGreen {
		t.Fatalf("color = %s, want green", view.Color)
	}
}

func TestPriorityMergeNeverDowngrades(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:              tray.ID,
		ActorID:             "tester",
		GPS:                 engine.GPS{Lat: 1, Lng: 1},
		Items:               []engine.CheckItem{{ItemID: item.ID}},
		UserPriorityNumeric: intp(3),
	}); err != nil {
		t.Fatal(err)
	}
	view, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:              tray.ID,
		ActorID:             "tester",
		GPS:                 engine.GPS{Lat: 1, Lng: 1},
		Items:               []engine.CheckItem{{ItemID: item.ID}},
		UserPriorityNumeric: intp(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.PriorityNumeric == nil || *view.PriorityNumeric != 3 {
		t.Fatalf("priority = %v, want 3 kept", view.PriorityNumeric)
	}
	if view.Color != domain.ColorYellow {
		t.Fatalf("color = %s, want yellow for numeric 3", view.Color)
	}
}

func TestEscalationSuggestionUsedWithoutUserPriority(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	view, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:             tray.ID,
		ActorID:            "tester",
		GPS:                engine.GPS{Lat: 1, Lng: 1},
		Items:              []engine.CheckItem{{ItemID: item.ID}},
		CaseWithin72h:      true,
		CaseCountPerWeek:   4,
		TrayAvgWeekly:      2,
		AnyCriticalMissing: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.PriorityNumeric == nil || *view.PriorityNumeric != 3 {
		t.Fatalf("priority = %v, want suggested 3", view.PriorityNumeric)
	}
}

func TestFullRestockResetsEverything(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)
	other, err := env.Engine.AddTrayItem(env.Ctx, engine.AddTrayItemInput{
		TrayID: tray.ID, SKU: "ROD-5", Name: "5mm rods", QtyExpected: intp(4),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID:  tray.ID,
		ActorID: "tester",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
		Items: []engine.CheckItem{
			{ItemID: item.ID, QtyUsed: intp(7), QtyMissing: intp(7)},
			{ItemID: other.ID, QtyUsed: intp(2), QtyMissing: intp(2)},
		},
		UserPriorityNumeric: intp(1),
	}); err != nil {
		t.Fatal(err)
	}

	view, err := env.Engine.RestockFull(env.Ctx, engine.RestockFullInput{
		TrayID:  tray.ID,
		ActorID: "restocker",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
	})
	if err != nil {
		t.Fatalf("full restock: %v", err)
	}
	if view.Status != domain.StatusReady || view.Color != domain.ColorGreen {
		t.Fatalf("status/color = %s/%s, want ready/green", view.Status, view.Color)
	}
	if view.PriorityNumeric != nil || view.PriorityPartial {
		t.Fatalf("priority not reset: (%v,%v)", view.PriorityNumeric, view.PriorityPartial)
	}
	for _, it := range view.Items {
		if it.QtyOnHand == nil || it.QtyExpected == nil || *it.QtyOnHand != *it.QtyExpected {
			t.Fatalf("item %s on-hand %v expected %v", it.SKU, it.QtyOnHand, it.QtyExpected)
		}
	}
	if view.OpenTask != nil {
		t.Fatalf("task should be closed")
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, tray.ID)
	if err != nil || len(tasks) != 1 || tasks[0].Status != domain.TaskClosed {
		t.Fatalf("tasks = %+v (%v)", tasks, err)
	}
	rows, _ := env.Engine.Repo.ListTaskItems(env.Ctx, tasks[0].ID)
	for _, row := range rows {
		if !row.Restocked {
			t.Fatalf("row %d still unresolved after full restock", row.ID)
		}
	}
}

func TestClosedTaskNeverReopens(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	check := engine.InventoryCheckInput{
		TrayID:  tray.ID,
		ActorID: "tester",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
		Items:   []engine.CheckItem{{ItemID: item.ID, QtyMissing: intp(1)}},
	}
	if _, err := env.Engine.InventoryCheck(env.Ctx, check); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RestockFull(env.Ctx, engine.RestockFullInput{
		TrayID: tray.ID, ActorID: "restocker", GPS: engine.GPS{Lat: 1, Lng: 1},
	}); err != nil {
		t.Fatal(err)
	}
	view, err := env.Engine.InventoryCheck(env.Ctx, check)
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, tray.ID)
	if err != nil || len(tasks) != 2 {
		t.Fatalf("want a fresh second task, got %+v (%v)", tasks, err)
	}
	if view.OpenTask == nil || view.OpenTask.Status != domain.TaskOpen {
		t.Fatalf("open task missing: %+v", view.OpenTask)
	}
	// tasks are newest first; the original one stays closed
	if tasks[1].Status != domain.TaskClosed {
		t.Fatalf("original task should stay closed: %+v", tasks[1])
	}
}

func TestLifecycleRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID: tray.ID, ActorID: "t", GPS: engine.GPS{Lat: 1, Lng: 1},
	}); err == nil {
		t.Fatalf("empty item list must be rejected")
	}
	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID: tray.ID, ActorID: "t", GPS: engine.GPS{Lat: 91, Lng: 0},
		Items: []engine.CheckItem{{ItemID: item.ID}},
	}); err == nil {
		t.Fatalf("out-of-range gps must be rejected")
	}
	if _, err := env.Engine.RestockPartial(env.Ctx, engine.RestockPartialInput{
		TrayID: tray.ID, ActorID: "t", GPS: engine.GPS{Lat: 1, Lng: 1},
		Items:       []engine.RestockItem{{ItemID: item.ID}},
		NewPriority: "urgent",
	}); err == nil {
		t.Fatalf("malformed priority literal must be rejected")
	}
	if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
		TrayID: tray.ID, ActorID: "t", GPS: engine.GPS{Lat: 1, Lng: 1},
		Items: []engine.CheckItem{{ItemID: 9999}},
	}); err == nil {
		t.Fatalf("unknown sub-item must abort the operation")
	}
	// Aborted check must not leave a half-applied state behind.
	n, _ := env.Engine.Repo.CountOpenTasks(env.Ctx, tray.ID)
	if n != 0 {
		t.Fatalf("open tasks = %d after aborted checks, want 0", n)
	}
}

func TestDropOffRecordsLocationAndEvent(t *testing.T) {
	env := newTestEnv(t)
	tray, _ := seedTray(t, env)

	loc := "Hospital"
	name := "St. Mary OR 3"
	caseID := "case-77"
	view, err := env.Engine.DropOff(env.Ctx, engine.DropOffInput{
		TrayID:       tray.ID,
		ActorID:      "courier",
		GPS:          engine.GPS{Lat: 40.7, Lng: -74.0},
		LocationType: &loc,
		LocationName: &name,
		CaseID:       &caseID,
	})
	if err != nil {
		t.Fatalf("dropoff: %v", err)
	}
	if view.Status != domain.StatusInLocation {
		t.Fatalf("status = %s, want in_location", view.Status)
	}
	if view.LastLocationType == nil || *view.LastLocationType != "Hospital" {
		t.Fatalf("location type = %v", view.LastLocationType)
	}
	if view.LinkedCaseID == nil || *view.LinkedCaseID != "case-77" {
		t.Fatalf("linked case = %v", view.LinkedCaseID)
	}
	evts, err := env.Engine.Repo.ListEvents(env.Ctx, repo.EventFilters{Type: "dropoff", EntityKind: domain.EntityTray, EntityID: tray.ID})
	if err != nil || len(evts) != 1 {
		t.Fatalf("events = %+v (%v), want exactly one", evts, err)
	}
	if evts[0].CaseID == nil || *evts[0].CaseID != "case-77" {
		t.Fatalf("event case id = %v", evts[0].CaseID)
	}
}

func TestTrayLookupByName(t *testing.T) {
	env := newTestEnv(t)
	tray, _ := seedTray(t, env)

	view, err := env.Engine.GetTrayViewByName(env.Ctx, "Spine Set A")
	if err != nil {
		t.Fatalf("lookup by name: %v", err)
	}
	if view.ID != tray.ID || len(view.Items) != 1 {
		t.Fatalf("view = %+v, want tray %d with one item", view, tray.ID)
	}
	if _, err := env.Engine.GetTrayViewByName(env.Ctx, "No Such Set"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStandaloneLifecycle(t *testing.T) {
	env := newTestEnv(t)
	item, err := env.Engine.CreateStandaloneItem(env.Ctx, engine.CreateStandaloneItemInput{
		Name:        "Bone graft kit",
		ItemType:    "implant",
		QtyExpected: intp(5),
		IsCritical:  true,
	})
	if err != nil {
		t.Fatalf("create standalone: %v", err)
	}

	checked, err := env.Engine.StandaloneInventoryCheck(env.Ctx, engine.StandaloneCheckInput{
		ItemID:              item.ID,
		ActorID:             "tester",
		GPS:                 engine.GPS{Lat: 1, Lng: 1},
		QtyUsed:             intp(2),
		UserPriorityNumeric: intp(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	if checked.Status != domain.StatusNeedsRestock || *checked.QtyOnHand != 3 {
		t.Fatalf("after check: status=%s on-hand=%v", checked.Status, checked.QtyOnHand)
	}

	// Lower hint must not downgrade, same merge as trays.
	checked, err = env.Engine.StandaloneInventoryCheck(env.Ctx, engine.StandaloneCheckInput{
		ItemID:              item.ID,
		ActorID:             "tester",
		GPS:                 engine.GPS{Lat: 1, Lng: 1},
		UserPriorityNumeric: intp(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	if checked.PriorityNumeric == nil || *checked.PriorityNumeric != 3 {
		t.Fatalf("priority = %v, want 3 kept", checked.PriorityNumeric)
	}

	partial, err := env.Engine.StandaloneRestockPartial(env.Ctx, engine.StandaloneRestockPartialInput{
		ItemID:       item.ID,
		ActorID:      "restocker",
		GPS:          engine.GPS{Lat: 1, Lng: 1},
		QtyRestocked: intp(1),
		NewPriority:  "partial",
	})
	if err != nil {
		t.Fatal(err)
	}
	if partial.Status != domain.StatusNeedsRestock || !partial.PriorityPartial || partial.Color != domain.ColorBlue {
		t.Fatalf("after partial: %+v", partial)
	}

	full, err := env.Engine.StandaloneRestockFull(env.Ctx, engine.StandaloneRestockFullInput{
		ItemID:  item.ID,
		ActorID: "restocker",
		GPS:     engine.GPS{Lat: 1, Lng: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if full.Status != domain.StatusReady || *full.QtyOnHand != 5 || full.Color != domain.ColorGreen {
		t.Fatalf("after full: %+v", full)
	}
}

func TestStandalonePartialReachingExpectedGoesReady(t *testing.T) {
	env := newTestEnv(t)
	item, err := env.Engine.CreateStandaloneItem(env.Ctx, engine.CreateStandaloneItemInput{
		Name: "Drill bits", ItemType: "tool", QtyExpected: intp(4),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.StandaloneInventoryCheck(env.Ctx, engine.StandaloneCheckInput{
		ItemID: item.ID, ActorID: "t", GPS: engine.GPS{Lat: 1, Lng: 1}, QtyUsed: intp(3),
	}); err != nil {
		t.Fatal(err)
	}
	out, err := env.Engine.StandaloneRestockPartial(env.Ctx, engine.StandaloneRestockPartialInput{
		ItemID: item.ID, ActorID: "t", GPS: engine.GPS{Lat: 1, Lng: 1},
		QtyRestocked: intp(9), NewPriority: "1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.StatusReady || *out.QtyOnHand != 4 {
		t.Fatalf("topped-up item should be ready at expected, got %+v", out)
	}
	if out.PriorityNumeric != nil || out.PriorityPartial {
		t.Fatalf("priority should clear once fully stocked")
	}
}

func TestItemUtilizationCountsUsage(t *testing.T) {
	env := newTestEnv(t)
	tray, item := seedTray(t, env)

	for i := 0; i < 2; i++ {
		if _, err := env.Engine.InventoryCheck(env.Ctx, engine.InventoryCheckInput{
			TrayID:  tray.ID,
			ActorID: "tester",
			GPS:     engine.GPS{Lat: 1, Lng: 1},
			Items:   []engine.CheckItem{{ItemID: item.ID, QtyUsed: intp(2)}},
		}); err != nil {
			t.Fatal(err)
		}
	}
	metrics, err := env.Engine.ItemUtilization(env.Ctx, 0)
	if err != nil {
		t.Fatalf("utilization: %v", err)
	}
	var found bool
	for _, m := range metrics {
		if m.SKU == "SCR-4.5" {
			found = true
			if m.TimesUsed != 2 || m.TotalQty != 4 || m.AvgQtyPerUse != 2 {
				t.Fatalf("metric = %+v", m)
			}
		}
	}
	if !found {
		t.Fatalf("missing metric for SCR-4.5: %+v", metrics)
	}
}

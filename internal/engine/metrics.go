package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"trayline/internal/domain"
	"trayline/internal/repo"
)

// ItemMetric is one row of the utilization report.
type ItemMetric struct {
	ItemName     string  `json:"item_name"`
	SKU          string  `json:"sku,omitempty"`
	SourceType   string  `json:"source_type" enum:"tray,standalone"`
	SourceName   string  `json:"source_name"`
	IsCritical   bool    `json:"is_critical"`
	TimesUsed    int     `json:"times_used"`
	TotalQty     int     `json:"total_qty_used"`
	LastUsed     *string `json:"last_used,omitempty" format:"date-time"`
	AvgQtyPerUse float64 `json:"avg_qty_per_use"`
}

// ItemUtilization aggregates inventory-check events into per-item usage
// counts. Items never flagged still appear with zero usage. days limits the
// window; zero means all history.
func (e *Engine) ItemUtilization(ctx context.Context, days int) ([]ItemMetric, error) {
	since := ""
	if days > 0 {
		since = e.now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	}

	type acc struct {
		metric ItemMetric
	}
	metrics := map[string]*acc{}
	touch := func(key string, seed ItemMetric) *acc {
		a, ok := metrics[key]
		if !ok {
			a = &acc{metric: seed}
			metrics[key] = a
		}
		return a
	}

	trayEvents, err := e.Repo.ListEvents(ctx, repo.EventFilters{Type: "inventory_check", Since: since})
	if err != nil {
		return nil, err
	}
	trayCache := map[int64]domain.Tray{}
	for _, evt := range trayEvents {
		var payload struct {
			ItemsFlagged []struct {
				ItemID  int64 `json:"item_id"`
				QtyUsed int   `json:"qty_used"`
			} `json:"items_flagged"`
		}
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err != nil {
			continue
		}
		for _, fl := range payload.ItemsFlagged {
			tray, ok := trayCache[evt.EntityID]
			if !ok {
				tray, err = e.Repo.GetTray(ctx, evt.EntityID)
				if err != nil {
					continue
				}
				trayCache[evt.EntityID] = tray
			}
			item, err := e.trayItem(ctx, tray.ID, fl.ItemID)
			if err != nil {
				continue
			}
			key := fmt.Sprintf("tray_%d_%s", tray.ID, item.SKU)
			a := touch(key, ItemMetric{
				ItemName:   item.Name,
				SKU:        item.SKU,
				SourceType: "tray",
				SourceName: tray.Name,
				IsCritical: item.IsCritical,
			})
			a.metric.TimesUsed++
			a.metric.TotalQty += fl.QtyUsed
			if a.metric.LastUsed == nil || evt.TS > *a.metric.LastUsed {
				ts := evt.TS
				a.metric.LastUsed = &ts
			}
		}
	}

	standaloneEvents, err := e.Repo.ListEvents(ctx, repo.EventFilters{Type: "inventory_check_standalone", Since: since})
	if err != nil {
		return nil, err
	}
	for _, evt := range standaloneEvents {
		var payload struct {
			QtyUsed int `json:"qty_used"`
		}
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err != nil {
			continue
		}
		item, err := e.Repo.GetStandaloneItem(ctx, e.tenantID(), evt.EntityID)
		if err != nil {
			continue
		}
		key := fmt.Sprintf("standalone_%d", item.ID)
		sku := ""
		if item.SKU != nil {
			sku = *item.SKU
		}
		a := touch(key, ItemMetric{
			ItemName:   item.Name,
			SKU:        sku,
			SourceType: "standalone",
			SourceName: item.Name,
			IsCritical: item.IsCritical,
		})
		a.metric.TimesUsed++
		a.metric.TotalQty += payload.QtyUsed
		if a.metric.LastUsed == nil || evt.TS > *a.metric.LastUsed {
			ts := evt.TS
			a.metric.LastUsed = &ts
		}
	}

	// Unused inventory still shows up, with zero counts.
	trays, err := e.Repo.ListTrays(ctx, repo.TrayFilters{})
	if err != nil {
		return nil, err
	}
	for _, tray := range trays {
		items, err := e.Repo.ListTrayItems(ctx, tray.ID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			key := fmt.Sprintf("tray_%d_%s", tray.ID, item.SKU)
			touch(key, ItemMetric{
				ItemName:   item.Name,
				SKU:        item.SKU,
				SourceType: "tray",
				SourceName: tray.Name,
				IsCritical: item.IsCritical,
			})
		}
	}
	standaloneItems, err := e.Repo.ListStandaloneItems(ctx, repo.StandaloneFilters{TenantID: e.tenantID()})
	if err != nil {
		return nil, err
	}
	for _, item := range standaloneItems {
		key := fmt.Sprintf("standalone_%d", item.ID)
		sku := ""
		if item.SKU != nil {
			sku = *item.SKU
		}
		touch(key, ItemMetric{
			ItemName:   item.Name,
			SKU:        sku,
			SourceType: "standalone",
			SourceName: item.Name,
			IsCritical: item.IsCritical,
		})
	}

	res := make([]ItemMetric, 0, len(metrics))
	for _, a := range metrics {
		if a.metric.TimesUsed > 0 {
			avg := float64(a.metric.TotalQty) / float64(a.metric.TimesUsed)
			a.metric.AvgQtyPerUse = math.Round(avg*100) / 100
		}
		res = append(res, a.metric)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].TotalQty != res[j].TotalQty {
			return res[i].TotalQty > res[j].TotalQty
		}
		if res[i].SourceName != res[j].SourceName {
			return res[i].SourceName < res[j].SourceName
		}
		return res[i].ItemName < res[j].ItemName
	})
	return res, nil
}

func (e *Engine) trayItem(ctx context.Context, trayID, itemID int64) (domain.TrayItem, error) {
	items, err := e.Repo.ListTrayItems(ctx, trayID)
	if err != nil {
		return domain.TrayItem{}, err
	}
	for _, it := range items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return domain.TrayItem{}, repo.ErrNotFound
}

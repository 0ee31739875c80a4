package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trayline/internal/app"
	"trayline/internal/db"
	"trayline/internal/engine"
	"trayline/internal/migrate"
	"trayline/internal/repo"
	"trayline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Trayline CLI",
	Long: `Trayline tracks surgical trays and loose inventory through the field cycle:
drop-off at a location, inventory check after a case, and partial or full
restock. Every scan updates tray status, urgency color, and the audit log.

- Workspace: the .trayline directory holding the database; trayline.yml
  next to it carries tenant and server settings.
- Tray: a named kit of sub-items. Status flows ready -> in_location ->
  needs_restock -> ready.
- Priority: red/orange/yellow for levels 1-3, blue for a partial shortage,
  green when nothing is pending. Checks only ever raise urgency; only a
  full restock clears it.
- Restock task: the open shortage list for a tray. One per tray, closed
  when every flagged item is resolved.
- Standalone item: loose stock tracked with the same lifecycle.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TRAYLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("tenant", "", "tenant id (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
}

func registerCommands() {
	rootCmd.AddCommand(trayCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(caseCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(serveCmd())
}

func trayCmd() *cobra.Command {
	tray := &cobra.Command{
		Use:   "tray",
		Short: "Manage trays and their lifecycle",
	}
	tray.AddCommand(trayCreateCmd())
	tray.AddCommand(trayAddItemCmd())
	tray.AddCommand(trayListCmd())
	tray.AddCommand(trayShowCmd())
	tray.AddCommand(trayDropoffCmd())
	tray.AddCommand(trayCheckCmd())
	tray.AddCommand(trayRestockFullCmd())
	tray.AddCommand(trayRestockPartialCmd())
	return tray
}

func trayCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.CreateTray(ctx, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "tray name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func trayAddItemCmd() *cobra.Command {
	var trayID int64
	var sku, name string
	var critical bool
	var expected, onHand int
	cmd := &cobra.Command{
		Use:   "add-item",
		Short: "Add a sub-item to a tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.AddTrayItemInput{
				TrayID:     trayID,
				SKU:        sku,
				Name:       name,
				IsCritical: critical,
			}
			if cmd.Flags().Changed("expected") {
				in.QtyExpected = &expected
			}
			if cmd.Flags().Changed("on-hand") {
				in.QtyOnHand = &onHand
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.AddTrayItem(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().Int64Var(&trayID, "tray", 0, "tray id")
	cmd.Flags().StringVar(&sku, "sku", "", "item SKU")
	cmd.Flags().StringVar(&name, "name", "", "item name")
	cmd.Flags().BoolVar(&critical, "critical", false, "mark item critical")
	cmd.Flags().IntVar(&expected, "expected", 0, "expected quantity")
	cmd.Flags().IntVar(&onHand, "on-hand", 0, "on-hand quantity")
	_ = cmd.MarkFlagRequired("tray")
	_ = cmd.MarkFlagRequired("sku")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func trayListCmd() *cobra.Command {
	var status, color string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				trays, err := e.Repo.ListTrays(ctx, repo.TrayFilters{
					Status: status,
					Color:  color,
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(trays)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Color", "Priority", "Last Seen"})
				for _, t := range trays {
					prio := ""
					if t.PriorityNumeric != nil {
						prio = strconv.Itoa(*t.PriorityNumeric)
					} else if t.PriorityPartial {
						prio = "partial"
					}
					lastSeen := ""
					if t.LastSeenAt != nil {
						lastSeen = *t.LastSeenAt
					}
					tw.AppendRow(table.Row{t.ID, t.Name, t.Status, t.Color, prio, lastSeen})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (ready, in_location, needs_restock)")
	cmd.Flags().StringVar(&color, "color", "", "color filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip rows")
	return cmd
}

func trayShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <tray-id|name>",
		Short: "Show a tray with its items and open restock task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				// Non-numeric arguments resolve through the unique tray name.
				var (
					view engine.TrayView
					err  error
				)
				if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil {
					view, err = e.GetTrayView(ctx, id)
				} else {
					view, err = e.GetTrayViewByName(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	return cmd
}

func trayDropoffCmd() *cobra.Command {
	var trayID int64
	var lat, lng float64
	var locType, locName, caseID, notes string
	cmd := &cobra.Command{
		Use:   "dropoff",
		Short: "Record a tray drop-off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.DropOff(ctx, engine.DropOffInput{
					TrayID:       trayID,
					ActorID:      viper.GetString("actor-id"),
					GPS:          engine.GPS{Lat: lat, Lng: lng},
					LocationType: optionalString(locType),
					LocationName: optionalString(locName),
					CaseID:       optionalString(caseID),
					Notes:        optionalString(notes),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	cmd.Flags().Int64Var(&trayID, "tray", 0, "tray id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type (Hospital, Warehouse, ...)")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	cmd.Flags().StringVar(&caseID, "case", "", "linked case id")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("tray")
	return cmd
}

func trayCheckCmd() *cobra.Command {
	var trayID int64
	var lat, lng float64
	var items []string
	var locType, locName string
	var caseSoon, criticalMissing bool
	var weekly, avgWeekly float64
	var priority int
	var partial bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Flag shortages after an inventory check",
		Long: `Each --item takes item_id:qty_used:qty_missing, with qty fields optional:
  tl tray check --tray 1 --item 4:2:2 --item 7::1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			checkItems, err := parseCheckItems(items)
			if err != nil {
				return err
			}
			in := engine.InventoryCheckInput{
				TrayID:             trayID,
				ActorID:            viper.GetString("actor-id"),
				GPS:                engine.GPS{Lat: lat, Lng: lng},
				Items:              checkItems,
				CaseWithin72h:      caseSoon,
				CaseCountPerWeek:   weekly,
				TrayAvgWeekly:      avgWeekly,
				AnyCriticalMissing: criticalMissing,
				LocationType:       optionalString(locType),
				LocationName:       optionalString(locName),
			}
			if cmd.Flags().Changed("priority") {
				in.UserPriorityNumeric = &priority
			}
			if cmd.Flags().Changed("partial") {
				in.UserPriorityPartial = &partial
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.InventoryCheck(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	cmd.Flags().Int64Var(&trayID, "tray", 0, "tray id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().StringArrayVar(&items, "item", nil, "flagged item as item_id:qty_used:qty_missing")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	cmd.Flags().BoolVar(&caseSoon, "case-within-72h", false, "a case is assigned within 72 hours")
	cmd.Flags().Float64Var(&weekly, "cases-per-week", 0, "case count this week")
	cmd.Flags().Float64Var(&avgWeekly, "avg-weekly", 0, "average weekly case count")
	cmd.Flags().BoolVar(&criticalMissing, "critical-missing", false, "a critical item is missing")
	cmd.Flags().IntVar(&priority, "priority", 0, "user priority 1-3")
	cmd.Flags().BoolVar(&partial, "partial", false, "user partial flag")
	_ = cmd.MarkFlagRequired("tray")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func trayRestockFullCmd() *cobra.Command {
	var trayID int64
	var lat, lng float64
	var locType, locName, notes string
	cmd := &cobra.Command{
		Use:   "restock-full",
		Short: "Fully restock a tray and clear its urgency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.RestockFull(ctx, engine.RestockFullInput{
					TrayID:       trayID,
					ActorID:      viper.GetString("actor-id"),
					GPS:          engine.GPS{Lat: lat, Lng: lng},
					LocationType: optionalString(locType),
					LocationName: optionalString(locName),
					Notes:        optionalString(notes),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	cmd.Flags().Int64Var(&trayID, "tray", 0, "tray id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("tray")
	return cmd
}

func trayRestockPartialCmd() *cobra.Command {
	var trayID int64
	var lat, lng float64
	var items []string
	var newPriority, locType, locName, notes string
	cmd := &cobra.Command{
		Use:   "restock-partial",
		Short: "Partially restock a tray",
		Long: `Each --item takes item_id:qty_restocked:
  tl tray restock-partial --tray 1 --item 4:2 --new-priority partial`,
		RunE: func(cmd *cobra.Command, args []string) error {
			restockItems, err := parseRestockItems(items)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.RestockPartial(ctx, engine.RestockPartialInput{
					TrayID:       trayID,
					ActorID:      viper.GetString("actor-id"),
					GPS:          engine.GPS{Lat: lat, Lng: lng},
					Items:        restockItems,
					NewPriority:  engine.NewPriority(newPriority),
					LocationType: optionalString(locType),
					LocationName: optionalString(locName),
					Notes:        optionalString(notes),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(view)
			})
		},
	}
	cmd.Flags().Int64Var(&trayID, "tray", 0, "tray id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().StringArrayVar(&items, "item", nil, "restocked item as item_id:qty_restocked")
	cmd.Flags().StringVar(&newPriority, "new-priority", "partial", "priority after restock (partial, 1, 2, 3)")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("tray")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func itemCmd() *cobra.Command {
	item := &cobra.Command{
		Use:   "item",
		Short: "Manage standalone items",
	}
	item.AddCommand(itemCreateCmd())
	item.AddCommand(itemListCmd())
	item.AddCommand(itemShowCmd())
	item.AddCommand(itemDropoffCmd())
	item.AddCommand(itemCheckCmd())
	item.AddCommand(itemRestockFullCmd())
	item.AddCommand(itemRestockPartialCmd())
	return item
}

func itemCreateCmd() *cobra.Command {
	var name, itemType, sku string
	var critical bool
	var expected, onHand int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a standalone item",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.CreateStandaloneItemInput{
				Name:       name,
				ItemType:   itemType,
				SKU:        optionalString(sku),
				IsCritical: critical,
			}
			if cmd.Flags().Changed("expected") {
				in.QtyExpected = &expected
			}
			if cmd.Flags().Changed("on-hand") {
				in.QtyOnHand = &onHand
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.CreateStandaloneItem(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "item name")
	cmd.Flags().StringVar(&itemType, "type", "", "item type")
	cmd.Flags().StringVar(&sku, "sku", "", "item SKU")
	cmd.Flags().BoolVar(&critical, "critical", false, "mark item critical")
	cmd.Flags().IntVar(&expected, "expected", 0, "expected quantity")
	cmd.Flags().IntVar(&onHand, "on-hand", 0, "on-hand quantity")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func itemListCmd() *cobra.Command {
	var status, itemType string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List standalone items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListStandaloneItems(ctx, repo.StandaloneFilters{
					TenantID: e.Config.Tenant.ID,
					Status:   status,
					ItemType: itemType,
					Limit:    limit,
					Offset:   offset,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Type", "Status", "Color", "On Hand", "Expected"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Name, it.ItemType, it.Status, it.Color, intOrDash(it.QtyOnHand), intOrDash(it.QtyExpected)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&itemType, "type", "", "item type filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip rows")
	return cmd
}

func itemShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show a standalone item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.Repo.GetStandaloneItem(ctx, e.Config.Tenant.ID, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	return cmd
}

func itemDropoffCmd() *cobra.Command {
	var itemID int64
	var lat, lng float64
	var locType, locName, notes string
	cmd := &cobra.Command{
		Use:   "dropoff",
		Short: "Record a standalone item drop-off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.StandaloneDropOff(ctx, engine.StandaloneDropOffInput{
					ItemID:       itemID,
					ActorID:      viper.GetString("actor-id"),
					GPS:          engine.GPS{Lat: lat, Lng: lng},
					LocationType: optionalString(locType),
					LocationName: optionalString(locName),
					Notes:        optionalString(notes),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().Int64Var(&itemID, "item", 0, "item id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func itemCheckCmd() *cobra.Command {
	var itemID int64
	var lat, lng float64
	var qtyUsed, priority int
	var partial bool
	var locType, locName string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Record standalone item usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.StandaloneCheckInput{
				ItemID:       itemID,
				ActorID:      viper.GetString("actor-id"),
				GPS:          engine.GPS{Lat: lat, Lng: lng},
				LocationType: optionalString(locType),
				LocationName: optionalString(locName),
			}
			if cmd.Flags().Changed("qty-used") {
				in.QtyUsed = &qtyUsed
			}
			if cmd.Flags().Changed("priority") {
				in.UserPriorityNumeric = &priority
			}
			if cmd.Flags().Changed("partial") {
				in.UserPriorityPartial = &partial
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.StandaloneInventoryCheck(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().Int64Var(&itemID, "item", 0, "item id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().IntVar(&qtyUsed, "qty-used", 0, "quantity used")
	cmd.Flags().IntVar(&priority, "priority", 0, "user priority 1-3")
	cmd.Flags().BoolVar(&partial, "partial", false, "user partial flag")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func itemRestockFullCmd() *cobra.Command {
	var itemID int64
	var lat, lng float64
	var locType, locName, notes string
	cmd := &cobra.Command{
		Use:   "restock-full",
		Short: "Fully restock a standalone item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.StandaloneRestockFull(ctx, engine.StandaloneRestockFullInput{
					ItemID:       itemID,
					ActorID:      viper.GetString("actor-id"),
					GPS:          engine.GPS{Lat: lat, Lng: lng},
					LocationType: optionalString(locType),
					LocationName: optionalString(locName),
					Notes:        optionalString(notes),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().Int64Var(&itemID, "item", 0, "item id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func itemRestockPartialCmd() *cobra.Command {
	var itemID int64
	var lat, lng float64
	var qtyRestocked int
	var newPriority, locType, locName, notes string
	cmd := &cobra.Command{
		Use:   "restock-partial",
		Short: "Partially restock a standalone item",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.StandaloneRestockPartialInput{
				ItemID:       itemID,
				ActorID:      viper.GetString("actor-id"),
				GPS:          engine.GPS{Lat: lat, Lng: lng},
				NewPriority:  engine.NewPriority(newPriority),
				LocationType: optionalString(locType),
				LocationName: optionalString(locName),
				Notes:        optionalString(notes),
			}
			if cmd.Flags().Changed("qty-restocked") {
				in.QtyRestocked = &qtyRestocked
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.StandaloneRestockPartial(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().Int64Var(&itemID, "item", 0, "item id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "GPS longitude")
	cmd.Flags().IntVar(&qtyRestocked, "qty-restocked", 0, "quantity restocked")
	cmd.Flags().StringVar(&newPriority, "new-priority", "partial", "priority after restock (partial, 1, 2, 3)")
	cmd.Flags().StringVar(&locType, "location-type", "", "location type")
	cmd.Flags().StringVar(&locName, "location-name", "", "location name")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func caseCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "case",
		Short: "Manage surgical cases",
	}
	c.AddCommand(caseCreateCmd())
	c.AddCommand(caseListCmd())
	c.AddCommand(caseShowCmd())
	c.AddCommand(caseDeleteCmd())
	return c
}

func caseCreateCmd() *cobra.Command {
	var procedure, caseDate, location, doctor, trayOther, notes string
	var trayID int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.CreateCaseInput{
				Procedure: procedure,
				CaseDate:  caseDate,
				Location:  location,
				Doctor:    optionalString(doctor),
				TrayOther: optionalString(trayOther),
				Notes:     optionalString(notes),
			}
			if cmd.Flags().Changed("tray") {
				in.TrayID = &trayID
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCase(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&procedure, "procedure", "", "procedure name")
	cmd.Flags().StringVar(&caseDate, "date", "", "case date (RFC 3339)")
	cmd.Flags().StringVar(&location, "location", "", "case location")
	cmd.Flags().StringVar(&doctor, "doctor", "", "doctor name")
	cmd.Flags().Int64Var(&trayID, "tray", 0, "assigned tray id")
	cmd.Flags().StringVar(&trayOther, "tray-other", "", "free-text tray when not tracked")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("procedure")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func caseListCmd() *cobra.Command {
	var startDate, endDate string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cases, err := e.Repo.ListCases(ctx, repo.CaseFilters{
					TenantID:  e.Config.Tenant.ID,
					StartDate: startDate,
					EndDate:   endDate,
					Limit:     limit,
					Offset:    offset,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cases)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Procedure", "Location", "Doctor"})
				for _, c := range cases {
					doctor := ""
					if c.Doctor != nil {
						doctor = *c.Doctor
					}
					tw.AppendRow(table.Row{c.ID, c.CaseDate, c.Procedure, c.Location, doctor})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&startDate, "start", "", "start date (RFC 3339)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (RFC 3339)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip rows")
	return cmd
}

func caseShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <case-id>",
		Short: "Show a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid case id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Repo.GetCase(ctx, e.Config.Tenant.ID, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func caseDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <case-id>",
		Short: "Delete a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid case id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteCase(ctx, e.Config.Tenant.ID, id)
			})
		},
	}
	return cmd
}

func doctorCmd() *cobra.Command {
	d := &cobra.Command{
		Use:   "doctor",
		Short: "Manage doctors",
	}
	d.AddCommand(doctorCreateCmd())
	d.AddCommand(doctorListCmd())
	d.AddCommand(doctorDeleteCmd())
	return d
}

func doctorCreateCmd() *cobra.Command {
	var name, specialty, phone, email, hospital string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDoctor(ctx, engine.CreateDoctorInput{
					Name:      name,
					Specialty: optionalString(specialty),
					Phone:     optionalString(phone),
					Email:     optionalString(email),
					Hospital:  optionalString(hospital),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "doctor name")
	cmd.Flags().StringVar(&specialty, "specialty", "", "specialty")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&hospital, "hospital", "", "hospital")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func doctorListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List doctors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doctors, err := e.Repo.ListDoctors(ctx, e.Config.Tenant.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(doctors)
			})
		},
	}
	return cmd
}

func doctorDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <doctor-id>",
		Short: "Delete a doctor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid doctor id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteDoctor(ctx, e.Config.Tenant.ID, id)
			})
		},
	}
	return cmd
}

func noteCmd() *cobra.Command {
	n := &cobra.Command{
		Use:   "note",
		Short: "Manage notes and pins",
	}
	n.AddCommand(noteCreateCmd())
	n.AddCommand(noteListCmd())
	n.AddCommand(notePinCmd())
	n.AddCommand(noteForEntityCmd())
	n.AddCommand(noteDeleteCmd())
	return n
}

func noteCreateCmd() *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.CreateNote(ctx, title, content)
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringVar(&content, "content", "", "note content")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func noteListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				notes, err := e.Repo.ListNotes(ctx, e.Config.Tenant.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(notes)
			})
		},
	}
	return cmd
}

func notePinCmd() *cobra.Command {
	var noteID, entityID int64
	var entityType string
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Pin a note to an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				pin, err := e.PinNote(ctx, noteID, entityType, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(pin)
			})
		},
	}
	cmd.Flags().Int64Var(&noteID, "note", 0, "note id")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "entity type (tray, standalone_item, case, doctor)")
	cmd.Flags().Int64Var(&entityID, "entity-id", 0, "entity id")
	_ = cmd.MarkFlagRequired("note")
	_ = cmd.MarkFlagRequired("entity-type")
	_ = cmd.MarkFlagRequired("entity-id")
	return cmd
}

func noteForEntityCmd() *cobra.Command {
	var entityID int64
	var entityType string
	cmd := &cobra.Command{
		Use:   "for-entity",
		Short: "List notes pinned to an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				notes, err := e.Repo.ListNotesForEntity(ctx, e.Config.Tenant.ID, entityType, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(notes)
			})
		},
	}
	cmd.Flags().StringVar(&entityType, "entity-type", "", "entity type")
	cmd.Flags().Int64Var(&entityID, "entity-id", 0, "entity id")
	_ = cmd.MarkFlagRequired("entity-type")
	_ = cmd.MarkFlagRequired("entity-id")
	return cmd
}

func noteDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note and its pins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid note id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteNote(ctx, e.Config.Tenant.ID, id)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind string
	var entityID int64
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.ListEvents(ctx, repo.EventFilters{
					Type:       evtType,
					EntityKind: entityKind,
					EntityID:   entityID,
					Limit:      n,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind (tray, standalone_item)")
	cmd.Flags().Int64Var(&entityID, "entity-id", 0, "entity id")
	return cmd
}

func metricsCmd() *cobra.Command {
	m := &cobra.Command{Use: "metrics", Short: "Usage reports"}
	m.AddCommand(metricsUtilizationCmd())
	return m
}

func metricsUtilizationCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "utilization",
		Short: "Per-item usage derived from inventory-check history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				metrics, err := e.ItemUtilization(ctx, days)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(metrics)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Item", "SKU", "Source", "Critical", "Uses", "Total Qty", "Avg/Use", "Last Used"})
				for _, m := range metrics {
					lastUsed := ""
					if m.LastUsed != nil {
						lastUsed = *m.LastUsed
					}
					tw.AppendRow(table.Row{m.ItemName, m.SKU, m.SourceName, m.IsCritical, m.TimesUsed, m.TotalQty, m.AvgQtyPerUse, lastUsed})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "limit window to the last N days (0 = all)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(workspace, viper.GetString("tenant"))
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Trayline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := app.ResolveConfig(workspace, viper.GetString("tenant"))
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseCheckItems decodes item_id:qty_used:qty_missing triples; empty qty
// fields stay unset.
func parseCheckItems(specs []string) ([]engine.CheckItem, error) {
	items := make([]engine.CheckItem, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) == 0 || parts[0] == "" {
			return nil, fmt.Errorf("invalid item spec %q, want item_id:qty_used:qty_missing", spec)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id in %q", spec)
		}
		ci := engine.CheckItem{ItemID: id}
		if len(parts) > 1 && parts[1] != "" {
			used, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid qty_used in %q", spec)
			}
			ci.QtyUsed = &used
		}
		if len(parts) > 2 && parts[2] != "" {
			missing, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid qty_missing in %q", spec)
			}
			ci.QtyMissing = &missing
		}
		items = append(items, ci)
	}
	return items, nil
}

func parseRestockItems(specs []string) ([]engine.RestockItem, error) {
	items := make([]engine.RestockItem, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) == 0 || parts[0] == "" {
			return nil, fmt.Errorf("invalid item spec %q, want item_id:qty_restocked", spec)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id in %q", spec)
		}
		ri := engine.RestockItem{ItemID: id}
		if len(parts) > 1 && parts[1] != "" {
			qty, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid qty_restocked in %q", spec)
			}
			ri.QtyRestocked = &qty
		}
		items = append(items, ri)
	}
	return items, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

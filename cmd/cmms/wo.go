package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/report"
	"github.com/primefragrance/cmms/internal/workorder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cliPrincipal sees every work order.
var cliPrincipal = identity.Principal{Username: cliActor, Role: identity.RoleManager, Name: "CLI"}

func newWOCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wo",
		Short: "Work order commands",
	}

	cmd.AddCommand(newWOListCmd())
	cmd.AddCommand(newWOShowCmd())
	cmd.AddCommand(newWOHistoryCmd())
	return cmd
}

func workOrders(gormDB *gorm.DB) *workorder.Service {
	return workorder.NewService(workorder.NewGormStore(gormDB), workorder.Options{Logger: zap.NewNop()})
}

func newWOListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWOList(cmd, configPath, status)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (Baru, Ditugaskan, Dalam Pengerjaan, Selesai, Ditutup)")
	return cmd
}

func runWOList(cmd *cobra.Command, configPath, status string) error {
	_, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	wos, err := workOrders(gormDB).List(cmd.Context(), cliPrincipal, status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(wos) == 0 {
		fmt.Fprintln(out, "No work orders found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tASSET\tTYPE\tPRIORITY\tSTATUS\tTECHNICIAN\tCREATED")
	for _, wo := range wos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			wo.ID, wo.AssetName, wo.Type, wo.Priority, wo.Status,
			dash(wo.Technician), kpi.FormatTimestamp(wo.TimestampCreated, time.Local))
	}
	return w.Flush()
}

func newWOShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work order and its transition log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWOShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runWOShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	svc := workOrders(gormDB)
	wo, err := svc.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	events, err := svc.Events(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Work order: %s\n", wo.ID)
	fmt.Fprintf(out, "Asset:      %s (%s)\n", wo.AssetName, dash(wo.AssetType))
	fmt.Fprintf(out, "Type:       %s\n", wo.Type)
	fmt.Fprintf(out, "Priority:   %s\n", wo.Priority)
	fmt.Fprintf(out, "Status:     %s\n", wo.Status)
	fmt.Fprintf(out, "Requested:  %s by %s\n", kpi.FormatTimestamp(wo.TimestampCreated, time.Local), dash(wo.RequestedBy))
	fmt.Fprintf(out, "Technician: %s\n", dash(wo.Technician))
	if len(wo.Components) > 0 {
		fmt.Fprintf(out, "Components: %s\n", strings.Join(wo.Components, ", "))
	}
	fmt.Fprintf(out, "\n%s\n", wo.Description)
	if wo.RootCause != "" {
		fmt.Fprintf(out, "\nRoot cause: %s\n", wo.RootCause)
	}
	if wo.TimestampCompleted != nil {
		fmt.Fprintf(out, "Repair:     %s\n", kpi.RepairDuration(wo.TimestampCreated, wo.TimestampCompleted))
	}
	for _, p := range wo.PartsUsed {
		fmt.Fprintf(out, "Part:       %s x%d\n", p.Part, p.Quantity)
	}

	if len(events) > 0 {
		fmt.Fprintln(out, "\nHistory:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, ev := range events {
			at := ev.At
			fmt.Fprintf(w, "  %s\t%s\t%s → %s\t%s\n",
				kpi.FormatTimestamp(&at, time.Local), ev.Action, dash(ev.FromStatus), ev.ToStatus, ev.Actor)
		}
		w.Flush()
	}
	return nil
}

func newWOHistoryCmd() *cobra.Command {
	var (
		configPath string
		xlsxPath   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the maintenance history or export it to Excel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWOHistory(cmd, configPath, xlsxPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&xlsxPath, "output", "o", "", "write an .xlsx workbook to this path")
	return cmd
}

func runWOHistory(cmd *cobra.Command, configPath, xlsxPath string) error {
	_, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	rows, err := workOrders(gormDB).History(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if xlsxPath != "" {
		f, err := os.Create(xlsxPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", xlsxPath, err)
		}
		defer f.Close()
		if err := report.WriteHistory(f, rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d work orders to %s\n", len(rows), xlsxPath)
		return nil
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No maintenance history yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tASSET\tTYPE\tSTATUS\tTECHNICIAN\tROOT CAUSE\tDURATION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.AssetName, r.Type, r.Status, r.Technician, r.RootCause, r.Duration)
	}
	return w.Flush()
}

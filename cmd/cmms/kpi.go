package main

import (
	"fmt"

	"github.com/primefragrance/cmms/internal/analytics"
	"github.com/primefragrance/cmms/internal/workorder"
	"github.com/spf13/cobra"
)

func newKPICmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Print the maintenance dashboard",
		Long:  "Prints asset uptime, work order counts, completion rate, MTTR and PM compliance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKPI(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runKPI(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	svc := analytics.NewService(gormDB, workorder.NewGormStore(gormDB), analytics.Options{})
	ctx := cmd.Context()

	d, err := svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	k, err := svc.AssetKPIs(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Assets")
	fmt.Fprintf(out, "  Total:            %d\n", d.TotalAssets)
	fmt.Fprintf(out, "  Operational:      %d (uptime %.1f%%)\n", d.OperationalAssets, d.AssetUptime)
	fmt.Fprintf(out, "  Problem:          %d\n", k.ProblemAssets)
	fmt.Fprintln(out, "Work orders")
	fmt.Fprintf(out, "  Total:            %d\n", d.TotalWorkOrders)
	fmt.Fprintf(out, "  Active:           %d\n", d.ActiveWorkOrders)
	fmt.Fprintf(out, "  New/Active/Done/Closed: %d/%d/%d/%d\n",
		k.WOStats.New, k.WOStats.InProgress, k.WOStats.Completed, k.WOStats.Closed)
	fmt.Fprintf(out, "  Completion rate:  %.1f%%\n", d.CompletionRate)
	fmt.Fprintf(out, "  MTTR:             %.1f min\n", d.MTTRMinutes)
	fmt.Fprintf(out, "  PM compliance:    %.1f%%\n", k.PMCompliance)
	fmt.Fprintln(out, "Inventory")
	fmt.Fprintf(out, "  Items:            %d (%d low)\n", d.TotalInventoryItems, d.LowStockItems)
	return nil
}

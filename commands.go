package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tournevent/lockerlink/internal/fulfillment"
)

var originsCmd = &cobra.Command{
	Use:   "origins",
	Short: "List the warehouses registered with BOX NOW",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		names, err := a.manager.WarehouseNames(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range fulfillment.SortedWarehouseIDs(names) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, names[id])
		}
		return nil
	}),
}

var vouchersCmd = &cobra.Command{
	Use:   "vouchers",
	Short: "Manage parcel vouchers of an order",
}

var (
	createQuantity  int
	createSize      string
	createLocker    string
	createWarehouse string
	labelOutput     string
)

var vouchersCreateCmd = &cobra.Command{
	Use:   "create ORDER_ID",
	Short: "Create vouchers for an order",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ids, err := a.manager.CreateVouchers(cmd.Context(), fulfillment.ManualRequest{
			OrderID:         args[0],
			Quantity:        createQuantity,
			CompartmentSize: createSize,
			Override: fulfillment.Override{
				LockerID:    createLocker,
				WarehouseID: createWarehouse,
			},
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}),
}

var vouchersCancelCmd = &cobra.Command{
	Use:   "cancel ORDER_ID PARCEL_ID",
	Short: "Cancel one parcel of an order",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.manager.Cancel(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "parcel %s cancelled\n", args[1])
		return nil
	}),
}

var vouchersLabelCmd = &cobra.Command{
	Use:   "label PARCEL_ID",
	Short: "Download the printable voucher of a parcel",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		label, err := a.manager.Label(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		path := labelOutput
		if path == "" {
			path = args[0] + ".pdf"
		}
		if err := os.WriteFile(path, label.Data, 0o644); err != nil {
			return fmt.Errorf("writing label: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}),
}

var vouchersStatusCmd = &cobra.Command{
	Use:   "status ORDER_ID",
	Short: "Show the voucher state of an order",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		status, err := a.manager.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}),
}

func init() {
	vouchersCreateCmd.Flags().IntVarP(&createQuantity, "quantity", "q", 1, "number of vouchers")
	vouchersCreateCmd.Flags().StringVarP(&createSize, "size", "s", "medium", "compartment size (small, medium, large or 1-3)")
	vouchersCreateCmd.Flags().StringVar(&createLocker, "locker", "", "override the destination locker")
	vouchersCreateCmd.Flags().StringVar(&createWarehouse, "warehouse", "", "override the origin warehouse")
	vouchersLabelCmd.Flags().StringVarP(&labelOutput, "output", "o", "", "output file (default PARCEL_ID.pdf)")

	vouchersCmd.AddCommand(vouchersCreateCmd, vouchersCancelCmd, vouchersLabelCmd, vouchersStatusCmd)
	rootCmd.AddCommand(originsCmd, vouchersCmd)
}

// withApp wires the service for a one-shot command. Metrics go to a
// private registry since nothing scrapes them.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := initLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, err := initApp(cmd.Context(), cfg, logger, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer a.Close()

		return run(cmd, a, args)
	}
}

package main

import (
	"fmt"

	"github.com/juju/clock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jbweber/volcheck/internal/devices"
	"github.com/jbweber/volcheck/internal/output"
)

var (
	devicesRootDevice string
	devicesRescan     bool
	devicesReconcile  bool
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the host's block devices",
	Long: `List the block devices the kernel reports in /proc/partitions, the same
view a run uses to find newly attached volumes.

--rescan asks every SCSI host to rescan its bus first. --reconcile also
deletes devices that no longer answer reads, which is what a run does
after detaching a volume. The root device is never touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		inv := devices.NewInventory(afero.NewOsFs(), clock.WallClock, logger)
		inv.RootDevice = devicesRootDevice

		if devicesRescan {
			logger.WithField("hosts", inv.RescanBuses(ctx)).Debug("Rescanned SCSI hosts.")
		}

		var list output.DeviceList
		if devicesReconcile {
			list.Removed, err = inv.ReconcileDetachments(ctx)
			if err != nil {
				return fmt.Errorf("failed to reconcile devices: %w", err)
			}
		}

		snap, err := inv.Capture(ctx)
		if err != nil {
			return fmt.Errorf("failed to read block devices: %w", err)
		}
		list.Devices = snap.Paths()

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}
		result, err := formatter.FormatDevices(list)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

func init() {
	devicesCmd.Flags().StringVar(&devicesRootDevice, "root-device", devices.DefaultRootDevice, "Device holding the root filesystem")
	devicesCmd.Flags().BoolVar(&devicesRescan, "rescan", false, "Rescan SCSI buses before listing")
	devicesCmd.Flags().BoolVar(&devicesReconcile, "reconcile", false, "Delete devices that no longer answer reads")
	devicesCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, yaml, json)")
	devicesCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Don't print table headers")
}

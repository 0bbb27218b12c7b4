package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jbweber/volcheck/internal/naming"
	"github.com/jbweber/volcheck/internal/output"
)

var (
	slotsCloudFile string
	slotsAlternate bool
)

var slotsCmd = &cobra.Command{
	Use:   "slots [platform]",
	Short: "List the device slots of a platform",
	Long: `List the device names volumes are attached at on a platform, in the
order a run uses them.

Without an argument the platform is read from the cloud file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		var (
			p   naming.Platform
			err error
		)
		if len(args) == 1 {
			p, err = naming.ParsePlatform(args[0])
		} else {
			p, err = naming.ReadPlatform(afero.NewOsFs(), slotsCloudFile)
		}
		if err != nil {
			return err
		}

		slots := naming.Slots(p)
		if slotsAlternate {
			slots = naming.AlternateSlots(p)
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}
		result, err := formatter.FormatSlots(output.SlotList{Platform: string(p), Slots: slots})
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

func init() {
	slotsCmd.Flags().StringVar(&slotsCloudFile, "cloud-file", naming.DefaultCloudFile, "File holding the platform identifier")
	slotsCmd.Flags().BoolVar(&slotsAlternate, "alternate", false, "List the alternate slot range (EC2 only)")
	slotsCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, yaml, json)")
	slotsCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Don't print table headers")
}

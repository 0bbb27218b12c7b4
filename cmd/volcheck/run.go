package main

import (
	"fmt"
	"os"

	"github.com/juju/clock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/config"
	"github.com/jbweber/volcheck/internal/devices"
	"github.com/jbweber/volcheck/internal/hostfs"
	"github.com/jbweber/volcheck/internal/loader"
	"github.com/jbweber/volcheck/internal/output"
	"github.com/jbweber/volcheck/internal/scenario"
)

var (
	runFile       string
	runPlatform   string
	runSkip       []string
	runReportPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the volume lifecycle checks",
	Long: `Run every stage of the volume lifecycle check on this instance.

Without -f the built-in defaults are used. Credentials come from the
environment: RS_API_TOKEN ("<account id>:<instance token>") and RS_SERVER
for RightScale, VOLCHECK_LIBVIRT_SOCKET, VOLCHECK_LIBVIRT_DOMAIN and
VOLCHECK_LIBVIRT_POOL for libvirt.

Stages:
  single-volume/create    create, attach, format and mount a volume
  single-volume/write     write a random test file and fingerprint it
  single-volume/snapshot  snapshot the volume
  single-volume/teardown  unmount, detach and delete the volume
  restore                 restore the snapshot and compare fingerprints
  multi-volume            attach several volumes and back them up together

Output formats:
  -o table  Human-readable summary (default)
  -o yaml   Full VolumeCheck resource with status
  -o json   Full VolumeCheck resource with status`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}

		env, err := config.Load()
		if err != nil {
			return err
		}

		osFs := afero.NewOsFs()
		var vc *v1alpha1.VolumeCheck
		if runFile != "" {
			vc, err = loader.LoadFromFile(osFs, runFile, env.ApplyLibvirt, applyFlags)
			if err != nil {
				return fmt.Errorf("failed to load run definition: %w", err)
			}
		} else {
			vc = loader.Default()
			env.ApplyLibvirt(vc)
			applyFlags(vc)
		}

		platform, err := loader.ResolvePlatform(osFs, vc)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		api, closeBackend, err := openBackend(ctx, vc, env, logger)
		if err != nil {
			return err
		}
		defer closeBackend()

		inv := devices.NewInventory(osFs, clock.WallClock, logger)
		if vc.Spec.RootDevice != "" {
			inv.RootDevice = vc.Spec.RootDevice
		}

		session := scenario.NewSession(api, vc, platform, inv, hostfs.NewHost(logger), clock.WallClock, logger)
		fmt.Fprintf(os.Stderr, "Running volume checks on %s (run %s)...\n", platform, session.RunID)
		runErr := scenario.Run(ctx, session)

		if runReportPath != "" {
			if err := loader.SaveToFile(osFs, vc, runReportPath); err != nil {
				logger.WithError(err).Error("Could not write run report.")
			}
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}
		result, err := formatter.FormatCheck(vc)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)

		if runErr != nil {
			return fmt.Errorf("volume checks failed: %w", runErr)
		}
		fmt.Fprintln(os.Stderr, "✓ All volume checks passed")
		return nil
	},
}

// applyFlags overrides the run definition with command-line values.
func applyFlags(vc *v1alpha1.VolumeCheck) {
	if runPlatform != "" {
		vc.Spec.Platform = runPlatform
	}
	vc.Spec.SkipStages = append(vc.Spec.SkipStages, runSkip...)
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "VolumeCheck run definition (YAML)")
	runCmd.Flags().StringVar(&runPlatform, "platform", "", "Platform identifier, overrides the cloud file")
	runCmd.Flags().StringSliceVar(&runSkip, "skip", nil, "Stages to skip (repeatable)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Write the finished VolumeCheck resource to this file")
	runCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, yaml, json)")
	runCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Don't print table headers")
}

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/config"
	"github.com/jbweber/volcheck/internal/libvirt"
	"github.com/jbweber/volcheck/internal/storage"
)

var testConnBackend string

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test the connection to the volume backend",
	Long: `Test connectivity to the volume backend without creating anything.

For RightScale this logs in with RS_API_TOKEN and shows the instance and
its cloud. For libvirt it connects to the daemon socket, shows the daemon
version and, when the storage pool exists, its capacity.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		env, err := config.Load()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if testConnBackend == v1alpha1.BackendRightScale {
			fmt.Println("Testing RightScale connection...")
			client, err := openRightScale(ctx, env, logger)
			if err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}
			inst, err := client.Instance(ctx)
			if err != nil {
				return fmt.Errorf("failed to load instance: %w", err)
			}
			fmt.Printf("✓ Logged in to %s\n", env.Server)
			fmt.Printf("✓ Instance: %s (%s)\n", inst.Name, inst.Href)
			fmt.Printf("✓ Cloud: %s\n", inst.CloudHref)
			fmt.Println("\nConnection test successful!")
			return nil
		}
		if testConnBackend != v1alpha1.BackendLibvirt {
			return fmt.Errorf("unknown backend: %s", testConnBackend)
		}

		fmt.Println("Testing libvirt connection...")
		client, err := libvirt.ConnectWithContext(ctx, env.LibvirtSocket, connectTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		fmt.Println("✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		version, err := client.Version()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Libvirt version: %s\n", version)

		pool := env.LibvirtPool
		if pool == "" {
			pool = storage.DefaultPool
		}
		info, err := storage.NewManager(client.Libvirt()).GetPoolInfo(ctx, pool)
		if err != nil {
			fmt.Printf("- Storage pool %s does not exist yet; a run creates it\n", pool)
		} else {
			fmt.Printf("✓ Storage pool %s (%s): %s free of %s\n",
				info.Name, info.State,
				humanize.IBytes(info.Available), humanize.IBytes(info.Capacity))
		}

		fmt.Println("\nConnection test successful!")
		return nil
	},
}

func init() {
	testConnCmd.Flags().StringVar(&testConnBackend, "backend", v1alpha1.BackendRightScale, "Backend to test (rightscale, libvirt)")
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/cloud"
	"github.com/jbweber/volcheck/internal/config"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/libvirt"
	"github.com/jbweber/volcheck/internal/rightscale"
)

const connectTimeout = 5 * time.Second

// openBackend returns the remote API selected by spec.backend and a func
// that releases it.
func openBackend(ctx context.Context, vc *v1alpha1.VolumeCheck, env *config.Env, logger logrus.FieldLogger) (cloud.API, func(), error) {
	switch vc.Spec.Backend {
	case v1alpha1.BackendLibvirt:
		return openLibvirt(ctx, vc.Spec.Libvirt, logger)
	case "", v1alpha1.BackendRightScale:
		client, err := openRightScale(ctx, env, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	default:
		return nil, nil, faults.ConfigurationFault("unknown backend: %s", vc.Spec.Backend)
	}
}

func openRightScale(ctx context.Context, env *config.Env, logger logrus.FieldLogger) (*rightscale.Client, error) {
	accountID, token, err := env.Credentials()
	if err != nil {
		return nil, err
	}
	client, err := rightscale.NewClient(env.Server, accountID, token, rightscale.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create RightScale client: %w", err)
	}
	if err := client.Login(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func openLibvirt(ctx context.Context, spec *v1alpha1.LibvirtSpec, logger logrus.FieldLogger) (cloud.API, func(), error) {
	if spec == nil {
		return nil, nil, faults.ConfigurationFault("spec.libvirt is required for the libvirt backend")
	}

	client, err := libvirt.ConnectWithContext(ctx, spec.Socket, connectTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	closeFn := func() {
		if closeErr := client.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
		}
	}

	backend, err := libvirt.Open(ctx, client.Libvirt(), libvirt.Config{
		Domain: spec.Domain,
		Pool:   spec.Pool,
	}, logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return backend, closeFn, nil
}

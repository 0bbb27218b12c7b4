// Package config reads credentials and endpoints from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/faults"
)

// Env holds the settings volcheck takes from the environment rather than
// the run definition.
type Env struct {
	// APIToken is the RightScale instance credential, "<account id>:<instance token>".
	APIToken string `envconfig:"RS_API_TOKEN"`
	// Server is the RightScale API host.
	Server string `envconfig:"RS_SERVER"`

	LibvirtSocket string `envconfig:"VOLCHECK_LIBVIRT_SOCKET"`
	LibvirtDomain string `envconfig:"VOLCHECK_LIBVIRT_DOMAIN"`
	LibvirtPool   string `envconfig:"VOLCHECK_LIBVIRT_POOL"`
}

// Load reads Env from the process environment.
func Load() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &env, nil
}

// Credentials splits APIToken into the account id and the instance token.
func (e *Env) Credentials() (accountID, instanceToken string, err error) {
	if e.Server == "" {
		return "", "", faults.ConfigurationFault("RS_SERVER is not set")
	}
	if e.APIToken == "" {
		return "", "", faults.ConfigurationFault("RS_API_TOKEN is not set")
	}
	accountID, instanceToken, ok := strings.Cut(e.APIToken, ":")
	if !ok || accountID == "" || instanceToken == "" {
		return "", "", faults.ConfigurationFault("RS_API_TOKEN must have the form <account id>:<instance token>")
	}
	return accountID, instanceToken, nil
}

// ApplyLibvirt fills libvirt settings the run definition left empty. Values
// in the definition win over the environment.
func (e *Env) ApplyLibvirt(vc *v1alpha1.VolumeCheck) {
	if e.LibvirtSocket == "" && e.LibvirtDomain == "" && e.LibvirtPool == "" {
		return
	}
	if vc.Spec.Libvirt == nil {
		vc.Spec.Libvirt = &v1alpha1.LibvirtSpec{}
	}
	lv := vc.Spec.Libvirt
	if lv.Socket == "" {
		lv.Socket = e.LibvirtSocket
	}
	if lv.Domain == "" {
		lv.Domain = e.LibvirtDomain
	}
	if lv.Pool == "" {
		lv.Pool = e.LibvirtPool
	}
}

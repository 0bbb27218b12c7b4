package libvirt

import (
	"fmt"
	"path"
	"strings"
)

const hrefRoot = "/libvirt"

func instanceHref(domain string) string {
	return path.Join(hrefRoot, "domains", domain)
}

func attachmentHref(domain, target string) string {
	return path.Join(hrefRoot, "domains", domain, "disks", target)
}

func volumeHref(pool, volume string) string {
	return path.Join(hrefRoot, "pools", pool, "volumes", volume)
}

func snapshotHref(pool, volume string) string {
	return path.Join(hrefRoot, "pools", pool, "snapshots", volume)
}

func backupHref(id string) string {
	return path.Join(hrefRoot, "backups", id)
}

func datacenterHref(pool string) string {
	return path.Join(hrefRoot, "pools", pool)
}

// splitHref checks href against a pattern like "/libvirt/pools/*/volumes/*"
// and returns the wildcard segments.
func splitHref(href, pattern string) ([]string, error) {
	got := strings.Split(strings.Trim(href, "/"), "/")
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(got) != len(want) {
		return nil, fmt.Errorf("malformed href %q", href)
	}

	var vars []string
	for i, seg := range want {
		switch {
		case seg == "*":
			if got[i] == "" {
				return nil, fmt.Errorf("malformed href %q", href)
			}
			vars = append(vars, got[i])
		case seg != got[i]:
			return nil, fmt.Errorf("href %q is not a %s", href, pattern)
		}
	}
	return vars, nil
}

// parseVolumeHref returns the pool and volume names of a volume href.
func parseVolumeHref(href string) (pool, volume string, err error) {
	vars, err := splitHref(href, "/libvirt/pools/*/volumes/*")
	if err != nil {
		return "", "", err
	}
	return vars[0], vars[1], nil
}

func parseSnapshotHref(href string) (pool, volume string, err error) {
	vars, err := splitHref(href, "/libvirt/pools/*/snapshots/*")
	if err != nil {
		return "", "", err
	}
	return vars[0], vars[1], nil
}

func parseAttachmentHref(href string) (domain, target string, err error) {
	vars, err := splitHref(href, "/libvirt/domains/*/disks/*")
	if err != nil {
		return "", "", err
	}
	return vars[0], vars[1], nil
}

func parseBackupHref(href string) (string, error) {
	vars, err := splitHref(href, "/libvirt/backups/*")
	if err != nil {
		return "", err
	}
	return vars[0], nil
}

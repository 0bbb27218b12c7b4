// Package metadata keeps the libvirt backend's resource ledger in the
// domain's custom XML metadata. Libvirt storage volumes carry no free-form
// attributes, so the names, descriptions and parent links the remote API
// contract needs are recorded here, keyed by pool volume name. The ledger
// persists with the domain, so leftovers of an aborted run stay discoverable.
package metadata

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/digitalocean/go-libvirt"
	"gopkg.in/yaml.v3"
)

const (
	// MetadataNamespace is the XML namespace for volcheck metadata.
	MetadataNamespace = "http://volcheck.cofront.xyz/v1alpha1"

	// MetadataKey is the key used to store/retrieve metadata from libvirt.
	MetadataKey = "volcheck-ledger"
)

// LibvirtClient is the subset of libvirt operations the ledger needs.
// *libvirt.Libvirt satisfies it.
type LibvirtClient interface {
	DomainSetMetadata(Dom libvirt.Domain, Type int32, Metadata libvirt.OptString, Key libvirt.OptString, Uri libvirt.OptString, Flags libvirt.DomainModificationImpact) error
	DomainGetMetadata(Dom libvirt.Domain, Type int32, Uri libvirt.OptString, Flags libvirt.DomainModificationImpact) (string, error)
}

// VolumeRecord describes a volume created through the backend.
type VolumeRecord struct {
	Name               string `yaml:"name"`
	Description        string `yaml:"description,omitempty"`
	ParentSnapshotHref string `yaml:"parentSnapshotHref,omitempty"`
}

// SnapshotRecord describes a snapshot clone.
type SnapshotRecord struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description,omitempty"`
	ParentVolumeHref string `yaml:"parentVolumeHref"`
}

// BackupRecord describes a consistency-group backup and its member clones.
type BackupRecord struct {
	Name        string   `yaml:"name"`
	Lineage     string   `yaml:"lineage"`
	Description string   `yaml:"description,omitempty"`
	Members     []string `yaml:"members"`
}

// Ledger maps pool volume names (and backup ids) to their records.
type Ledger struct {
	Volumes   map[string]VolumeRecord   `yaml:"volumes,omitempty"`
	Snapshots map[string]SnapshotRecord `yaml:"snapshots,omitempty"`
	Backups   map[string]BackupRecord   `yaml:"backups,omitempty"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		Volumes:   map[string]VolumeRecord{},
		Snapshots: map[string]SnapshotRecord{},
		Backups:   map[string]BackupRecord{},
	}
}

// Empty reports whether the ledger tracks nothing.
func (l *Ledger) Empty() bool {
	return len(l.Volumes) == 0 && len(l.Snapshots) == 0 && len(l.Backups) == 0
}

// ledgerXML wraps the YAML ledger so it can live in domain metadata. YAML
// keeps it readable in `virsh dumpxml`.
type ledgerXML struct {
	XMLName    xml.Name `xml:"ledger"`
	Xmlns      string   `xml:"xmlns,attr"`
	LedgerYAML string   `xml:",chardata"`
}

// Store saves the ledger to the domain's metadata, replacing any previous one.
func Store(l LibvirtClient, domain libvirt.Domain, ledger *Ledger) error {
	if ledger == nil {
		return fmt.Errorf("ledger is nil")
	}

	yamlData, err := yaml.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger to YAML: %w", err)
	}

	xmlData, err := xml.MarshalIndent(ledgerXML{
		Xmlns:      MetadataNamespace,
		LedgerYAML: string(yamlData),
	}, "  ", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata to XML: %w", err)
	}

	err = l.DomainSetMetadata(
		domain,
		int32(libvirt.DomainMetadataElement),
		libvirt.OptString{string(xmlData)},
		libvirt.OptString{MetadataKey},
		libvirt.OptString{MetadataNamespace},
		libvirt.DomainAffectCurrent,
	)
	if err != nil {
		return fmt.Errorf("failed to set libvirt domain metadata: %w", err)
	}

	return nil
}

// Load reads the ledger from the domain's metadata. A domain without a
// ledger yields an empty one.
func Load(l LibvirtClient, domain libvirt.Domain) (*Ledger, error) {
	xmlStr, err := l.DomainGetMetadata(
		domain,
		int32(libvirt.DomainMetadataElement),
		libvirt.OptString{MetadataNamespace},
		libvirt.DomainAffectCurrent,
	)
	if err != nil {
		if isNoMetadata(err) {
			return NewLedger(), nil
		}
		return nil, fmt.Errorf("failed to get libvirt domain metadata: %w", err)
	}

	var wrapped ledgerXML
	if err := xml.Unmarshal([]byte(xmlStr), &wrapped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata XML: %w", err)
	}

	ledger := NewLedger()
	if err := yaml.Unmarshal([]byte(wrapped.LedgerYAML), ledger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger from YAML: %w", err)
	}
	// yaml leaves omitted maps nil
	if ledger.Volumes == nil {
		ledger.Volumes = map[string]VolumeRecord{}
	}
	if ledger.Snapshots == nil {
		ledger.Snapshots = map[string]SnapshotRecord{}
	}
	if ledger.Backups == nil {
		ledger.Backups = map[string]BackupRecord{}
	}

	return ledger, nil
}

// Delete removes the ledger from the domain.
func Delete(l LibvirtClient, domain libvirt.Domain) error {
	err := l.DomainSetMetadata(
		domain,
		int32(libvirt.DomainMetadataElement),
		libvirt.OptString{},
		libvirt.OptString{MetadataKey},
		libvirt.OptString{MetadataNamespace},
		libvirt.DomainAffectCurrent,
	)
	if err != nil && !isNoMetadata(err) {
		return fmt.Errorf("failed to delete libvirt domain metadata: %w", err)
	}
	return nil
}

func isNoMetadata(err error) bool {
	var lerr libvirt.Error
	if errors.As(err, &lerr) {
		return lerr.Code == uint32(libvirt.ErrNoDomainMetadata)
	}
	return false
}

package loader

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/faults"
	"github.com/jbweber/volcheck/internal/naming"
)

func TestLoadFromYAML_Defaults(t *testing.T) {
	yaml := `
apiVersion: volcheck.cofront.xyz/v1alpha1
kind: VolumeCheck
metadata:
  name: nightly
spec: {}
`

	vc, err := LoadFromYAML([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}

	if vc.Name != "nightly" {
		t.Errorf("Expected name 'nightly', got %s", vc.Name)
	}
	if vc.Spec.Backend != v1alpha1.BackendRightScale {
		t.Errorf("Expected default backend rightscale, got %s", vc.Spec.Backend)
	}
	if vc.Spec.VolumeName != "QTEST VOLUME" {
		t.Errorf("Expected default volume name, got %q", vc.Spec.VolumeName)
	}
	if vc.Spec.MountPoint != "/mnt/storage" {
		t.Errorf("Expected default mount point, got %q", vc.Spec.MountPoint)
	}
	if vc.Spec.FSType != "ext3" {
		t.Errorf("Expected default fsType ext3, got %q", vc.Spec.FSType)
	}
	if vc.Spec.StageTimeoutSeconds != 900 || vc.Spec.PollIntervalSeconds != 2 {
		t.Errorf("Expected 900s/2s timing, got %d/%d", vc.Spec.StageTimeoutSeconds, vc.Spec.PollIntervalSeconds)
	}
	if vc.Spec.MultiVolumeCount != 2 {
		t.Errorf("Expected 2 multi volumes, got %d", vc.Spec.MultiVolumeCount)
	}
	if vc.Spec.CloudFile != naming.DefaultCloudFile {
		t.Errorf("Expected default cloud file, got %q", vc.Spec.CloudFile)
	}
	if vc.Status.Phase != v1alpha1.RunPhasePending {
		t.Errorf("Expected Pending phase, got %s", vc.Status.Phase)
	}
}

func TestLoadFromYAML_Explicit(t *testing.T) {
	yaml := `
apiVersion: volcheck.cofront.xyz/v1alpha1
kind: VolumeCheck
metadata:
  name: kvm
spec:
  backend: libvirt
  volumeSizeGB: 4
  fsType: xfs
  testFileMiB: 16
  skipStages: [multi-volume]
  libvirt:
    domain: worker-1
    pool: scratch
`

	vc, err := LoadFromYAML([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}
	if vc.Spec.Libvirt.Domain != "worker-1" || vc.Spec.Libvirt.Pool != "scratch" {
		t.Errorf("Unexpected libvirt spec %+v", vc.Spec.Libvirt)
	}
	if vc.Spec.VolumeSizeGB != 4 || vc.Spec.FSType != "xfs" || vc.Spec.TestFileMiB != 16 {
		t.Errorf("Explicit values overwritten: %+v", vc.Spec)
	}
	if !vc.Skips("multi-volume") {
		t.Error("Expected multi-volume to be skipped")
	}
}

func TestLoadFromYAML_Options(t *testing.T) {
	yaml := `
apiVersion: volcheck.cofront.xyz/v1alpha1
kind: VolumeCheck
spec:
  backend: libvirt
`

	if _, err := LoadFromYAML([]byte(yaml)); err == nil {
		t.Fatal("expected libvirt backend without a domain to fail")
	}

	withDomain := func(vc *v1alpha1.VolumeCheck) {
		vc.Spec.Libvirt = &v1alpha1.LibvirtSpec{Domain: "from-env"}
	}
	vc, err := LoadFromYAML([]byte(yaml), withDomain)
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}
	if vc.Spec.Libvirt.Domain != "from-env" {
		t.Errorf("domain = %q, want from-env", vc.Spec.Libvirt.Domain)
	}
}

func TestLoadFromYAML_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		wantConfig bool
	}{
		{
			name: "missing apiVersion",
			yaml: "kind: VolumeCheck\nspec: {}\n",
		},
		{
			name: "missing kind",
			yaml: "apiVersion: volcheck.cofront.xyz/v1alpha1\nspec: {}\n",
		},
		{
			name: "wrong apiVersion",
			yaml: "apiVersion: foundry.cofront.xyz/v1alpha1\nkind: VolumeCheck\n",
		},
		{
			name: "wrong kind",
			yaml: "apiVersion: volcheck.cofront.xyz/v1alpha1\nkind: VirtualMachine\n",
		},
		{
			name: "malformed YAML",
			yaml: "apiVersion: [",
		},
		{
			name:       "unknown backend",
			yaml:       "apiVersion: volcheck.cofront.xyz/v1alpha1\nkind: VolumeCheck\nspec:\n  backend: ec2\n",
			wantConfig: true,
		},
		{
			name:       "libvirt without domain",
			yaml:       "apiVersion: volcheck.cofront.xyz/v1alpha1\nkind: VolumeCheck\nspec:\n  backend: libvirt\n",
			wantConfig: true,
		},
		{
			name:       "unknown platform",
			yaml:       "apiVersion: volcheck.cofront.xyz/v1alpha1\nkind: VolumeCheck\nspec:\n  platform: mainframe\n",
			wantConfig: true,
		},
		{
			name:       "negative size",
			yaml:       "apiVersion: volcheck.cofront.xyz/v1alpha1\nkind: VolumeCheck\nspec:\n  volumeSizeGB: -1\n",
			wantConfig: true,
		},
		{
			name:       "poll longer than stage",
			yaml:       "apiVersion: volcheck.cofront.xyz/v1alpha1\nkind: VolumeCheck\nspec:\n  stageTimeoutSeconds: 5\n  pollIntervalSeconds: 10\n",
			wantConfig: true,
		},
		{
			name:       "root mount point",
			yaml:       "apiVersion: volcheck.cofront.xyz/v1alpha1\nkind: VolumeCheck\nspec:\n  mountPoint: /\n",
			wantConfig: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromYAML([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.wantConfig && !faults.IsConfigurationFault(err) {
				t.Errorf("Expected ConfigurationFault, got %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	if _, err := LoadFromFile(fs, "/etc/volcheck/missing.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}

	vc := Default()
	vc.Spec.VolumeSizeGB = 20
	if err := SaveToFile(fs, vc, "/etc/volcheck/run.yaml"); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(fs, "/etc/volcheck/run.yaml")
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Spec.VolumeSizeGB != 20 {
		t.Errorf("Expected size 20, got %d", loaded.Spec.VolumeSizeGB)
	}
	if loaded.UID != vc.UID {
		t.Errorf("Expected UID %s, got %s", vc.UID, loaded.UID)
	}
}

func TestResolvePlatform(t *testing.T) {
	tests := []struct {
		name      string
		cloudFile string
		spec      v1alpha1.VolumeCheckSpec
		want      naming.Platform
		wantSize  int
		wantErr   bool
	}{
		{
			name:      "from cloud file",
			cloudFile: "ec2\n",
			want:      naming.PlatformEC2,
			wantSize:  10,
		},
		{
			name:      "rackspace minimum size",
			cloudFile: "rackspace-ng",
			want:      naming.PlatformRackspaceNG,
			wantSize:  100,
		},
		{
			name:      "override wins",
			cloudFile: "ec2",
			spec:      v1alpha1.VolumeCheckSpec{Platform: "vsphere", VolumeSizeGB: 50},
			want:      naming.PlatformVSphere,
			wantSize:  50,
		},
		{
			name:     "libvirt backend implies platform",
			spec:     v1alpha1.VolumeCheckSpec{Backend: v1alpha1.BackendLibvirt},
			want:     naming.PlatformLibvirt,
			wantSize: 10,
		},
		{
			name:      "unknown cloud",
			cloudFile: "softlayer",
			wantErr:   true,
		},
		{
			name:    "missing cloud file",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.cloudFile != "" {
				if err := afero.WriteFile(fs, naming.DefaultCloudFile, []byte(tt.cloudFile), 0644); err != nil {
					t.Fatal(err)
				}
			}
			vc := &v1alpha1.VolumeCheck{Spec: tt.spec}
			applyDefaults(vc)

			got, err := ResolvePlatform(fs, vc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolvePlatform() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !faults.IsConfigurationFault(err) {
					t.Errorf("Expected ConfigurationFault, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ResolvePlatform() = %s, want %s", got, tt.want)
			}
			if vc.Status.Platform != string(tt.want) {
				t.Errorf("Status.Platform = %s", vc.Status.Platform)
			}
			if vc.Spec.VolumeSizeGB != tt.wantSize {
				t.Errorf("VolumeSizeGB = %d, want %d", vc.Spec.VolumeSizeGB, tt.wantSize)
			}
		})
	}
}

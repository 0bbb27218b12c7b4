package rightscale

type indexParams struct {
	Filters []string `url:"filter[],omitempty"`
}

type volumeParams struct {
	Name               string `url:"volume[name]"`
	Description        string `url:"volume[description],omitempty"`
	Size               int    `url:"volume[size],omitempty"`
	DatacenterHref     string `url:"volume[datacenter_href],omitempty"`
	VolumeTypeHref     string `url:"volume[volume_type_href],omitempty"`
	ParentSnapshotHref string `url:"volume[parent_volume_snapshot_href],omitempty"`
}

type attachmentParams struct {
	Device       string `url:"volume_attachment[device]"`
	InstanceHref string `url:"volume_attachment[instance_href]"`
	VolumeHref   string `url:"volume_attachment[volume_href]"`
}

type snapshotParams struct {
	Name             string `url:"volume_snapshot[name]"`
	Description      string `url:"volume_snapshot[description],omitempty"`
	ParentVolumeHref string `url:"volume_snapshot[parent_volume_href]"`
}

type backupParams struct {
	Name            string   `url:"backup[name]"`
	Lineage         string   `url:"backup[lineage]"`
	Description     string   `url:"backup[description],omitempty"`
	AttachmentHrefs []string `url:"backup[volume_attachment_hrefs][]"`
}

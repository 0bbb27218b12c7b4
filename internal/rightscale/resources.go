package rightscale

import (
	"strconv"

	"github.com/jbweber/volcheck/internal/cloud"
)

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type links []link

func (l links) href(rel string) string {
	for _, x := range l {
		if x.Rel == rel {
			return x.Href
		}
	}
	return ""
}

type instanceResource struct {
	Name  string `json:"name"`
	Links links  `json:"links"`
}

func (r *instanceResource) toCloud() *cloud.Instance {
	inst := &cloud.Instance{
		Href:      r.Links.href("self"),
		Name:      r.Name,
		CloudHref: r.Links.href("cloud"),
	}
	for _, l := range r.Links {
		inst.Links = append(inst.Links, cloud.Link{Rel: l.Rel, Href: l.Href})
	}
	return inst
}

// sizeField accepts a size sent either as a number or a numeric string.
type sizeField int

func (s *sizeField) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(str); err == nil {
		str = unquoted
	}
	if str == "" {
		*s = 0
		return nil
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return err
	}
	*s = sizeField(n)
	return nil
}

type volumeTypeResource struct {
	Name        string    `json:"name"`
	ResourceUID string    `json:"resource_uid"`
	Size        sizeField `json:"size"`
	Links       links     `json:"links"`
}

func (r *volumeTypeResource) toCloud() cloud.VolumeType {
	return cloud.VolumeType{
		Href:        r.Links.href("self"),
		Name:        r.Name,
		ResourceUID: r.ResourceUID,
		SizeGB:      int(r.Size),
	}
}

type volumeResource struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Size        sizeField `json:"size"`
	ResourceUID string    `json:"resource_uid"`
	Links       links     `json:"links"`
}

func (r *volumeResource) toCloud() *cloud.Volume {
	return &cloud.Volume{
		Href:               r.Links.href("self"),
		Name:               r.Name,
		Description:        r.Description,
		Status:             r.Status,
		SizeGB:             int(r.Size),
		ResourceUID:        r.ResourceUID,
		ParentSnapshotHref: r.Links.href("parent_volume_snapshot"),
	}
}

type attachmentResource struct {
	State  string `json:"state"`
	Device string `json:"device"`
	Links  links  `json:"links"`
}

func (r *attachmentResource) toCloud() *cloud.Attachment {
	return &cloud.Attachment{
		Href:         r.Links.href("self"),
		State:        r.State,
		Device:       r.Device,
		VolumeHref:   r.Links.href("volume"),
		InstanceHref: r.Links.href("instance"),
	}
}

type snapshotResource struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	State       string `json:"state"`
	Links       links  `json:"links"`
}

func (r *snapshotResource) toCloud() *cloud.Snapshot {
	return &cloud.Snapshot{
		Href:             r.Links.href("self"),
		Name:             r.Name,
		Description:      r.Description,
		State:            r.State,
		ParentVolumeHref: r.Links.href("parent_volume"),
	}
}

type backupResource struct {
	Name        string `json:"name"`
	Lineage     string `json:"lineage"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Links       links  `json:"links"`
}

func (r *backupResource) toCloud() *cloud.Backup {
	return &cloud.Backup{
		Href:        r.Links.href("self"),
		Name:        r.Name,
		Lineage:     r.Lineage,
		Description: r.Description,
		Completed:   r.Completed,
	}
}

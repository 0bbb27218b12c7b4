// Package rightscale implements cloud.API over the RightScale API 1.5.
//
// The client logs in with an instance token (the credentials a RightScale
// managed server is handed at boot), keeps the session cookie, and addresses
// every volume resource under the instance's cloud:
//
//	/api/clouds/<id>/volumes
//	/api/clouds/<id>/volume_attachments
//	/api/clouds/<id>/volume_snapshots
//	/api/clouds/<id>/volume_types
//	/api/backups
//
// Parameters are form encoded (volume[name]=...), index filters are sent as
// filter[]=field==value, and creates answer 201 with the new resource's href
// in the Location header.
package rightscale

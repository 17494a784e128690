// Package acl models the access-control entries of edge filer shares and NFS
// exports and converts them to and from management API objects.
package acl

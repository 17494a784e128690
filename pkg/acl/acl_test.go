package acl_test

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgefiler/filer_sdk_go/pkg/acl"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

func TestUserGroupEntryServerObject(t *testing.T) {
	tests := []struct {
		entry acl.UserGroupEntry
		want  gateway.Object
		str   string
	}{
		{
			entry: acl.UserGroupEntry{PrincipalType: acl.LocalUser, Name: "alice"},
			want:  gateway.Object{"_classname": "LocalUser", "ref": "#config#auth#users#alice"},
			str:   `\alice`,
		},
		{
			entry: acl.UserGroupEntry{PrincipalType: acl.LocalGroup, Name: "Administrators"},
			want:  gateway.Object{"_classname": "LocalGroup", "ref": "#config#auth#groups#Administrators"},
			str:   `\Administrators`,
		},
		{
			entry: acl.UserGroupEntry{PrincipalType: acl.DomainUser, Name: "CORP\\bob"},
			want:  gateway.Object{"_classname": "DomainUser", "name": "CORP\\bob"},
			str:   "CORP\\bob",
		},
		{
			entry: acl.UserGroupEntry{PrincipalType: acl.DomainGroup, Name: "Domain Admins"},
			want:  gateway.Object{"_classname": "DomainGroup", "name": "Domain Admins"},
			str:   "Domain Admins",
		},
	}
	for _, tc := range tests {
		t.Run(string(tc.entry.PrincipalType), func(t *testing.T) {
			require.NoError(t, tc.entry.Validate())
			obj := tc.entry.ServerObject()
			assert.Equal(t, tc.want, obj)
			assert.Equal(t, tc.str, tc.entry.String())

			parsed, err := acl.UserGroupEntryFromServerObject(obj)
			require.NoError(t, err)
			assert.Equal(t, tc.entry, parsed)
		})
	}
}

func TestUserGroupEntryValidation(t *testing.T) {
	assert.Error(t, acl.UserGroupEntry{PrincipalType: "Robot", Name: "r2"}.Validate())
	assert.Error(t, acl.UserGroupEntry{PrincipalType: acl.LocalUser}.Validate())

	_, err := acl.UserGroupEntryFromServerObject(gateway.Object{"_classname": "Everyone"})
	assert.Error(t, err)
}

func TestShareAccessControlEntry(t *testing.T) {
	entry := acl.ShareAccessControlEntry{PrincipalType: acl.LocalGroup, Name: "Everyone", Permission: acl.ReadOnly}
	require.NoError(t, entry.Validate())

	obj := entry.ServerObject()
	assert.Equal(t, gateway.Object{
		"_classname": "ShareACLRule",
		"principal2": gateway.Object{"_classname": "LocalGroup", "ref": "#config#auth#groups#Everyone"},
		"permissions": gateway.Object{
			"_classname":        "FileAccessPermissions",
			"allowedFileAccess": "ReadOnly",
		},
	}, obj)
	assert.Equal(t, `\Everyone:ReadOnly`, entry.String())

	wire := gateway.Object{
		"_classname": "ShareACLRule",
		"principal2": map[string]any{"_classname": "DomainUser", "name": "bob"},
		"permissions": map[string]any{
			"_classname":        "FileAccessPermissions",
			"allowedFileAccess": "ReadWrite",
		},
	}
	parsed, err := acl.ShareAccessControlEntryFromServerObject(wire)
	require.NoError(t, err)
	assert.Equal(t, acl.ShareAccessControlEntry{PrincipalType: acl.DomainUser, Name: "bob", Permission: acl.ReadWrite}, parsed)

	wire["permissions"] = map[string]any{"allowedFileAccess": "Execute"}
	_, err = acl.ShareAccessControlEntryFromServerObject(wire)
	assert.Error(t, err)
}

func TestNFSv3AccessControlEntry(t *testing.T) {
	entry := acl.NFSv3AccessControlEntry{Address: "10.0.0.0", Netmask: "255.255.255.0", Permission: acl.ReadWrite}
	require.NoError(t, entry.Validate())
	assert.Equal(t, gateway.Object{
		"address":      "10.0.0.0",
		"netmask":      "255.255.255.0",
		"accessLevel":  "ReadWrite",
		"noRootSquash": false,
	}, entry.ServerObject())

	parsed, err := acl.NFSv3AccessControlEntryFromServerObject(gateway.Object{
		"address":      "nfs-client.example.com",
		"netmask":      "255.255.255.255",
		"accessLevel":  "None",
		"noRootSquash": false,
	})
	require.NoError(t, err)
	assert.Equal(t, acl.NFSv3AccessControlEntry{Address: "nfs-client.example.com", Netmask: "255.255.255.255", Permission: acl.None}, parsed)

	assert.Error(t, acl.NFSv3AccessControlEntry{Address: "10.0.0.1", Netmask: "not-a-mask", Permission: acl.ReadOnly}.Validate())
	assert.Error(t, acl.NFSv3AccessControlEntry{Address: "10.0.0.1", Netmask: "255.0.0.0", Permission: "Full"}.Validate())
}

func TestValidateEntries(t *testing.T) {
	entries := []acl.ShareAccessControlEntry{
		{PrincipalType: acl.LocalUser, Name: "alice", Permission: acl.ReadWrite},
		{PrincipalType: "Robot", Name: "r2", Permission: acl.ReadWrite},
		{PrincipalType: acl.DomainGroup, Name: "", Permission: acl.ReadOnly},
	}

	err := acl.ValidateEntries(entries)
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, merr.Errors[0].Error(), "entry 1")
	assert.Contains(t, merr.Errors[1].Error(), "entry 2")

	assert.NoError(t, acl.ValidateEntries(entries[:1]))

	_, err = acl.ServerObjects(entries)
	assert.Error(t, err)
	objs, err := acl.ServerObjects(entries[:1])
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "ShareACLRule", objs[0]["_classname"])
}

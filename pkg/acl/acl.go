package acl

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/hashicorp/go-multierror"

	"github.com/edgefiler/filer_sdk_go/internal/filerapi"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

// PrincipalType identifies the kind of user or group an entry refers to.
type PrincipalType string

const (
	LocalUser   PrincipalType = "LocalUser"
	LocalGroup  PrincipalType = "LocalGroup"
	DomainUser  PrincipalType = "DomainUser"
	DomainGroup PrincipalType = "DomainGroup"
)

// Local reports whether the principal is defined on the appliance itself.
func (p PrincipalType) Local() bool {
	return p == LocalUser || p == LocalGroup
}

// FileAccessMode is the access granted by an entry.
type FileAccessMode string

const (
	ReadWrite FileAccessMode = "ReadWrite"
	ReadOnly  FileAccessMode = "ReadOnly"
	None      FileAccessMode = "None"
)

const (
	shareRuleClass   = "ShareACLRule"
	permissionsClass = "FileAccessPermissions"
	usersRef         = "#config#auth#users#"
	groupsRef        = "#config#auth#groups#"
)

var (
	principalTypes  = []any{LocalUser, LocalGroup, DomainUser, DomainGroup}
	fileAccessModes = []any{ReadWrite, ReadOnly, None}
)

// UserGroupEntry names a user or group.
type UserGroupEntry struct {
	PrincipalType PrincipalType `json:"principalType"`
	Name          string        `json:"name"`
}

// Validate checks the principal type and name.
func (e UserGroupEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.PrincipalType, validation.Required, validation.In(principalTypes...)),
		validation.Field(&e.Name, validation.Required),
	)
}

// ServerObject returns the management API representation of e. Local
// principals are referenced by configuration path, domain principals by name.
func (e UserGroupEntry) ServerObject() gateway.Object {
	obj := gateway.Object{"_classname": string(e.PrincipalType)}
	switch e.PrincipalType {
	case LocalUser:
		obj["ref"] = usersRef + e.Name
	case LocalGroup:
		obj["ref"] = groupsRef + e.Name
	default:
		obj["name"] = e.Name
	}
	return obj
}

// String renders local principals as \name.
func (e UserGroupEntry) String() string {
	if e.PrincipalType.Local() {
		return `\` + e.Name
	}
	return e.Name
}

type serverPrincipal struct {
	Classname PrincipalType `json:"_classname"`
	Ref       string        `json:"ref"`
	Name      string        `json:"name"`
}

// UserGroupEntryFromServerObject parses a principal returned by the
// management API.
func UserGroupEntryFromServerObject(obj gateway.Object) (UserGroupEntry, error) {
	var p serverPrincipal
	if err := filerapi.Decode(obj, &p); err != nil {
		return UserGroupEntry{}, fmt.Errorf("acl: principal: %w", err)
	}
	e := UserGroupEntry{PrincipalType: p.Classname, Name: p.Name}
	if p.Classname.Local() {
		e.Name = p.Ref[strings.LastIndex(p.Ref, "#")+1:]
	}
	if err := e.Validate(); err != nil {
		return UserGroupEntry{}, fmt.Errorf("acl: principal: %w", err)
	}
	return e, nil
}

// RemoveShareAccessControlEntry identifies a share entry to remove.
type RemoveShareAccessControlEntry = UserGroupEntry

// ShareAccessControlEntry grants a principal access to a share.
type ShareAccessControlEntry struct {
	PrincipalType PrincipalType  `json:"principalType"`
	Name          string         `json:"name"`
	Permission    FileAccessMode `json:"permission"`
}

func (e ShareAccessControlEntry) principal() UserGroupEntry {
	return UserGroupEntry{PrincipalType: e.PrincipalType, Name: e.Name}
}

func (e ShareAccessControlEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.PrincipalType, validation.Required, validation.In(principalTypes...)),
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Permission, validation.Required, validation.In(fileAccessModes...)),
	)
}

// ServerObject returns the ShareACLRule representation of e.
func (e ShareAccessControlEntry) ServerObject() gateway.Object {
	return gateway.Object{
		"_classname": shareRuleClass,
		"principal2": e.principal().ServerObject(),
		"permissions": gateway.Object{
			"_classname":        permissionsClass,
			"allowedFileAccess": string(e.Permission),
		},
	}
}

func (e ShareAccessControlEntry) String() string {
	return fmt.Sprintf("%s:%s", e.principal(), e.Permission)
}

// ShareAccessControlEntryFromServerObject parses a ShareACLRule.
func ShareAccessControlEntryFromServerObject(obj gateway.Object) (ShareAccessControlEntry, error) {
	var rule struct {
		Principal2  gateway.Object `json:"principal2"`
		Permissions struct {
			AllowedFileAccess FileAccessMode `json:"allowedFileAccess"`
		} `json:"permissions"`
	}
	if err := filerapi.Decode(obj, &rule); err != nil {
		return ShareAccessControlEntry{}, fmt.Errorf("acl: share rule: %w", err)
	}
	principal, err := UserGroupEntryFromServerObject(rule.Principal2)
	if err != nil {
		return ShareAccessControlEntry{}, err
	}
	e := ShareAccessControlEntry{
		PrincipalType: principal.PrincipalType,
		Name:          principal.Name,
		Permission:    rule.Permissions.AllowedFileAccess,
	}
	if err := e.Validate(); err != nil {
		return ShareAccessControlEntry{}, fmt.Errorf("acl: share rule: %w", err)
	}
	return e, nil
}

// NFSv3AccessControlEntry grants a client host or subnet access to an NFS
// export. Root squashing is always enabled.
type NFSv3AccessControlEntry struct {
	Address    string         `json:"address"`
	Netmask    string         `json:"netmask"`
	Permission FileAccessMode `json:"accessLevel"`
}

func (e NFSv3AccessControlEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Address, validation.Required, is.Host),
		validation.Field(&e.Netmask, validation.Required, is.IPv4),
		validation.Field(&e.Permission, validation.Required, validation.In(fileAccessModes...)),
	)
}

func (e NFSv3AccessControlEntry) ServerObject() gateway.Object {
	return gateway.Object{
		"address":      e.Address,
		"netmask":      e.Netmask,
		"accessLevel":  string(e.Permission),
		"noRootSquash": false,
	}
}

func (e NFSv3AccessControlEntry) String() string {
	return fmt.Sprintf("%s/%s:%s", e.Address, e.Netmask, e.Permission)
}

// NFSv3AccessControlEntryFromServerObject parses an NFS export rule.
func NFSv3AccessControlEntryFromServerObject(obj gateway.Object) (NFSv3AccessControlEntry, error) {
	var e NFSv3AccessControlEntry
	if err := filerapi.Decode(obj, &e); err != nil {
		return NFSv3AccessControlEntry{}, fmt.Errorf("acl: nfs rule: %w", err)
	}
	if err := e.Validate(); err != nil {
		return NFSv3AccessControlEntry{}, fmt.Errorf("acl: nfs rule: %w", err)
	}
	return e, nil
}

// ValidateEntries validates every entry and reports all failures together.
func ValidateEntries[E validation.Validatable](entries []E) error {
	var result *multierror.Error
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("entry %d (%v): %w", i, e, err))
		}
	}
	return result.ErrorOrNil()
}

// ServerObjects validates entries and converts them for the management API.
func ServerObjects[E interface {
	validation.Validatable
	ServerObject() gateway.Object
}](entries []E) ([]gateway.Object, error) {
	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}
	out := make([]gateway.Object, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ServerObject())
	}
	return out, nil
}

package backup

import (
	"errors"
	"fmt"
)

// EncryptionMode is how a cloud backup folder protects its data key.
type EncryptionMode string

const (
	// Recoverable folders use a key the portal can recover.
	Recoverable EncryptionMode = "RecoverableKeyEncryption"
	// Secret folders are protected by a user passphrase.
	Secret EncryptionMode = "SecretKeyEncryption"
)

// Configuration locations read and written by Configure.
const (
	ConfigPath   = "/config/backup"
	DefaultsPath = "/defaults/BackupSettings"
)

// Response codes returned by the folder actions.
const (
	RCOK                  = "OK"
	RCNotFound            = "NotFound"
	RCIsEncrypted         = "IsEncrypted"
	RCCheckCodeInCorrect  = "CheckCodeInCorrect"
	RCClocksOutOfSync     = "ClocksOutOfSync"
	RCInternalServerError = "InternalServerError"
	RCPermissionDenied    = "PermissionDenied"
	RCFolderAlreadyExists = "FolderAlreadyExists"
)

// Settings is the outcome of a successful attach or create.
type Settings struct {
	EncryptionMode EncryptionMode
	SharedSecret   string
	PassPhraseSalt string
}

// AttachChallenge carries what is needed to retry an attach against an
// encrypted folder.
type AttachChallenge struct {
	EncryptionMode     EncryptionMode
	EncryptedFolderKey string
	PassPhraseSalt     string
}

var (
	// ErrIncorrectPassphrase means the shared secret did not unlock the folder.
	ErrIncorrectPassphrase = errors.New("backup: incorrect passphrase")
	// ErrClockOutOfSync means the appliance clock differs too much from the portal.
	ErrClockOutOfSync = errors.New("backup: appliance clock is out of sync with the portal")
	ErrAttachFailed   = errors.New("backup: failed to attach backup folder")
	ErrCreateFailed   = errors.New("backup: failed to create backup folder")
	// ErrTaskFailed means a folder action's task failed without a response code.
	ErrTaskFailed = errors.New("backup: task failed")
	// ErrNoSettingsTemplate means neither the backup configuration nor its
	// defaults exist on the appliance.
	ErrNoSettingsTemplate = errors.New("backup: no backup settings or defaults template")
)

// ResponseError reports an action that answered with a failure response code.
type ResponseError struct {
	Op  string
	RC  string
	Err error
}

func (e *ResponseError) Error() string {
	rc := e.RC
	if rc == "" {
		rc = "no response code"
	}
	return fmt.Sprintf("%v: %s returned %s", e.Err, e.Op, rc)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

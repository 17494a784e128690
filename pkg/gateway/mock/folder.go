package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

// FolderState describes the cloud backup folder as seen by the portal.
type FolderState int

const (
	// FolderMissing means no backup folder exists for the appliance yet.
	FolderMissing FolderState = iota
	// FolderRecoverable is a folder encrypted with a portal-recoverable key.
	FolderRecoverable
	// FolderEncrypted is a folder protected by a user passphrase.
	FolderEncrypted
)

// ParseFolderState maps the sandbox flag spelling onto a FolderState.
func ParseFolderState(s string) (FolderState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "missing":
		return FolderMissing, nil
	case "plain", "recoverable":
		return FolderRecoverable, nil
	case "encrypted", "secret":
		return FolderEncrypted, nil
	}
	return FolderMissing, fmt.Errorf("mock gateway: unknown folder state %q", s)
}

const (
	recoverableMode = "RecoverableKeyEncryption"
	secretMode      = "SecretKeyEncryption"
)

// Folder simulates the portal side of the backup folder attach/create
// handshake.
type Folder struct {
	mu           sync.Mutex
	state        FolderState
	passphrase   string
	sharedSecret string
	salt         string
	folderKey    string
	creates      int
}

// SimulateBackupFolder installs attachFolder, attachEncryptedFolder and
// createFolder handlers backed by a simulated cloud folder. passphrase is
// only used for FolderEncrypted.
func (m *Mock) SimulateBackupFolder(state FolderState, passphrase string) *Folder {
	f := &Folder{state: state}
	switch state {
	case FolderRecoverable:
		f.sharedSecret = newSecret()
		f.salt = newSecret()
	case FolderEncrypted:
		f.passphrase = passphrase
		f.sharedSecret = passphrase
		f.salt = newSecret()
		f.folderKey = newSecret()
	}
	m.Handle(gateway.ScopeServices, "attachFolder", f.attach)
	m.Handle(gateway.ScopeServices, "attachEncryptedFolder", f.attachEncrypted)
	m.Handle(gateway.ScopeServices, "createFolder", f.create)
	return f
}

// State reports the current folder state.
func (f *Folder) State() FolderState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Creates reports how many folders were provisioned through createFolder.
func (f *Folder) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// Salt returns the passphrase salt of the folder, if any.
func (f *Folder) Salt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.salt
}

func (f *Folder) attach(ctx context.Context, _ json.RawMessage) (gateway.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case FolderRecoverable:
		return gateway.Object{
			"attachFolderRC": "OK",
			"encryptionMode": recoverableMode,
			"sharedSecret":   f.sharedSecret,
			"passPhraseSalt": f.salt,
		}, nil
	case FolderEncrypted:
		return gateway.Object{
			"attachFolderRC":     "IsEncrypted",
			"encryptionMode":     secretMode,
			"encryptedFolderKey": f.folderKey,
			"passPhraseSalt":     f.salt,
		}, nil
	}
	return gateway.Object{"attachFolderRC": "NotFound"}, nil
}

func (f *Folder) attachEncrypted(ctx context.Context, raw json.RawMessage) (gateway.Object, error) {
	var param struct {
		EncryptedFolderKey string `json:"encryptedFolderKey"`
		PassPhraseSalt     string `json:"passPhraseSalt"`
		SharedSecret       string `json:"sharedSecret"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &param); err != nil {
			return gateway.Object{"attachFolderRC": "InternalServerError"}, nil
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FolderEncrypted {
		return gateway.Object{"attachFolderRC": "NotFound"}, nil
	}
	if param.EncryptedFolderKey != f.folderKey || param.PassPhraseSalt != f.salt {
		return gateway.Object{"attachFolderRC": "PermissionDenied"}, nil
	}
	if param.SharedSecret != f.passphrase {
		return gateway.Object{"attachFolderRC": "CheckCodeInCorrect"}, nil
	}
	// The retry answer does not echo the encryption mode.
	return gateway.Object{
		"attachFolderRC": "OK",
		"sharedSecret":   f.sharedSecret,
		"passPhraseSalt": f.salt,
	}, nil
}

func (f *Folder) create(ctx context.Context, raw json.RawMessage) (gateway.Object, error) {
	var param struct {
		EncryptionMode string  `json:"encryptionMode"`
		SharedSecret   *string `json:"sharedSecret"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &param); err != nil {
			return gateway.Object{"createFolderRC": "InternalServerError"}, nil
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FolderMissing {
		return gateway.Object{"createFolderRC": "FolderAlreadyExists"}, nil
	}

	switch param.EncryptionMode {
	case secretMode:
		if param.SharedSecret == nil || *param.SharedSecret == "" {
			return gateway.Object{"createFolderRC": "PermissionDenied"}, nil
		}
		f.state = FolderEncrypted
		f.passphrase = *param.SharedSecret
		f.sharedSecret = *param.SharedSecret
		f.folderKey = newSecret()
	case recoverableMode:
		f.state = FolderRecoverable
		f.sharedSecret = newSecret()
	default:
		return gateway.Object{"createFolderRC": "InternalServerError"}, nil
	}
	f.salt = newSecret()
	f.creates++

	return gateway.Object{
		"createFolderRC": "OK",
		"sharedSecret":   f.sharedSecret,
		"passPhraseSalt": f.salt,
	}, nil
}

func newSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

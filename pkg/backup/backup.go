package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/edgefiler/filer_sdk_go/internal/filerapi"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

// Transport is the subset of gateway.Client used by Backup.
type Transport interface {
	Execute(ctx context.Context, scope, action string, param any) (*gateway.Task, error)
	Get(ctx context.Context, path string) (gateway.Object, error)
	Put(ctx context.Context, path string, value any) error
}

// TaskWaiter resolves the tasks returned by Transport.Execute.
type TaskWaiter interface {
	Wait(ctx context.Context, task *gateway.Task) (gateway.Object, error)
}

// Folder and sync actions.
const (
	ActionAttachFolder          = "attachFolder"
	ActionAttachEncryptedFolder = "attachEncryptedFolder"
	ActionCreateFolder          = "createFolder"
	ActionStart                 = "start"
	ActionPause                 = "pause"
	ActionResume                = "resume"
)

// Option configures a Backup.
type Option func(*Backup)

// WithLogger attaches a logger.
func WithLogger(l hclog.Logger) Option {
	return func(b *Backup) {
		if l != nil {
			b.logger = l
		}
	}
}

// Backup manages the cloud backup service of an appliance.
type Backup struct {
	transport Transport
	waiter    TaskWaiter
	logger    hclog.Logger
}

// New returns a Backup issuing actions through transport and resolving their
// tasks through waiter.
func New(transport Transport, waiter TaskWaiter, opts ...Option) *Backup {
	b := &Backup{
		transport: transport,
		waiter:    waiter,
		logger:    hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type attachEncryptedParam struct {
	EncryptedFolderKey string `json:"encryptedFolderKey"`
	PassPhraseSalt     string `json:"passPhraseSalt"`
	SharedSecret       string `json:"sharedSecret,omitempty"`
}

type createParam struct {
	EncryptionMode EncryptionMode `json:"encryptionMode"`
	SharedSecret   string         `json:"sharedSecret,omitempty"`
}

// Configure attaches the appliance to its cloud backup folder, creating the
// folder when none exists, and stores the resulting settings in
// /config/backup. An empty passphrase means none was supplied, so the empty
// string can never be used as a passphrase: a new folder then uses
// Recoverable encryption with no sharedSecret sent, and an existing encrypted
// folder rejects the attach with ErrIncorrectPassphrase.
//
// When the folder turns out to have been created concurrently
// (FolderAlreadyExists) Configure returns nil without touching the stored
// configuration.
func (b *Backup) Configure(ctx context.Context, passphrase string) error {
	if b == nil || b.transport == nil || b.waiter == nil {
		return fmt.Errorf("backup: not configured")
	}
	b.logger.Info("configuring backup folder", "passphrase", passphrase != "")

	settings, err := b.attachOrCreate(ctx, passphrase)
	if err != nil {
		return err
	}
	if settings == nil {
		b.logger.Info("backup folder already exists, leaving settings unchanged")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.store(ctx, *settings); err != nil {
		return err
	}
	b.logger.Info("backup folder configured", "encryption_mode", settings.EncryptionMode)
	return nil
}

func (b *Backup) attachOrCreate(ctx context.Context, passphrase string) (*Settings, error) {
	b.logger.Debug("attaching backup folder")
	res, err := b.attach(ctx, ActionAttachFolder, nil)
	if err != nil {
		return nil, err
	}

	switch res.Outcome {
	case AttachOK:
		return res.Settings, nil
	case AttachNotFound:
		b.logger.Debug("backup folder not found, creating")
		return b.create(ctx, passphrase)
	case AttachEncrypted:
		return b.attachEncrypted(ctx, *res.Challenge, passphrase)
	}
	return nil, b.fail(ActionAttachFolder, res.RC, res.Err)
}

func (b *Backup) attachEncrypted(ctx context.Context, challenge AttachChallenge, passphrase string) (*Settings, error) {
	b.logger.Debug("backup folder is encrypted, retrying with shared secret", "encryption_mode", challenge.EncryptionMode)
	res, err := b.attach(ctx, ActionAttachEncryptedFolder, attachEncryptedParam{
		EncryptedFolderKey: challenge.EncryptedFolderKey,
		PassPhraseSalt:     challenge.PassPhraseSalt,
		SharedSecret:       passphrase,
	})
	if err != nil {
		return nil, err
	}

	switch res.Outcome {
	case AttachOK:
		settings := *res.Settings
		settings.EncryptionMode = challenge.EncryptionMode
		return &settings, nil
	case AttachFailed:
		return nil, b.fail(ActionAttachEncryptedFolder, res.RC, res.Err)
	}
	return nil, b.fail(ActionAttachEncryptedFolder, res.RC, ErrAttachFailed)
}

func (b *Backup) create(ctx context.Context, passphrase string) (*Settings, error) {
	param := createParam{EncryptionMode: Recoverable}
	if passphrase != "" {
		param = createParam{EncryptionMode: Secret, SharedSecret: passphrase}
	}

	result, err := b.run(ctx, ActionCreateFolder, param)
	if err != nil {
		return nil, err
	}
	var resp CreateResponse
	if err := filerapi.Decode(result, &resp); err != nil {
		return nil, fmt.Errorf("backup: decode %s result: %w", ActionCreateFolder, err)
	}

	res := ClassifyCreate(resp)
	switch res.Outcome {
	case CreateOK:
		settings := *res.Settings
		settings.EncryptionMode = param.EncryptionMode
		return &settings, nil
	case CreateAlreadyExists:
		return nil, nil
	}
	return nil, b.fail(ActionCreateFolder, res.RC, res.Err)
}

func (b *Backup) attach(ctx context.Context, action string, param any) (AttachResult, error) {
	result, err := b.run(ctx, action, param)
	if err != nil {
		return AttachResult{}, err
	}
	var resp AttachResponse
	if err := filerapi.Decode(result, &resp); err != nil {
		return AttachResult{}, fmt.Errorf("backup: decode %s result: %w", action, err)
	}
	res := ClassifyAttach(resp)
	b.logger.Debug("attach answered", "action", action, "rc", res.RC, "outcome", res.Outcome)
	return res, nil
}

// run executes a folder action and waits for its task. Wait failures other
// than cancellation are reported as ErrTaskFailed.
func (b *Backup) run(ctx context.Context, action string, param any) (gateway.Object, error) {
	task, err := b.transport.Execute(ctx, gateway.ScopeServices, action, param)
	if err != nil {
		return nil, fmt.Errorf("backup: %s: %w", action, err)
	}
	result, err := b.waiter.Wait(ctx, task)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		b.logger.Error("backup folder task failed", "action", action, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrTaskFailed, action, err)
	}
	return result, nil
}

func (b *Backup) fail(op, rc string, err error) error {
	b.logger.Error("backup folder action failed", "action", op, "rc", rc)
	return &ResponseError{Op: op, RC: rc, Err: err}
}

// store merges settings into /config/backup, starting from the appliance
// defaults when no configuration exists yet.
func (b *Backup) store(ctx context.Context, settings Settings) error {
	current, err := b.transport.Get(ctx, ConfigPath)
	if err != nil {
		return fmt.Errorf("backup: read %s: %w", ConfigPath, err)
	}
	if len(current) == 0 {
		b.logger.Debug("no backup configuration, using defaults", "path", DefaultsPath)
		current, err = b.transport.Get(ctx, DefaultsPath)
		if err != nil {
			return fmt.Errorf("backup: read %s: %w", DefaultsPath, err)
		}
		if len(current) == 0 {
			return ErrNoSettingsTemplate
		}
	}

	merged := make(gateway.Object, len(current)+3)
	for k, v := range current {
		merged[k] = v
	}
	merged["encryptionMode"] = nullable(string(settings.EncryptionMode))
	merged["sharedSecret"] = nullable(settings.SharedSecret)
	merged["passPhraseSalt"] = nullable(settings.PassPhraseSalt)

	if err := b.transport.Put(ctx, ConfigPath, merged); err != nil {
		return fmt.Errorf("backup: write %s: %w", ConfigPath, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Start starts cloud backup synchronization.
func (b *Backup) Start(ctx context.Context) error {
	return b.sync(ctx, ActionStart)
}

// Suspend pauses cloud backup synchronization.
func (b *Backup) Suspend(ctx context.Context) error {
	return b.sync(ctx, ActionPause)
}

// Unsuspend resumes a suspended cloud backup synchronization.
func (b *Backup) Unsuspend(ctx context.Context) error {
	return b.sync(ctx, ActionResume)
}

func (b *Backup) sync(ctx context.Context, action string) error {
	if b == nil || b.transport == nil {
		return fmt.Errorf("backup: not configured")
	}
	b.logger.Info("cloud backup sync", "action", action)
	if _, err := b.transport.Execute(ctx, gateway.ScopeSync, action, nil); err != nil {
		return fmt.Errorf("backup: %s: %w", action, err)
	}
	return nil
}

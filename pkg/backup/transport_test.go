package backup_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edgefiler/filer_sdk_go/pkg/backup"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

type fakeTransport struct {
	mock.Mock
}

func (f *fakeTransport) Execute(ctx context.Context, scope, action string, param any) (*gateway.Task, error) {
	args := f.Called(scope, action, param)
	task, _ := args.Get(0).(*gateway.Task)
	return task, args.Error(1)
}

func (f *fakeTransport) Get(ctx context.Context, path string) (gateway.Object, error) {
	args := f.Called(path)
	obj, _ := args.Get(0).(gateway.Object)
	return obj, args.Error(1)
}

func (f *fakeTransport) Put(ctx context.Context, path string, value any) error {
	return f.Called(path, value).Error(0)
}

type fakeWaiter struct {
	mock.Mock
}

func (f *fakeWaiter) Wait(ctx context.Context, task *gateway.Task) (gateway.Object, error) {
	args := f.Called(task)
	obj, _ := args.Get(0).(gateway.Object)
	return obj, args.Error(1)
}

func TestConfigureExecuteError(t *testing.T) {
	transport := &fakeTransport{}
	waiter := &fakeWaiter{}
	boom := errors.New("connection refused")
	transport.On("Execute", gateway.ScopeServices, backup.ActionAttachFolder, mock.Anything).Return(nil, boom)

	err := backup.New(transport, waiter).Configure(context.Background(), "")
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, backup.ErrTaskFailed))
	transport.AssertExpectations(t)
	waiter.AssertNotCalled(t, "Wait", mock.Anything)
}

func TestConfigureWritesMergedSettings(t *testing.T) {
	transport := &fakeTransport{}
	waiter := &fakeWaiter{}
	task := &gateway.Task{Name: backup.ActionAttachFolder, Ref: "/proc/bgtasks/1"}
	transport.On("Execute", gateway.ScopeServices, backup.ActionAttachFolder, mock.Anything).Return(task, nil)
	waiter.On("Wait", task).Return(gateway.Object{
		"attachFolderRC": "OK",
		"encryptionMode": "RecoverableKeyEncryption",
		"sharedSecret":   "abc",
	}, nil)
	transport.On("Get", backup.ConfigPath).Return(gateway.Object{"_classname": "BackupSettings", "passPhraseSalt": "old"}, nil)
	transport.On("Put", backup.ConfigPath, gateway.Object{
		"_classname":     "BackupSettings",
		"encryptionMode": "RecoverableKeyEncryption",
		"sharedSecret":   "abc",
		"passPhraseSalt": nil,
	}).Return(nil)

	require.NoError(t, backup.New(transport, waiter).Configure(context.Background(), ""))
	transport.AssertExpectations(t)
	transport.AssertNotCalled(t, "Get", backup.DefaultsPath)
}

func TestConfigurePutError(t *testing.T) {
	transport := &fakeTransport{}
	waiter := &fakeWaiter{}
	task := &gateway.Task{Name: backup.ActionAttachFolder}
	transport.On("Execute", gateway.ScopeServices, backup.ActionAttachFolder, mock.Anything).Return(task, nil)
	waiter.On("Wait", task).Return(gateway.Object{"attachFolderRC": "OK"}, nil)
	transport.On("Get", backup.ConfigPath).Return(nil, nil)
	transport.On("Get", backup.DefaultsPath).Return(gateway.Object{"_classname": "BackupSettings"}, nil)
	transport.On("Put", backup.ConfigPath, mock.Anything).Return(gateway.ErrNotFound)

	err := backup.New(transport, waiter).Configure(context.Background(), "")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	transport.AssertExpectations(t)
}

func TestSyncExecuteError(t *testing.T) {
	transport := &fakeTransport{}
	transport.On("Execute", gateway.ScopeSync, backup.ActionPause, nil).Return(nil, gateway.ErrNilClient)

	err := backup.New(transport, &fakeWaiter{}).Suspend(context.Background())
	assert.ErrorIs(t, err, gateway.ErrNilClient)
	transport.AssertExpectations(t)
}

func TestNotConfigured(t *testing.T) {
	var b *backup.Backup
	assert.Error(t, b.Configure(context.Background(), ""))
	assert.Error(t, b.Start(context.Background()))
	assert.Error(t, backup.New(nil, nil).Configure(context.Background(), ""))
}

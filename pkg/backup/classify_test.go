package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAttach(t *testing.T) {
	tests := []struct {
		rc      string
		outcome AttachOutcome
		err     error
	}{
		{rc: RCOK, outcome: AttachOK},
		{rc: RCNotFound, outcome: AttachNotFound},
		{rc: RCIsEncrypted, outcome: AttachEncrypted},
		{rc: RCCheckCodeInCorrect, outcome: AttachFailed, err: ErrIncorrectPassphrase},
		{rc: RCClocksOutOfSync, outcome: AttachFailed, err: ErrClockOutOfSync},
		{rc: RCInternalServerError, outcome: AttachFailed, err: ErrAttachFailed},
		{rc: RCPermissionDenied, outcome: AttachFailed, err: ErrAttachFailed},
		{rc: RCFolderAlreadyExists, outcome: AttachFailed, err: ErrAttachFailed},
		{rc: "", outcome: AttachFailed, err: ErrAttachFailed},
	}
	for _, tc := range tests {
		t.Run(tc.rc, func(t *testing.T) {
			res := ClassifyAttach(AttachResponse{RC: tc.rc})
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.rc, res.RC)
			assert.Equal(t, tc.err, res.Err)
		})
	}
}

func TestClassifyAttachPayloads(t *testing.T) {
	ok := ClassifyAttach(AttachResponse{
		RC:                 RCOK,
		EncryptionMode:     Recoverable,
		SharedSecret:       "s3cret",
		PassPhraseSalt:     "salt",
		EncryptedFolderKey: "ignored",
	})
	require.NotNil(t, ok.Settings)
	assert.Nil(t, ok.Challenge)
	assert.Equal(t, Settings{EncryptionMode: Recoverable, SharedSecret: "s3cret", PassPhraseSalt: "salt"}, *ok.Settings)

	enc := ClassifyAttach(AttachResponse{
		RC:                 RCIsEncrypted,
		EncryptionMode:     Secret,
		EncryptedFolderKey: "key",
		PassPhraseSalt:     "salt",
	})
	require.NotNil(t, enc.Challenge)
	assert.Nil(t, enc.Settings)
	assert.Equal(t, AttachChallenge{EncryptionMode: Secret, EncryptedFolderKey: "key", PassPhraseSalt: "salt"}, *enc.Challenge)
}

func TestClassifyCreate(t *testing.T) {
	tests := []struct {
		rc      string
		outcome CreateOutcome
		err     error
	}{
		{rc: RCOK, outcome: CreateOK},
		{rc: RCFolderAlreadyExists, outcome: CreateAlreadyExists},
		{rc: RCInternalServerError, outcome: CreateFailed, err: ErrCreateFailed},
		{rc: RCPermissionDenied, outcome: CreateFailed, err: ErrCreateFailed},
		{rc: RCNotFound, outcome: CreateFailed, err: ErrCreateFailed},
		{rc: "", outcome: CreateFailed, err: ErrCreateFailed},
	}
	for _, tc := range tests {
		t.Run(tc.rc, func(t *testing.T) {
			res := ClassifyCreate(CreateResponse{RC: tc.rc, SharedSecret: "s", PassPhraseSalt: "p"})
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.err, res.Err)
			if tc.outcome == CreateOK {
				require.NotNil(t, res.Settings)
				assert.Equal(t, Settings{SharedSecret: "s", PassPhraseSalt: "p"}, *res.Settings)
			} else {
				assert.Nil(t, res.Settings)
			}
		})
	}
}

func TestResponseErrorMessage(t *testing.T) {
	err := &ResponseError{Op: ActionAttachFolder, RC: RCPermissionDenied, Err: ErrAttachFailed}
	assert.Equal(t, "backup: failed to attach backup folder: attachFolder returned PermissionDenied", err.Error())
	assert.ErrorIs(t, err, ErrAttachFailed)

	err = &ResponseError{Op: ActionCreateFolder, Err: ErrCreateFailed}
	assert.Contains(t, err.Error(), "no response code")
}

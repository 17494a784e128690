package filerapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ref    string
		isTask bool
	}{
		{name: "absolute ref", body: `"/proc/bgtasks/17"`, ref: "/proc/bgtasks/17", isTask: true},
		{name: "relative ref", body: ` "bgtasks/9" `, ref: "/proc/bgtasks/9", isTask: true},
		{name: "plain string", body: `"done"`},
		{name: "object", body: `{"attachFolderRC":"OK"}`},
		{name: "empty", body: ``},
		{name: "null", body: `null`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ref, ok := ParseTaskRef([]byte(tc.body))
			assert.Equal(t, tc.isTask, ok)
			assert.Equal(t, tc.ref, ref)
		})
	}
}

func TestDecodeObject(t *testing.T) {
	obj, err := DecodeObject([]byte(" null "))
	require.NoError(t, err)
	assert.Nil(t, obj)

	obj, err = DecodeObject([]byte(`{"encryptionMode":"SecretKeyEncryption","retention":3}`))
	require.NoError(t, err)
	assert.Equal(t, "SecretKeyEncryption", obj["encryptionMode"])

	_, err = DecodeObject([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestDecodeWeaklyTyped(t *testing.T) {
	var out struct {
		Status     string `json:"status"`
		Percentage int    `json:"percentage"`
		Missing    string `json:"missing"`
	}
	err := Decode(map[string]any{"status": "running", "percentage": "40"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "running", out.Status)
	assert.Equal(t, 40, out.Percentage)
	assert.Empty(t, out.Missing)
}

func TestActionRequestOmitsEmptyParam(t *testing.T) {
	data, err := json.Marshal(NewActionRequest("start", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user-defined","name":"start"}`, string(data))

	data, err = json.Marshal(NewActionRequest("createFolder", map[string]string{"encryptionMode": "RecoverableKeyEncryption"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user-defined","name":"createFolder","param":{"encryptionMode":"RecoverableKeyEncryption"}}`, string(data))
}

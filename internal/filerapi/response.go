package filerapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ActionType is the request type used for every named action.
const ActionType = "user-defined"

// TaskPrefix is the path under which the appliance exposes background tasks.
const TaskPrefix = "/proc/bgtasks/"

// ActionRequest is the body posted to a scope to invoke a named action.
type ActionRequest struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Param any    `json:"param,omitempty"`
}

// NewActionRequest wraps an action name and its parameter object.
func NewActionRequest(name string, param any) ActionRequest {
	return ActionRequest{Type: ActionType, Name: name, Param: param}
}

// ActionEnvelope is the server-side view of ActionRequest with the parameter
// left undecoded.
type ActionEnvelope struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Param json.RawMessage `json:"param,omitempty"`
}

// IsNull reports whether the payload is empty or a JSON null.
func IsNull(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ParseTaskRef inspects an action response and reports whether it is a
// reference to a background task rather than an inline result. Appliances
// answer either with a bare path ("/proc/bgtasks/17") or with the same path
// relative to /proc ("bgtasks/17").
func ParseTaskRef(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var ref string
	if err := json.Unmarshal(trimmed, &ref); err != nil {
		return "", false
	}
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, TaskPrefix):
		return ref, true
	case strings.HasPrefix(ref, "bgtasks/"):
		return "/proc/" + ref, true
	}
	return "", false
}

// DecodeObject parses a JSON object. JSON null yields a nil map.
func DecodeObject(body []byte) (map[string]any, error) {
	if IsNull(body) {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(body), &obj); err != nil {
		return nil, fmt.Errorf("filerapi: decode object: %w", err)
	}
	return obj, nil
}

// Decode maps a generic object (as returned by DecodeObject) onto out, which
// must be a pointer to a struct or map. Fields are matched by their json tag
// and scalar values are converted weakly, since appliances report numbers and
// booleans as strings in some firmware versions.
func Decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("filerapi: build decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("filerapi: decode: %w", err)
	}
	return nil
}

package gateway

import (
	"encoding/json"
	"errors"
)

// Object is a configuration sub-tree or action result as returned by the
// management API.
type Object map[string]any

// Task is the handle returned by Execute. When Ref is set the action runs in
// the background and must be waited on; otherwise Result holds the inline
// result of an action that completed synchronously.
type Task struct {
	Name   string
	Ref    string
	Result json.RawMessage
}

// Async reports whether the task must be polled to completion.
func (t *Task) Async() bool {
	return t != nil && t.Ref != ""
}

// Well-known management API locations.
const (
	ScopeServices = "/status/services"
	ScopeSync     = "/status/sync"
)

var (
	// ErrNotFound is returned when a configuration path does not exist.
	ErrNotFound = errors.New("gateway: not found")
	// ErrNilClient is returned by methods invoked on an unconfigured Client.
	ErrNilClient = errors.New("gateway: client is nil")
)

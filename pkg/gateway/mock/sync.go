package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

// SyncState is the state of the simulated cloud sync service.
type SyncState string

const (
	SyncStopped   SyncState = "Stopped"
	SyncRunning   SyncState = "Running"
	SyncSuspended SyncState = "Suspended"
)

// Sync simulates the start/pause/resume actions of /status/sync. The current
// state is mirrored at gateway.ScopeSync in the configuration tree.
type Sync struct {
	mu    sync.Mutex
	state SyncState
}

// State returns the current sync state.
func (s *Sync) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sync) transition(to SyncState) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = to
	return to
}

// SimulateSync installs start, pause and resume handlers on gateway.ScopeSync.
// New calls it, so a fresh Mock already answers the sync actions.
func (m *Mock) SimulateSync() *Sync {
	s := &Sync{state: SyncStopped}
	m.publishSync(s.state)

	for action, to := range map[string]SyncState{
		"start":  SyncRunning,
		"pause":  SyncSuspended,
		"resume": SyncRunning,
	} {
		to := to
		m.Handle(gateway.ScopeSync, action, func(context.Context, json.RawMessage) (gateway.Object, error) {
			m.publishSync(s.transition(to))
			return gateway.Object{"rc": "OK"}, nil
		})
	}

	m.mu.Lock()
	m.sync = s
	m.mu.Unlock()
	return s
}

// Sync returns the simulated sync service installed by SimulateSync.
func (m *Mock) Sync() *Sync {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sync
}

func (m *Mock) publishSync(state SyncState) {
	_ = m.SetConfig(gateway.ScopeSync, gateway.Object{"_classname": "SyncStatus", "state": string(state)})
}

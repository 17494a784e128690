package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/edgefiler/filer_sdk_go/internal/devseed"
	"github.com/edgefiler/filer_sdk_go/internal/filerapi"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

// ActionFunc handles a named action. A *TaskFailure error marks the
// resulting task as failed, even with WithInlineResults; any other error fails
// the Execute call itself.
type ActionFunc func(ctx context.Context, param json.RawMessage) (gateway.Object, error)

// TaskFailure fails a background task with the given message.
type TaskFailure struct {
	Message string
}

func (f *TaskFailure) Error() string {
	return "task failed: " + f.Message
}

// Call records an Execute invocation.
type Call struct {
	Scope  string
	Action string
	Param  json.RawMessage
}

// Task status values reported under /proc/bgtasks.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNoHandler is returned by Execute for actions nobody registered.
var ErrNoHandler = errors.New("mock gateway: no handler")

// DefaultsPath holds the backup settings template every appliance ships with.
const DefaultsPath = "/defaults/BackupSettings"

type task struct {
	id      string
	name    string
	status  string
	message string
	result  gateway.Object
	polls   int
}

// Mock implements gateway.Backend with an in-memory configuration tree,
// scripted actions and background tasks.
type Mock struct {
	mu        sync.RWMutex
	config    map[string][]byte
	actions   map[string]ActionFunc
	tasks     map[string]*task
	calls     []Call
	writes    map[string]int
	inline    bool
	taskPolls int
	newID     func() string
	sync      *Sync
}

// Option configures the mock instance.
type Option func(*Mock)

// WithInlineResults makes successful actions answer synchronously instead of
// through a background task reference. Failed actions still report through a
// failed background task.
func WithInlineResults() Option {
	return func(m *Mock) {
		m.inline = true
	}
}

// WithTaskPolls keeps every background task in the running state for the
// first n status reads.
func WithTaskPolls(n int) Option {
	return func(m *Mock) {
		if n > 0 {
			m.taskPolls = n
		}
	}
}

// WithIDGenerator overrides the generator used for task ids.
func WithIDGenerator(fn func() string) Option {
	return func(m *Mock) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// New creates a mock appliance holding the factory backup settings template
// and a stopped sync service.
func New(opts ...Option) *Mock {
	m := &Mock{
		config:  make(map[string][]byte),
		actions: make(map[string]ActionFunc),
		tasks:   make(map[string]*task),
		writes:  make(map[string]int),
		newID:   uuid.NewString,
	}
	defaults, _ := json.Marshal(DefaultBackupSettings())
	m.config[DefaultsPath] = defaults
	for _, opt := range opts {
		opt(m)
	}
	m.SimulateSync()
	return m
}

// DefaultBackupSettings returns the factory template for /config/backup.
func DefaultBackupSettings() gateway.Object {
	return gateway.Object{
		"_classname":     "BackupSettings",
		"encryptionMode": nil,
		"sharedSecret":   nil,
		"passPhraseSalt": nil,
		"bandwidthLimit": nil,
		"retentionDays":  30,
	}
}

// Seed loads configuration entries (typically decoded via devseed.LoadConfigSeed).
func (m *Mock) Seed(entries []devseed.ConfigEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("mock gateway: seed entry missing path")
		}
		data := append([]byte(nil), e.Value...)
		if len(data) == 0 {
			data = []byte("null")
		}
		m.config[e.Path] = data
	}
	return nil
}

// SetConfig stores value at path without counting it as a client write.
func (m *Mock) SetConfig(path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("mock gateway: encode %s: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[path] = data
	return nil
}

// Delete removes path from the configuration tree.
func (m *Mock) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.config, path)
}

// Config decodes the object stored at path. It returns nil for missing paths.
func (m *Mock) Config(path string) (gateway.Object, error) {
	m.mu.RLock()
	data, ok := m.config[path]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return filerapi.DecodeObject(data)
}

// Paths lists the configured paths in order.
func (m *Mock) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.config))
	for p := range m.config {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Handle registers fn for action on scope, replacing any previous handler.
func (m *Mock) Handle(scope, action string, fn ActionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[actionKey(scope, action)] = fn
}

// Respond scripts the results of successive invocations of action. The last
// result is repeated once the script is exhausted.
func (m *Mock) Respond(scope, action string, results ...gateway.Object) {
	var (
		mu   sync.Mutex
		next int
	)
	m.Handle(scope, action, func(ctx context.Context, param json.RawMessage) (gateway.Object, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(results) == 0 {
			return nil, nil
		}
		res := results[next]
		if next < len(results)-1 {
			next++
		}
		return res, nil
	})
}

// Calls returns the recorded Execute invocations.
func (m *Mock) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the recorded invocations of action.
func (m *Mock) CallsTo(action string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Writes reports how many times a client wrote path.
func (m *Mock) Writes(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[path]
}

// Get implements gateway.Backend.
func (m *Mock) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(path, filerapi.TaskPrefix) {
		return m.taskStatus(strings.TrimPrefix(path, filerapi.TaskPrefix))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.config[path]
	if !ok {
		return []byte("null"), nil
	}
	return append([]byte(nil), data...), nil
}

// Put implements gateway.Backend.
func (m *Mock) Put(ctx context.Context, path string, raw []byte) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("mock gateway: path is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(raw) {
		return fmt.Errorf("mock gateway: invalid JSON for %s", path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[path] = append([]byte(nil), raw...)
	m.writes[path]++
	return nil
}

// Execute implements gateway.Backend.
func (m *Mock) Execute(ctx context.Context, scope, action string, param []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Scope: scope, Action: action, Param: append(json.RawMessage(nil), param...)})
	fn := m.actions[actionKey(scope, action)]
	m.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("%w for %s on %s", ErrNoHandler, action, scope)
	}

	result, err := fn(ctx, json.RawMessage(param))
	var failure *TaskFailure
	if err != nil && !errors.As(err, &failure) {
		return nil, err
	}

	if m.inline && failure == nil {
		return json.Marshal(result)
	}

	t := &task{id: m.newID(), name: action, status: StatusCompleted, result: result}
	if failure != nil {
		t.status = StatusFailed
		t.message = failure.Message
		t.result = nil
	}
	m.mu.Lock()
	m.tasks[t.id] = t
	m.mu.Unlock()
	return json.Marshal(filerapi.TaskPrefix + t.id)
}

func (m *Mock) taskStatus(id string) ([]byte, error) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return []byte("null"), nil
	}
	t.polls++
	status := t.status
	percentage := 100
	if t.polls <= m.taskPolls {
		status = StatusRunning
		percentage = 100 * t.polls / (m.taskPolls + 1)
	}
	payload := map[string]any{
		"id":         t.id,
		"name":       t.name,
		"status":     status,
		"percentage": percentage,
		"message":    t.message,
	}
	if status == StatusCompleted {
		payload["result"] = t.result
	}
	m.mu.Unlock()
	return json.Marshal(payload)
}

func actionKey(scope, action string) string {
	return scope + "#" + action
}

package taskmgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/edgefiler/filer_sdk_go/internal/filerapi"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

// Task states reported by the appliance.
const (
	StatusRunning              = "running"
	StatusCompleted            = "completed"
	StatusCompletedWithWarning = "completed with warnings"
	StatusFailed               = "failed"
)

var (
	// ErrTimeout is wrapped by *Error when a task does not finish in time.
	ErrTimeout = errors.New("taskmgr: timed out waiting for task")

	errStillRunning = errors.New("taskmgr: task still running")
)

// Error reports a background task that failed or never finished.
type Error struct {
	Ref     string
	Name    string
	Status  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("taskmgr: task %s", e.Ref)
	if e.Name != "" {
		msg += " (" + e.Name + ")"
	}
	msg += " " + e.Status
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the progress record stored at a task reference.
type Status struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Percentage int            `json:"percentage"`
	Message    string         `json:"message"`
	Result     gateway.Object `json:"result"`
}

// Done reports whether the task reached a terminal state.
func (s *Status) Done() bool {
	switch s.Status {
	case StatusCompleted, StatusCompletedWithWarning, StatusFailed:
		return true
	}
	return false
}

// Getter reads task status records.
type Getter interface {
	GetInto(ctx context.Context, path string, out any) error
}

// PollPolicy controls how often tasks are polled and for how long. A zero
// Timeout waits until the task finishes or ctx is done.
type PollPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
}

// DefaultPollPolicy polls every second at first, backing off to five seconds,
// and gives up after ten minutes.
var DefaultPollPolicy = PollPolicy{
	Interval:    time.Second,
	MaxInterval: 5 * time.Second,
	Timeout:     10 * time.Minute,
}

// Option configures a Manager.
type Option func(*Manager)

// WithPollPolicy overrides DefaultPollPolicy.
func WithPollPolicy(p PollPolicy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithLogger attaches a logger for progress reporting.
func WithLogger(l hclog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager waits for background tasks started through gateway.Client.Execute.
type Manager struct {
	client Getter
	policy PollPolicy
	logger hclog.Logger
}

// New creates a Manager polling through client.
func New(client Getter, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		policy: DefaultPollPolicy,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.policy.Interval <= 0 {
		m.policy.Interval = DefaultPollPolicy.Interval
	}
	if m.policy.MaxInterval < m.policy.Interval {
		m.policy.MaxInterval = m.policy.Interval
	}
	return m
}

// Wait blocks until task finishes and returns its result. Tasks that completed
// inline resolve immediately. A failed or timed out task yields *Error; a
// cancelled ctx yields the context error.
func (m *Manager) Wait(ctx context.Context, task *gateway.Task) (gateway.Object, error) {
	if task == nil {
		return nil, fmt.Errorf("taskmgr: task is nil")
	}
	if !task.Async() {
		return inlineResult(task)
	}
	if m == nil || m.client == nil {
		return nil, fmt.Errorf("taskmgr: manager is not configured")
	}

	var last Status
	operation := func() error {
		var st Status
		if err := m.client.GetInto(ctx, task.Ref, &st); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(fmt.Errorf("taskmgr: read %s: %w", task.Ref, err))
		}
		last = st
		if !st.Done() {
			return errStillRunning
		}
		return nil
	}
	notify := func(_ error, next time.Duration) {
		m.logger.Debug("waiting for task", "ref", task.Ref, "name", task.Name, "percentage", last.Percentage, "next", next)
	}

	err := backoff.RetryNotify(operation, m.newBackOff(ctx), notify)
	switch {
	case err == nil:
	case errors.Is(err, errStillRunning):
		return nil, &Error{Ref: task.Ref, Name: taskName(task, last), Status: last.Status, Err: ErrTimeout}
	default:
		return nil, err
	}

	if last.Status == StatusFailed {
		m.logger.Error("task failed", "ref", task.Ref, "name", taskName(task, last), "message", last.Message)
		return nil, &Error{Ref: task.Ref, Name: taskName(task, last), Status: last.Status, Message: last.Message}
	}
	if last.Status == StatusCompletedWithWarning {
		m.logger.Warn("task completed with warnings", "ref", task.Ref, "message", last.Message)
	}
	return last.Result, nil
}

func (m *Manager) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = m.policy.Interval
	exp.MaxInterval = m.policy.MaxInterval
	exp.MaxElapsedTime = m.policy.Timeout
	exp.Reset()
	return backoff.WithContext(exp, ctx)
}

func inlineResult(task *gateway.Task) (gateway.Object, error) {
	if filerapi.IsNull(task.Result) {
		return nil, nil
	}
	var obj gateway.Object
	if err := json.Unmarshal(task.Result, &obj); err != nil {
		return nil, fmt.Errorf("taskmgr: decode %s result: %w", task.Name, err)
	}
	return obj, nil
}

func taskName(task *gateway.Task, st Status) string {
	if st.Name != "" {
		return st.Name
	}
	return task.Name
}

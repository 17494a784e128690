package filer_sdk

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/edgefiler/filer_sdk_go/internal/devseed"
	"github.com/edgefiler/filer_sdk_go/pkg/backup"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway/mock"
	"github.com/edgefiler/filer_sdk_go/pkg/taskmgr"
)

// EnvConfig names an HCL configuration file read by NewFromEnv before the
// other FILER_* variables are applied.
const EnvConfig = "FILER_CONFIG"

// Runtime bundles the clients needed to manage one appliance.
type Runtime struct {
	// Mode is the resolved mode, "http" or "mock".
	Mode    string
	Gateway *gateway.Client
	Tasks   *taskmgr.Manager
	Backup  *backup.Backup
	// Mock is the in-memory appliance behind Gateway in mock mode.
	Mock *mock.Mock
}

// Option configures New.
type Option func(*options)

type options struct {
	fs       afero.Fs
	mockOpts []mock.Option
}

// WithFs reads seed files from fsys instead of the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithMockOptions forwards options to the mock appliance created in mock mode.
func WithMockOptions(opts ...mock.Option) Option {
	return func(o *options) {
		o.mockOpts = append(o.mockOpts, opts...)
	}
}

// New wires a Runtime from cfg. A nil cfg behaves like an empty configuration
// (auto mode without URL, i.e. mock).
func New(cfg *Config, logger hclog.Logger, opts ...Option) (*Runtime, error) {
	o := options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("filer_sdk: invalid config: %w", err)
	}

	mode, err := gateway.ResolveMode(c.Mode, c.APIURL)
	if err != nil {
		return nil, fmt.Errorf("filer_sdk: %w", err)
	}

	rt := &Runtime{Mode: mode}
	switch mode {
	case gateway.ModeHTTP:
		httpOpts, err := c.httpOptions(logger)
		if err != nil {
			return nil, fmt.Errorf("filer_sdk: %w", err)
		}
		gw, err := gateway.New(c.APIURL, httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("filer_sdk: init HTTP gateway: %w", err)
		}
		rt.Gateway = gw
	default:
		m := mock.New(o.mockOpts...)
		if c.MockSeed != "" {
			entries, err := devseed.LoadConfigSeed(o.fs, c.MockSeed)
			if err != nil {
				return nil, fmt.Errorf("filer_sdk: load mock seed: %w", err)
			}
			if err := m.Seed(entries); err != nil {
				return nil, fmt.Errorf("filer_sdk: apply mock seed: %w", err)
			}
		}
		rt.Mock = m
		rt.Gateway = gateway.NewWithBackend(m)
	}
	rt.Gateway.WithLogger(logger.Named("gateway"))

	policy, err := c.pollPolicy()
	if err != nil {
		return nil, fmt.Errorf("filer_sdk: %w", err)
	}
	rt.Tasks = taskmgr.New(rt.Gateway, taskmgr.WithPollPolicy(policy), taskmgr.WithLogger(logger.Named("tasks")))
	rt.Backup = backup.New(rt.Gateway, rt.Tasks, backup.WithLogger(logger.Named("backup")))

	logger.Debug("runtime ready", "mode", mode)
	return rt, nil
}

// NewFromEnv builds a Runtime from FILER_CONFIG (optional HCL file) overlaid
// with FILER_RUNTIME_MODE, FILER_API_URL and FILER_MOCK_SEED.
func NewFromEnv(logger hclog.Logger, opts ...Option) (*Runtime, error) {
	o := options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &Config{}
	if path := strings.TrimSpace(os.Getenv(EnvConfig)); path != "" {
		loaded, err := LoadConfig(o.fs, path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if v := strings.TrimSpace(os.Getenv(gateway.EnvMode)); v != "" {
		cfg.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv(gateway.EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(gateway.EnvMockSeed)); v != "" {
		cfg.MockSeed = v
	}
	return New(cfg, logger, opts...)
}

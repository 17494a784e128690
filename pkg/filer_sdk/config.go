package filer_sdk

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"

	"github.com/edgefiler/filer_sdk_go/internal/httpx"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
	"github.com/edgefiler/filer_sdk_go/pkg/taskmgr"
)

// Config describes how to reach an appliance. It is usually loaded from an
// HCL file:
//
//	mode    = "http"
//	api_url = "https://filer.example.com"
//
//	retry {
//	  max_retries = 5
//	  base_delay  = "500ms"
//	}
//
//	tasks {
//	  poll_interval = "2s"
//	  timeout       = "30m"
//	}
type Config struct {
	Mode     string            `hcl:"mode,optional"`
	APIURL   string            `hcl:"api_url,optional"`
	MockSeed string            `hcl:"mock_seed,optional"`
	Timeout  string            `hcl:"timeout,optional"`
	Headers  map[string]string `hcl:"headers,optional"`

	Retry *RetryConfig `hcl:"retry,block"`
	Tasks *TaskConfig  `hcl:"tasks,block"`
}

// RetryConfig tunes transport retries. Durations use Go syntax ("250ms").
type RetryConfig struct {
	Disabled   bool    `hcl:"disabled,optional"`
	MaxRetries int     `hcl:"max_retries,optional"`
	BaseDelay  string  `hcl:"base_delay,optional"`
	MaxDelay   string  `hcl:"max_delay,optional"`
	Jitter     float64 `hcl:"jitter,optional"`
}

// TaskConfig tunes background task polling.
type TaskConfig struct {
	PollInterval    string `hcl:"poll_interval,optional"`
	MaxPollInterval string `hcl:"max_poll_interval,optional"`
	Timeout         string `hcl:"timeout,optional"`
}

// LoadConfig reads an HCL (or HCL-flavoured JSON) configuration file from
// fsys. A nil fsys reads from the OS filesystem.
func LoadConfig(fsys afero.Fs, path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("filer_sdk: configuration file path is required")
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("filer_sdk: read config: %w", err)
	}

	var cfg Config
	if err := hclsimple.Decode(filepath.Base(path), src, nil, &cfg); err != nil {
		return nil, fmt.Errorf("filer_sdk: parse config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("filer_sdk: invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = gateway.ModeAuto
	}
	c.APIURL = strings.TrimSpace(c.APIURL)
	c.MockSeed = strings.TrimSpace(c.MockSeed)
}

// Validate checks field values and duration syntax.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.In(gateway.ModeAuto, gateway.ModeHTTP, gateway.ModeMock)),
		validation.Field(&c.APIURL,
			validation.When(c.Mode == gateway.ModeHTTP, validation.Required),
			is.URL,
		),
		validation.Field(&c.Timeout, validation.By(isDuration)),
		validation.Field(&c.Retry),
		validation.Field(&c.Tasks),
	)
}

func (r RetryConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MaxRetries, validation.Min(0)),
		validation.Field(&r.BaseDelay, validation.By(isDuration)),
		validation.Field(&r.MaxDelay, validation.By(isDuration)),
		validation.Field(&r.Jitter, validation.Min(0.0), validation.Max(1.0)),
	)
}

func (t TaskConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.PollInterval, validation.By(isPositiveDuration)),
		validation.Field(&t.MaxPollInterval, validation.By(isPositiveDuration)),
		validation.Field(&t.Timeout, validation.By(isPositiveDuration)),
	)
}

func isDuration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a duration such as 500ms or 2m")
	}
	return nil
}

// isPositiveDuration rejects zero and negative durations. A task wait always
// has a deadline.
func isPositiveDuration(value any) error {
	if err := isDuration(value); err != nil {
		return err
	}
	s, _ := value.(string)
	if d, _ := time.ParseDuration(s); s != "" && d <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

// durations parses named duration strings, skipping empty ones, and reports
// every malformed value.
func durations(fields map[string]string) (map[string]time.Duration, error) {
	var result *multierror.Error
	out := make(map[string]time.Duration, len(fields))
	for name, raw := range fields {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		out[name] = d
	}
	return out, result.ErrorOrNil()
}

func (c *Config) httpOptions(logger hclog.Logger) ([]httpx.Option, error) {
	opts := []httpx.Option{httpx.WithLogger(logger.Named("http"))}

	fields := map[string]string{"timeout": c.Timeout}
	if c.Retry != nil {
		fields["retry.base_delay"] = c.Retry.BaseDelay
		fields["retry.max_delay"] = c.Retry.MaxDelay
	}
	d, err := durations(fields)
	if err != nil {
		return nil, err
	}
	if v, ok := d["timeout"]; ok {
		opts = append(opts, httpx.WithTimeout(v))
	}

	if len(c.Headers) > 0 {
		h := make(http.Header, len(c.Headers))
		for k, v := range c.Headers {
			h.Set(k, v)
		}
		opts = append(opts, httpx.WithHeaders(h))
	}

	if c.Retry != nil {
		policy := httpx.DefaultRetryPolicy
		switch {
		case c.Retry.Disabled:
			policy.MaxRetries = 0
		case c.Retry.MaxRetries > 0:
			policy.MaxRetries = c.Retry.MaxRetries
		}
		if v, ok := d["retry.base_delay"]; ok {
			policy.BaseDelay = v
		}
		if v, ok := d["retry.max_delay"]; ok {
			policy.MaxDelay = v
		}
		if c.Retry.Jitter > 0 {
			policy.Jitter = c.Retry.Jitter
		}
		opts = append(opts, httpx.WithRetryPolicy(policy))
	}
	return opts, nil
}

func (c *Config) pollPolicy() (taskmgr.PollPolicy, error) {
	policy := taskmgr.DefaultPollPolicy
	if c.Tasks == nil {
		return policy, nil
	}
	d, err := durations(map[string]string{
		"tasks.poll_interval":     c.Tasks.PollInterval,
		"tasks.max_poll_interval": c.Tasks.MaxPollInterval,
		"tasks.timeout":           c.Tasks.Timeout,
	})
	if err != nil {
		return policy, err
	}
	if v, ok := d["tasks.poll_interval"]; ok {
		policy.Interval = v
	}
	if v, ok := d["tasks.max_poll_interval"]; ok {
		policy.MaxInterval = v
	}
	if v, ok := d["tasks.timeout"]; ok {
		policy.Timeout = v
	}
	return policy, nil
}

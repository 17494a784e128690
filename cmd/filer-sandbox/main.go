package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/edgefiler/filer_sdk_go/internal/devseed"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway/mock"
)

type failConfig struct {
	rate float64
	code int
}

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seed := flag.String("config", "", "path to JSON seed for the configuration tree")
	folderState := flag.String("folder", "none", "cloud backup folder state (none, plain, encrypted)")
	folderPass := flag.String("folder-passphrase", "", "passphrase protecting an encrypted folder")
	taskPolls := flag.Int("task-polls", 2, "status reads before a background task completes")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "filer-sandbox",
		Level: hclog.LevelFromString(*logLevel),
	})

	if err := run(logger, *addr, *seed, *folderState, *folderPass, *taskPolls, *latency, *fail); err != nil {
		logger.Error("sandbox failed", "error", err)
		os.Exit(1)
	}
}

func run(logger hclog.Logger, addr, seed, folderState, folderPass string, taskPolls int, latency time.Duration, fail string) error {
	state, err := mock.ParseFolderState(folderState)
	if err != nil {
		return err
	}
	if state == mock.FolderEncrypted && folderPass == "" {
		return fmt.Errorf("-folder=encrypted requires -folder-passphrase")
	}
	failCfg, err := parseFailConfig(fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}

	appliance := mock.New(mock.WithTaskPolls(taskPolls))
	if seed != "" {
		entries, err := devseed.LoadConfigSeed(nil, seed)
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if err := appliance.Seed(entries); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		logger.Info("seeded configuration", "entries", len(entries))
	}
	appliance.SimulateBackupFolder(state, folderPass)

	server := &http.Server{
		Addr:              addr,
		Handler:           withMiddleware(logger, latency, failCfg, appliance.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	logger.Info("listening", "addr", addr, "folder", folderState, "task_polls", taskPolls)
	fmt.Println()
	fmt.Printf("export %s=http\n", gateway.EnvMode)
	fmt.Printf("export %s=http://%s\n", gateway.EnvAPIURL, host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func withMiddleware(logger hclog.Logger, delay time.Duration, failCfg failConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		if delay > 0 {
			time.Sleep(delay)
		}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			logger.Warn("injecting failure", "path", r.URL.Path, "status", status)
			http.Error(w, "failure injected", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		val := strings.TrimSpace(keyVal[1])
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			rate, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return failConfig{}, err
			}
			if rate < 0 || rate > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0,1]", rate)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = code
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}

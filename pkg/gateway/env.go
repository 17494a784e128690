package gateway

import (
	"fmt"
	"strings"
)

// Environment variables understood by the runtime bootstrap.
const (
	EnvMode     = "FILER_RUNTIME_MODE"
	EnvAPIURL   = "FILER_API_URL"
	EnvMockSeed = "FILER_MOCK_SEED"
)

const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// ResolveMode applies the auto/http/mock selection rules: auto (or empty)
// picks http when a URL is configured and mock otherwise.
func ResolveMode(mode, apiURL string) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	apiURL = strings.TrimSpace(apiURL)

	switch mode {
	case "", ModeAuto:
		if apiURL != "" {
			return ModeHTTP, nil
		}
		return ModeMock, nil
	case ModeHTTP:
		if apiURL == "" {
			return "", fmt.Errorf("gateway: HTTP mode requires %s", EnvAPIURL)
		}
		return ModeHTTP, nil
	case ModeMock:
		return ModeMock, nil
	default:
		return "", fmt.Errorf("gateway: unsupported %s value %q", EnvMode, mode)
	}
}

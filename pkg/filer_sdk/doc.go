// Package filer_sdk bootstraps the gateway, task manager and backup clients
// for one edge filer. Configuration comes from an HCL file, from the
// FILER_RUNTIME_MODE, FILER_API_URL and FILER_MOCK_SEED environment variables,
// or both. Without an API URL the runtime falls back to an in-memory appliance
// that remains API compatible with the HTTP gateway, so applications can be
// developed and tested without hardware.
package filer_sdk

// Package gateway is the transport to an edge filer's management API. A
// Client reads and writes configuration sub-trees (Get, Put) and invokes
// named actions on a scope (Execute). Actions either answer inline or hand
// back a reference to a background task, which callers resolve through
// pkg/taskmgr.
//
// The HTTP backend maps paths under /api: GET and PUT address configuration,
// POST to a scope carries {"type":"user-defined","name":...,"param":...}.
// pkg/gateway/mock provides an in-memory appliance with the same surface.
package gateway

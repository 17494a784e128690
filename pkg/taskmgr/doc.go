// Package taskmgr waits for background tasks started on an edge filer.
package taskmgr

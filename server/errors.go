// File: server/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import "errors"

// Lifecycle errors, surfaced to callers as recoverable values; they never
// affect any other connection, namespace, or the runtime.
var (
	ErrNotReady             = errors.New("server: connection is not Ready")
	ErrConnectionClosed     = errors.New("server: connection is closed or closing")
	ErrDuplicateNamespace   = errors.New("server: namespace path already registered")
	ErrNamespaceNotRunning  = errors.New("server: namespace is not running")
	ErrNamespaceNotFound    = errors.New("server: namespace not found")
	ErrRuntimeNotRunning    = errors.New("server: runtime is not running")
	ErrUpgradeFutureMissing = errors.New("server: no upgraded stream available for this request")
)

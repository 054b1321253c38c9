// File: client/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import "errors"

var (
	ErrNotReady         = errors.New("client: connection is not Ready")
	ErrAlreadyRunning   = errors.New("client: runtime is already running")
	ErrNotRunning       = errors.New("client: runtime is not running")
	ErrNamespaceMissing = errors.New("client: Config.Namespace is required")
)

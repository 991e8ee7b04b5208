// Copyright 2024-2026 Aiku AI

package relay

import "errors"

var (
	// ErrPermission means the bot lacks the rights for a transport operation.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound means the target message no longer exists.
	ErrNotFound = errors.New("message not found")
	// ErrDelivery covers every other transport failure.
	ErrDelivery = errors.New("delivery failed")
)

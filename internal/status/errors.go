package status

import "github.com/pkg/errors"

var (
	// ErrUnknownState is returned for a State outside the defined set.
	ErrUnknownState = errors.New("status: unknown state")
	// ErrNotInitialized is returned by SetState before Initialize.
	ErrNotInitialized = errors.New("status: controller not initialized")
	// ErrClosed is returned once the controller has been closed.
	ErrClosed = errors.New("status: controller closed")
)

package checkout

import (
	"checkoutsdk/internal/hostconfig"
	"checkoutsdk/internal/session"
)

// Embed anchor errors returned by New.
var (
	ErrContainerRequired = hostconfig.ErrContainerRequired
	ErrContainerDetached = hostconfig.ErrContainerDetached
)

// IsContainerTooSmall reports whether New rejected an undersized anchor.
func IsContainerTooSmall(err error) bool { return hostconfig.IsContainerTooSmall(err) }

// IsAlreadyVisible reports whether Show was called on a widget that was
// already shown.
func IsAlreadyVisible(err error) bool { return session.IsAlreadyVisible(err) }

// IsNotVisible reports whether an operation needed a visible widget.
func IsNotVisible(err error) bool { return session.IsNotVisible(err) }

// IsCloseWindow reports whether closing a hosted widget's window failed.
func IsCloseWindow(err error) bool { return session.IsCloseWindow(err) }

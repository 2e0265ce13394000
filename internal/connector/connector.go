// Package connector is the narrow boundary between the SDK core and the
// presentation layer that actually hosts the widget (iframe, overlay, or a
// separate window). The core never touches a DOM; it talks to a Handle.
package connector

import (
	"context"

	"checkoutsdk/internal/origin"
	"checkoutsdk/pkg/types"
)

// Commands a Handle can be asked to perform. The bridge sends them to the
// page shim verbatim.
const (
	CmdOpen         = "open"
	CmdPost         = "post"
	CmdReveal       = "reveal"
	CmdShowPrompt   = "show-prompt"
	CmdHidePrompt   = "hide-prompt"
	CmdLockScroll   = "lock-scroll"
	CmdUnlockScroll = "unlock-scroll"
	CmdClose        = "close"
)

// Inbox receives everything the presentation layer observes for one widget
// instance. Implementations must tolerate calls after the widget closed.
type Inbox interface {
	// HandleMessage forwards a raw cross-window message, unvalidated.
	HandleMessage(msg origin.Message)
	// HandleKey forwards a key press on the host page.
	HandleKey(key string)
	// HandleUIEvent forwards a close-request interaction raised by
	// SDK-rendered UI (overlay click, prompt buttons).
	HandleUIEvent(t types.EventType)
}

// OpenRequest describes the widget to open.
type OpenRequest struct {
	InstanceID string
	URL        string
	Mode       types.DisplayMode
	Variant    types.Variant
	// Container is set for embedded mode only.
	Container *types.Container
	Inbox     Inbox
}

// Connector opens widgets.
type Connector interface {
	Open(ctx context.Context, req OpenRequest) (Handle, error)
}

// Handle controls one opened widget. Close means "close the window" in
// hosted mode and "detach the widget subtree" otherwise.
type Handle interface {
	Post(env types.Envelope) error
	Reveal() error
	ShowClosePrompt() error
	HideClosePrompt() error
	ClosePromptOpen() bool
	LockScroll() error
	UnlockScroll() error
	Close() error
}

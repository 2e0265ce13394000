package connector

import (
	"context"
	"sync"

	"checkoutsdk/internal/origin"
	"checkoutsdk/pkg/types"
)

// Memory opens in-process widgets that only record what they were asked
// to do. Used by tests and headless embedding.
type Memory struct {
	mu      sync.Mutex
	handles []*MemoryHandle

	// OpenErr, when set, is returned by Open.
	OpenErr error
	// CloseErr, when set, is returned by every handle's Close.
	CloseErr error
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Open(ctx context.Context, req OpenRequest) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	h := &MemoryHandle{req: req, closeErr: m.CloseErr, calls: []string{CmdOpen}}
	m.handles = append(m.handles, h)
	return h, nil
}

// Handles returns every handle opened so far, oldest first.
func (m *Memory) Handles() []*MemoryHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MemoryHandle, len(m.handles))
	copy(out, m.handles)
	return out
}

// Last returns the most recently opened handle, or nil.
func (m *Memory) Last() *MemoryHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

// MemoryHandle records calls and lets tests play the widget side.
type MemoryHandle struct {
	mu           sync.Mutex
	req          OpenRequest
	calls        []string
	posted       []types.Envelope
	promptOpen   bool
	scrollLocked bool
	closed       bool
	closeErr     error
}

func (h *MemoryHandle) record(cmd string) {
	h.calls = append(h.calls, cmd)
}

func (h *MemoryHandle) Post(env types.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(CmdPost)
	h.posted = append(h.posted, env)
	return nil
}

func (h *MemoryHandle) Reveal() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(CmdReveal)
	return nil
}

func (h *MemoryHandle) ShowClosePrompt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(CmdShowPrompt)
	h.promptOpen = true
	return nil
}

func (h *MemoryHandle) HideClosePrompt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(CmdHidePrompt)
	h.promptOpen = false
	return nil
}

func (h *MemoryHandle) ClosePromptOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.promptOpen
}

func (h *MemoryHandle) LockScroll() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(CmdLockScroll)
	h.scrollLocked = true
	return nil
}

func (h *MemoryHandle) UnlockScroll() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(CmdUnlockScroll)
	h.scrollLocked = false
	return nil
}

func (h *MemoryHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(CmdClose)
	h.closed = true
	h.promptOpen = false
	return h.closeErr
}

// Request is the OpenRequest the handle was created with.
func (h *MemoryHandle) Request() OpenRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.req
}

// Calls lists the commands received, in order.
func (h *MemoryHandle) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// Posted returns the envelopes posted to the widget.
func (h *MemoryHandle) Posted() []types.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]types.Envelope(nil), h.posted...)
}

func (h *MemoryHandle) ScrollLocked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scrollLocked
}

func (h *MemoryHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Deliver plays a widget message into the SDK.
func (h *MemoryHandle) Deliver(msg origin.Message) {
	h.inbox().HandleMessage(msg)
}

// PressKey plays a host page key press into the SDK.
func (h *MemoryHandle) PressKey(key string) {
	h.inbox().HandleKey(key)
}

// Click plays a close-request interaction on SDK-rendered UI.
func (h *MemoryHandle) Click(t types.EventType) {
	h.inbox().HandleUIEvent(t)
}

func (h *MemoryHandle) inbox() Inbox {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.req.Inbox == nil {
		return nopInbox{}
	}
	return h.req.Inbox
}

type nopInbox struct{}

func (nopInbox) HandleMessage(origin.Message)  {}
func (nopInbox) HandleKey(string)              {}
func (nopInbox) HandleUIEvent(types.EventType) {}

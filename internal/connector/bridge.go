package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"checkoutsdk/internal/origin"
	"checkoutsdk/pkg/types"
)

const (
	sendBuf       = 64
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

// Frame kinds on the bridge websocket.
const (
	KindMessage = "message" // page -> daemon: raw window message
	KindKey     = "key"     // page -> daemon: keydown
	KindUI      = "ui"      // page -> daemon: SDK-rendered UI interaction
	KindPost    = "post"    // daemon -> page: postMessage to the widget
	KindCommand = "command" // daemon -> page: presentation command
)

var (
	ErrUnknownInstance = errors.New("unknown widget instance")
	ErrAlreadyAttached = errors.New("widget instance already has a page connection")
	ErrSendBufferFull  = errors.New("bridge send buffer full")
	ErrHandleClosed    = errors.New("bridge handle closed")
)

// Frame is the JSON unit exchanged with the page shim.
type Frame struct {
	Kind      string            `json:"kind"`
	Instance  string            `json:"instance,omitempty"`
	Origin    string            `json:"origin,omitempty"`
	Data      json.RawMessage   `json:"data,omitempty"`
	Key       string            `json:"key,omitempty"`
	Event     types.EventType   `json:"event,omitempty"`
	Command   string            `json:"command,omitempty"`
	URL       string            `json:"url,omitempty"`
	Mode      types.DisplayMode `json:"mode,omitempty"`
	Variant   types.Variant     `json:"variant,omitempty"`
	Container *types.Container  `json:"container,omitempty"`
}

// Bridge relays widgets to a page shim over a websocket: one connection
// per widget instance. Commands issued before the page connects are
// buffered and flushed on Attach.
type Bridge struct {
	mu      sync.Mutex
	handles map[string]*bridgeHandle
	log     zerolog.Logger
}

func NewBridge(log zerolog.Logger) *Bridge {
	return &Bridge{handles: make(map[string]*bridgeHandle), log: log}
}

func (b *Bridge) Open(ctx context.Context, req OpenRequest) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.InstanceID == "" {
		return nil, fmt.Errorf("open: empty instance id")
	}
	h := &bridgeHandle{
		bridge: b,
		id:     req.InstanceID,
		inbox:  req.Inbox,
		send:   make(chan []byte, sendBuf),
		log:    b.log.With().Str("instance", req.InstanceID).Logger(),
	}
	b.mu.Lock()
	if _, dup := b.handles[req.InstanceID]; dup {
		b.mu.Unlock()
		return nil, fmt.Errorf("open %s: instance already open", req.InstanceID)
	}
	b.handles[req.InstanceID] = h
	b.mu.Unlock()

	if err := h.enqueue(Frame{
		Kind:      KindCommand,
		Command:   CmdOpen,
		Instance:  req.InstanceID,
		URL:       req.URL,
		Mode:      req.Mode,
		Variant:   req.Variant,
		Container: req.Container,
	}); err != nil {
		b.remove(h)
		return nil, err
	}
	return h, nil
}

// Attach binds a page connection to an opened instance and starts its
// pumps. It returns immediately.
func (b *Bridge) Attach(instanceID string, conn *websocket.Conn) error {
	b.mu.Lock()
	h, ok := b.handles[instanceID]
	b.mu.Unlock()
	if !ok {
		return ErrUnknownInstance
	}

	h.mu.Lock()
	if h.conn != nil {
		h.mu.Unlock()
		return ErrAlreadyAttached
	}
	pc := &pageConn{ws: conn, done: make(chan struct{})}
	h.conn = pc
	h.mu.Unlock()

	h.log.Info().Msg("page connected")
	go h.writePump(pc)
	go h.readPump(pc)
	return nil
}

// Connections counts instances with a live page connection.
func (b *Bridge) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, h := range b.handles {
		if h.attached() {
			n++
		}
	}
	return n
}

// Instances counts opened, not yet closed instances.
func (b *Bridge) Instances() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

func (b *Bridge) remove(h *bridgeHandle) {
	b.mu.Lock()
	if b.handles[h.id] == h {
		delete(b.handles, h.id)
	}
	b.mu.Unlock()
}

type pageConn struct {
	ws   *websocket.Conn
	done chan struct{}
}

type bridgeHandle struct {
	bridge *Bridge
	id     string
	inbox  Inbox
	send   chan []byte
	log    zerolog.Logger

	mu         sync.Mutex
	conn       *pageConn
	promptOpen bool
	closed     bool
}

func (h *bridgeHandle) attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

func (h *bridgeHandle) enqueue(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", f.Kind, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	select {
	case h.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (h *bridgeHandle) command(cmd string) error {
	return h.enqueue(Frame{Kind: KindCommand, Command: cmd})
}

func (h *bridgeHandle) Post(env types.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	return h.enqueue(Frame{Kind: KindPost, Data: data})
}

func (h *bridgeHandle) Reveal() error { return h.command(CmdReveal) }

func (h *bridgeHandle) ShowClosePrompt() error {
	if err := h.command(CmdShowPrompt); err != nil {
		return err
	}
	h.mu.Lock()
	h.promptOpen = true
	h.mu.Unlock()
	return nil
}

func (h *bridgeHandle) HideClosePrompt() error {
	h.mu.Lock()
	h.promptOpen = false
	h.mu.Unlock()
	return h.command(CmdHidePrompt)
}

func (h *bridgeHandle) ClosePromptOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.promptOpen
}

func (h *bridgeHandle) LockScroll() error   { return h.command(CmdLockScroll) }
func (h *bridgeHandle) UnlockScroll() error { return h.command(CmdUnlockScroll) }

// Close sends the close command and unregisters the instance. A connected
// page receives the command before the socket is closed.
func (h *bridgeHandle) Close() error {
	data, err := json.Marshal(Frame{Kind: KindCommand, Command: CmdClose})
	if err != nil {
		return err
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.promptOpen = false
	select {
	case h.send <- data:
	default:
		err = ErrSendBufferFull
	}
	attached := h.conn != nil
	h.mu.Unlock()
	if !attached {
		h.bridge.remove(h)
	}
	return err
}

// writePump drains the send channel. It owns the connection lifecycle and
// exits after flushing a close command or when the reader stops.
func (h *bridgeHandle) writePump(pc *pageConn) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.detach(pc)
		pc.ws.Close()
	}()

	for {
		select {
		case msg := <-h.send:
			pc.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := pc.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Warn().Err(err).Msg("bridge write failed")
				return
			}
			if h.isClosed() && len(h.send) == 0 {
				pc.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
				_ = pc.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "widget closed"))
				return
			}
		case <-pc.done:
			return
		case <-ticker.C:
			pc.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := pc.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump forwards page frames to the inbox on a single goroutine, so
// widget messages are handled in arrival order.
func (h *bridgeHandle) readPump(pc *pageConn) {
	defer close(pc.done)

	pc.ws.SetReadDeadline(time.Now().Add(pongWait))
	pc.ws.SetPongHandler(func(string) error {
		pc.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := pc.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().Err(err).Msg("page connection lost")
			}
			return
		}
		pc.ws.SetReadDeadline(time.Now().Add(pongWait))

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			h.log.Debug().Err(err).Msg("malformed bridge frame")
			continue
		}
		if h.inbox == nil {
			continue
		}
		switch f.Kind {
		case KindMessage:
			h.inbox.HandleMessage(origin.Message{Origin: f.Origin, Data: f.Data})
		case KindKey:
			h.inbox.HandleKey(f.Key)
		case KindUI:
			if f.Event == types.EventCloseRequestCancelled {
				h.mu.Lock()
				h.promptOpen = false
				h.mu.Unlock()
			}
			h.inbox.HandleUIEvent(f.Event)
		default:
			h.log.Debug().Str("kind", f.Kind).Msg("unsupported bridge frame")
		}
	}
}

func (h *bridgeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// detach drops the page connection. A closed handle is unregistered; an
// open one waits for the page to reconnect.
func (h *bridgeHandle) detach(pc *pageConn) {
	h.mu.Lock()
	if h.conn == pc {
		h.conn = nil
	}
	closed := h.closed
	h.mu.Unlock()
	if closed {
		h.bridge.remove(h)
	}
	h.log.Info().Msg("page disconnected")
}
